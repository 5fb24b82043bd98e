// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// statusTimeout bounds the health queries.
const statusTimeout = 5 * time.Second

// ServerStatus is the health of a running instance.
type ServerStatus struct {
	Addr   string `json:"addr"`
	Live   bool   `json:"live"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the health of a running ProfileHub instance",
		Long: `Query the liveness and readiness endpoints of a running instance's
metrics server. Exits non-zero when the instance is not ready.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().String("metrics-addr", "", "metrics/health address of the instance (default from config)")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if conf.Metrics.Addr == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "metrics.addr").
			Errorf("metrics.addr is empty; the health endpoints are disabled")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()
	status := queryStatus(ctx, &http.Client{}, conf.Metrics.Addr)

	if cfg.jsonOutput {
		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return oops.Code("STATUS_FORMAT_FAILED").Wrap(err)
		}
		cmd.Println(string(out))
	} else {
		cmd.Print(formatStatus(status))
	}

	if !status.Ready {
		return oops.Code("NOT_READY").With("addr", status.Addr).Errorf("instance is not ready")
	}
	return nil
}

// queryStatus probes the health endpoints at addr.
func queryStatus(ctx context.Context, client *http.Client, addr string) ServerStatus {
	status := ServerStatus{Addr: addr}
	base := "http://" + addr

	live, _, err := probe(ctx, client, base+"/healthz/liveness")
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Live = live

	ready, body, err := probe(ctx, client, base+"/healthz/readiness")
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Ready = ready
	if !ready {
		status.Detail = body
	}
	return status
}

func probe(ctx context.Context, client *http.Client, url string) (bool, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, "", oops.Code("STATUS_REQUEST_FAILED").With("url", url).Wrap(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, "", oops.Code("STATUS_REQUEST_FAILED").With("url", url).Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return false, "", oops.Code("STATUS_REQUEST_FAILED").With("url", url).Wrap(err)
	}
	return resp.StatusCode == http.StatusOK, strings.TrimSpace(string(body)), nil
}

func formatStatus(status ServerStatus) string {
	var b strings.Builder
	b.WriteString("Address: " + status.Addr + "\n")
	b.WriteString("Live:    " + yesNo(status.Live) + "\n")
	b.WriteString("Ready:   " + yesNo(status.Ready) + "\n")
	if status.Detail != "" {
		b.WriteString("Detail:  " + status.Detail + "\n")
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
