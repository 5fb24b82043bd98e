// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilehub/profilehub/pkg/errutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestServe_InvalidConfig(t *testing.T) {
	isolate(t)

	_, err := execute(t, NewRootCmd(), "", "serve")
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "key", "session.secret")
}

func TestServe_StartsAndStops(t *testing.T) {
	isolate(t)
	cheapArgon2(t)
	t.Setenv("PROFILEHUB_SESSION__SECRET", testSecret)

	type addrs struct{ web, metrics string }
	ready := make(chan addrs, 1)

	root := NewRootCmd()
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	root.RemoveCommand(serve)
	root.AddCommand(newServeCmd(&serveConfig{
		migrate: true,
		onReady: func(web, metrics string) { ready <- addrs{web, metrics} },
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configFile = ""
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{
		"--env-file", filepath.Join(t.TempDir(), ".env"),
		"--sqlite-path", filepath.Join(t.TempDir(), "serve.db"),
		"serve",
		"--addr", "127.0.0.1:0",
		"--metrics-addr", "127.0.0.1:0",
	})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	var got addrs
	select {
	case got = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not become ready")
	}

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	get := func(url string) (int, string) {
		resp, err := client.Get(url)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("http://" + got.web + "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "ProfileHub")

	status, _ = get("http://" + got.metrics + "/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)

	_, body = get("http://" + got.metrics + "/metrics")
	assert.Contains(t, body, "profilehub_http_requests_total")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not shut down")
	}
}
