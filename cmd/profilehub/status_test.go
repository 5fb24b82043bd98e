// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilehub/profilehub/pkg/errutil"
)

func healthServer(t *testing.T, ready bool) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz/liveness", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/healthz/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return strings.TrimPrefix(ts.URL, "http://")
}

func TestStatus_Ready(t *testing.T) {
	isolate(t)
	addr := healthServer(t, true)

	out, err := execute(t, NewRootCmd(), "", "status", "--metrics-addr", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "Address: "+addr)
	assert.Contains(t, out, "Live:    yes")
	assert.Contains(t, out, "Ready:   yes")
}

func TestStatus_NotReady(t *testing.T) {
	isolate(t)
	addr := healthServer(t, false)

	out, err := execute(t, NewRootCmd(), "", "status", "--metrics-addr", addr, "--json")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "NOT_READY")

	var status ServerStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Live)
	assert.False(t, status.Ready)
	assert.Equal(t, "not ready", status.Detail)
}

func TestStatus_Unreachable(t *testing.T) {
	isolate(t)
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(ts.URL, "http://")
	ts.Close()

	out, err := execute(t, NewRootCmd(), "", "status", "--metrics-addr", addr)
	require.Error(t, err)
	assert.Contains(t, out, "Live:    no")
	assert.Contains(t, out, "Detail:")
}

func TestStatus_MetricsDisabled(t *testing.T) {
	isolate(t)
	t.Setenv("PROFILEHUB_METRICS__ADDR", "")

	_, err := execute(t, NewRootCmd(), "", "status", "--metrics-addr", "")
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "key", "metrics.addr")
}
