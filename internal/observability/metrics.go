// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Login and signup results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultInvalid = "invalid"
	ResultTaken   = "taken"
	ResultError   = "error"
)

// Metrics contains the ProfileHub Prometheus metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	RequestsTotal        *prometheus.CounterVec
	LoginsTotal          *prometheus.CounterVec
	SignupsTotal         *prometheus.CounterVec
	AccountsDeletedTotal prometheus.Counter
}

// NewRegistry returns a registry with the standard Go and process
// collectors registered.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// NewMetrics creates and registers the ProfileHub metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profilehub_http_requests_total",
				Help: "Total number of HTTP requests by route pattern and status code",
			},
			[]string{"route", "status"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profilehub_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		SignupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profilehub_signups_total",
				Help: "Total number of signup attempts by result",
			},
			[]string{"result"},
		),
		AccountsDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "profilehub_accounts_deleted_total",
				Help: "Total number of deleted accounts",
			},
		),
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.LoginsTotal)
	reg.MustRegister(m.SignupsTotal)
	reg.MustRegister(m.AccountsDeletedTotal)

	return m
}

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ObserveLogin counts one login attempt.
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// ObserveSignup counts one signup attempt.
func (m *Metrics) ObserveSignup(result string) {
	if m == nil {
		return
	}
	m.SignupsTotal.WithLabelValues(result).Inc()
}

// ObserveAccountDeleted counts one deleted account.
func (m *Metrics) ObserveAccountDeleted() {
	if m == nil {
		return
	}
	m.AccountsDeletedTotal.Inc()
}
