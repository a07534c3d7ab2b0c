// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package metrics holds the Prometheus collectors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scamsentinel_registrations_total",
			Help: "Total number of registration attempts.",
		},
		[]string{"result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scamsentinel_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"result"},
	)

	ReportsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scamsentinel_reports_submitted_total",
			Help: "Total number of scam reports submitted.",
		},
	)

	EvidenceUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scamsentinel_evidence_uploads_total",
			Help: "Total number of evidence image uploads.",
		},
		[]string{"result"},
	)

	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scamsentinel_votes_total",
			Help: "Total number of votes cast.",
		},
		[]string{"direction"},
	)

	ReputationChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scamsentinel_reputation_checks_total",
			Help: "Total number of URL reputation checks by verdict.",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// MustRegister registers all collectors with the default registry. Calling
// it more than once is a no-op.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			RegistrationsTotal,
			LoginsTotal,
			ReportsSubmittedTotal,
			EvidenceUploadsTotal,
			VotesTotal,
			ReputationChecksTotal,
		)
	})
}

// Result maps an error to a "success" or "error" label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
