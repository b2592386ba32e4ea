// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for meshd.
//
// Metrics are exposed via the /metrics endpoint. All operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "aleutian"

const meshSubsystem = "mesh"

// Metrics holds the meshd Prometheus collectors. Initialize once at
// startup via NewMetrics.
type Metrics struct {
	// ScansTotal counts content scans by entry point.
	// Labels: origin (request, session, timer)
	ScansTotal *prometheus.CounterVec

	// ThreatsDetectedTotal counts matched signatures by severity.
	ThreatsDetectedTotal *prometheus.CounterVec

	// MessagesTotal counts gate decisions.
	// Labels: outcome (accepted, blocked, rejected)
	MessagesTotal *prometheus.CounterVec

	// PoolCreditsTotal accumulates credited amounts by reason.
	PoolCreditsTotal *prometheus.CounterVec

	// PoolDebitsTotal accumulates successfully distributed amounts.
	PoolDebitsTotal prometheus.Counter

	// ActiveSessions gauges the current mesh session count.
	ActiveSessions prometheus.Gauge
}

// NewMetrics registers the meshd collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: meshSubsystem,
			Name:      "scans_total",
			Help:      "Content scans performed, by entry point.",
		}, []string{"origin"}),
		ThreatsDetectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: meshSubsystem,
			Name:      "threats_detected_total",
			Help:      "Matched threat signatures, by severity.",
		}, []string{"severity"}),
		MessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: meshSubsystem,
			Name:      "messages_total",
			Help:      "Gate decisions for inbound content.",
		}, []string{"outcome"}),
		PoolCreditsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: meshSubsystem,
			Name:      "pool_credits_total",
			Help:      "Amounts credited to the shared pool, by reason.",
		}, []string{"reason"}),
		PoolDebitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: meshSubsystem,
			Name:      "pool_debits_total",
			Help:      "Amounts successfully distributed from the shared pool.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: meshSubsystem,
			Name:      "active_sessions",
			Help:      "Currently connected mesh sessions.",
		}),
	}
}

// ObserveScan records one scan and its matches.
func (m *Metrics) ObserveScan(origin string, severities []string) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(origin).Inc()
	for _, sev := range severities {
		m.ThreatsDetectedTotal.WithLabelValues(sev).Inc()
	}
}
