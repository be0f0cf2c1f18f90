// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

import (
	metrics "github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all instruments for a cordial miner using luxfi/metric
type Metrics struct {
	metricsInstance metrics.Metrics

	// Authoring metrics
	BlocksCreated   metrics.Counter
	PayloadsPending metrics.Gauge

	// Admission metrics
	BlocksAdmitted        metrics.Counter
	BlocksDropped         metrics.Counter
	BufferSize            metrics.Gauge
	EquivocationsDetected metrics.Counter

	// Ordering metrics
	BlocksOrdered   metrics.Counter
	PayloadsOrdered metrics.Counter

	// Round metrics
	CurrentRound   metrics.Gauge
	CompletedRound metrics.Gauge

	// Transport metrics
	BroadcastFailures metrics.Counter
	BroadcastLatency  metrics.Histogram

	// Facade metrics
	RequestsProcessed metrics.CounterVec
}

// NewMetrics creates a new metrics instance using luxfi/metric
func NewMetrics() (*Metrics, error) {
	factory := metrics.NewPrometheusFactory()
	metricsInstance := factory.New("cordial")

	m := &Metrics{
		metricsInstance: metricsInstance,
	}

	m.BlocksCreated = metricsInstance.NewCounter("miner_blocks_created_total", "Total number of blocks authored by this miner")
	m.PayloadsPending = metricsInstance.NewGauge("miner_payloads_pending", "Client payloads waiting for the next authored block")

	m.BlocksAdmitted = metricsInstance.NewCounter("blocklace_blocks_admitted_total", "Total number of blocks admitted into the blocklace")
	m.BlocksDropped = metricsInstance.NewCounter("blocklace_blocks_dropped_total", "Total number of malformed blocks dropped at admission")
	m.BufferSize = metricsInstance.NewGauge("blocklace_buffer_size", "Blocks waiting for dependencies in the admission buffer")
	m.EquivocationsDetected = metricsInstance.NewCounter("blocklace_equivocations_detected_total", "Total number of creators proven to equivocate")

	m.BlocksOrdered = metricsInstance.NewCounter("order_blocks_total", "Total number of blocks emitted by the orderer")
	m.PayloadsOrdered = metricsInstance.NewCounter("order_payloads_total", "Total number of payloads emitted in total order")

	m.CurrentRound = metricsInstance.NewGauge("miner_round", "Current authoring depth of this miner")
	m.CompletedRound = metricsInstance.NewGauge("blocklace_completed_round", "Greatest depth with every round up to and including it cordial")

	m.BroadcastFailures = metricsInstance.NewCounter("transport_broadcast_failures_total", "Failed block deliveries to peers")
	m.BroadcastLatency = metricsInstance.NewHistogram(
		"transport_broadcast_seconds",
		"Time to fan a new block out to all peers",
		prometheus.DefBuckets,
	)

	m.RequestsProcessed = metricsInstance.NewCounterVec(
		"api_requests_processed_total",
		"Total number of API requests processed",
		[]string{"method", "status"},
	)

	return m, nil
}

// GetGatherer returns the prometheus gatherer for metrics export
func (m *Metrics) GetGatherer() prometheus.Gatherer {
	if registry := m.metricsInstance.Registry(); registry != nil {
		return registry
	}
	return prometheus.DefaultGatherer
}

// GetRegisterer returns the prometheus registerer
func (m *Metrics) GetRegisterer() prometheus.Registerer {
	if registry := m.metricsInstance.Registry(); registry != nil {
		return registry
	}
	return prometheus.DefaultRegisterer
}
