// Package metrics is Chitti's Prometheus surface: turn/round-trip counts,
// tool dispatch latency, and brain request outcomes. Grounded on
// haasonsaas-nexus's observability package, scoped to the Conductor's
// actual operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the set of counters/histograms cmd/chitti registers once at
// startup and threads through the Conductor's observation hooks.
type Metrics struct {
	// TurnsTotal counts completed user turns by outcome: "ok", the
	// conductor ErrorKind of a classified failure (e.g. loop_limit,
	// cancelled, rate_limited), or "error" for an unclassified one.
	TurnsTotal *prometheus.CounterVec

	// RoundtripsPerTurn records how many brain round-trips one turn took.
	RoundtripsPerTurn prometheus.Histogram

	// BrainRequestsTotal counts brain requests by taxonomy outcome
	// (ok|transport|rate_limited|http_client_error|http_server_error|
	// protocol_decode|cancelled).
	BrainRequestsTotal *prometheus.CounterVec

	// BrainRequestDuration measures one brain round-trip's wall time,
	// Start through Complete/terminal-error.
	BrainRequestDuration prometheus.Histogram

	// ToolDispatchTotal counts tool dispatches by name and outcome
	// (ok|bad_args|denied|timeout|failed|unknown|internal).
	ToolDispatchTotal *prometheus.CounterVec

	// ToolDispatchDuration records, for each tool call, the wall time of
	// the whole parallel dispatch batch the call ran in, not the call's
	// own duration.
	ToolDispatchDuration *prometheus.HistogramVec
}

// RecordTurn, RecordRoundtrips, RecordBrainRequest, and RecordToolDispatch
// satisfy pkg/conductor.Metrics structurally, so the Conductor can report
// through *Metrics without this package being imported by pkg/conductor.

func (m *Metrics) RecordTurn(outcome string) {
	m.TurnsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRoundtrips(n int) {
	m.RoundtripsPerTurn.Observe(float64(n))
}

func (m *Metrics) RecordBrainRequest(outcome string, seconds float64) {
	m.BrainRequestsTotal.WithLabelValues(outcome).Inc()
	m.BrainRequestDuration.Observe(seconds)
}

func (m *Metrics) RecordToolDispatch(toolName, outcome string, seconds float64) {
	m.ToolDispatchTotal.WithLabelValues(toolName, outcome).Inc()
	m.ToolDispatchDuration.WithLabelValues(toolName).Observe(seconds)
}

// New creates and registers every Chitti metric with the default registry.
func New() *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chitti_turns_total",
				Help: "Total number of completed user turns by outcome",
			},
			[]string{"outcome"},
		),
		RoundtripsPerTurn: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chitti_turn_roundtrips",
				Help:    "Number of brain round-trips taken to complete one user turn",
				Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
			},
		),
		BrainRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chitti_brain_requests_total",
				Help: "Total number of brain requests by taxonomy outcome",
			},
			[]string{"outcome"},
		),
		BrainRequestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chitti_brain_request_duration_seconds",
				Help:    "Duration of one brain round-trip, Start through Complete",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		ToolDispatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chitti_tool_dispatch_total",
				Help: "Total number of tool dispatches by tool name and outcome",
			},
			[]string{"tool_name", "outcome"},
		),
		ToolDispatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chitti_tool_dispatch_duration_seconds",
				Help:    "Duration of the parallel tool dispatch batch each invocation ran in",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool_name"},
		),
	}
}
