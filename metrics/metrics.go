// Package metrics exposes Prometheus collectors for agent turns, action
// dispatches and failure recoveries. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeTimeout    = "timeout"
	OutcomePanic      = "panic"
	OutcomeParseError = "parse_error"
	OutcomeEscalated  = "human_input"
	OutcomeUnknown    = "unknown_tool"
	OutcomeRecovered  = "recovered"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
)

// UnknownToolLabel is the tool label recorded for actions naming no registered capability.
const UnknownToolLabel = "_unknown"

// Metrics holds the testmesh collectors.
type Metrics struct {
	agentTurns       *prometheus.CounterVec
	agentTurnSeconds *prometheus.HistogramVec
	dispatches       *prometheus.CounterVec
	recoveries       *prometheus.CounterVec
}

// MustNewMetrics constructs and registers the collectors on reg
// (prometheus.DefaultRegisterer if nil). Collectors already registered on reg
// are reused; any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		agentTurns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "testmesh",
				Name:      "agent_turns_total",
				Help:      "Agent turns by outcome.",
			},
			[]string{"agent", "outcome"},
		),
		agentTurnSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "testmesh",
				Name:      "agent_turn_duration_seconds",
				Help:      "Duration of agent turns including inference.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "testmesh",
				Name:      "actions_dispatched_total",
				Help:      "Agent actions dispatched to capabilities or the command channel.",
			},
			[]string{"tool", "outcome"},
		),
		recoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "testmesh",
				Name:      "recoveries_total",
				Help:      "Failure recovery attempts by failure type and outcome.",
			},
			[]string{"failure_type", "outcome"},
		),
	}

	m.agentTurns = register(reg, m.agentTurns)
	m.agentTurnSeconds = register(reg, m.agentTurnSeconds)
	m.dispatches = register(reg, m.dispatches)
	m.recoveries = register(reg, m.recoveries)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveAgentTurn records one agent turn.
func (m *Metrics) ObserveAgentTurn(agent, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.agentTurns.WithLabelValues(agent, outcome).Inc()
	m.agentTurnSeconds.WithLabelValues(agent).Observe(d.Seconds())
}

// IncDispatch records one dispatched action.
func (m *Metrics) IncDispatch(tool, outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(tool, outcome).Inc()
}

// IncRecovery records one recovery attempt.
func (m *Metrics) IncRecovery(failureType, outcome string) {
	if m == nil {
		return
	}
	m.recoveries.WithLabelValues(failureType, outcome).Inc()
}

// AgentTurnCounter returns the turn counter for agent and outcome.
func (m *Metrics) AgentTurnCounter(agent, outcome string) prometheus.Counter {
	return m.agentTurns.WithLabelValues(agent, outcome)
}

// DispatchCounter returns the dispatch counter for tool and outcome.
func (m *Metrics) DispatchCounter(tool, outcome string) prometheus.Counter {
	return m.dispatches.WithLabelValues(tool, outcome)
}

// RecoveryCounter returns the recovery counter for failureType and outcome.
func (m *Metrics) RecoveryCounter(failureType, outcome string) prometheus.Counter {
	return m.recoveries.WithLabelValues(failureType, outcome)
}
