// Package metrics exposes Prometheus instrumentation for workflows. The
// Collector is a core.Sink: wire it next to the tracer and it derives agent,
// handoff, tool and branch metrics from the event stream. Session level
// outcomes are recorded explicitly by the runner.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/travelmesh/core"
)

// Session outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeRouting     = "routing_error"
	OutcomeMaxHops     = "max_hops_exceeded"
	OutcomeAggregation = "aggregation_error"
	OutcomeCanceled    = "canceled"
	OutcomeError       = "error"
)

// Collector holds the workflow metric vectors.
type Collector struct {
	agentInvocations *prometheus.CounterVec
	agentDuration    *prometheus.HistogramVec
	handoffs         *prometheus.CounterVec
	toolCalls        *prometheus.CounterVec
	branchFailures   *prometheus.CounterVec
	sessions         *prometheus.CounterVec
	sessionHops      *prometheus.HistogramVec
	sessionDuration  *prometheus.HistogramVec
}

// NewCollector registers the workflow metrics with reg under namespace.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Collector{
		agentInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_invocations_total",
				Help:      "Total number of agent invocations by outcome",
			},
			[]string{"agent", "outcome"},
		),
		agentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_invocation_duration_seconds",
				Help:      "Agent invocation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		handoffs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handoffs_total",
				Help:      "Total number of handoff transitions",
			},
			[]string{"from", "to"},
		),
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls by outcome",
			},
			[]string{"tool", "outcome"},
		),
		branchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "branch_failures_total",
				Help:      "Total number of failed concurrent branches",
			},
			[]string{"branch"},
		),
		sessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Total number of workflow sessions by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		sessionHops: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_hops",
				Help:      "Handoff transitions per session",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
			},
			[]string{"mode"},
		),
		sessionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_duration_seconds",
				Help:      "Workflow session duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
	}
}

// Emit implements core.Sink.
func (c *Collector) Emit(ev core.Event) {
	if c == nil {
		return
	}

	switch p := ev.Payload.(type) {
	case core.CompletePayload:
		outcome := "answer"

		switch {
		case p.Error != "":
			outcome = "error"

			if ev.Branch != "" {
				c.branchFailures.WithLabelValues(ev.Branch).Inc()
			}
		case p.Handoff != "":
			outcome = "handoff"
		}

		c.agentInvocations.WithLabelValues(p.Agent, outcome).Inc()
		c.agentDuration.WithLabelValues(p.Agent).Observe(p.Duration.Seconds())
	case core.HandoffPayload:
		c.handoffs.WithLabelValues(p.From, p.To).Inc()
	case core.ToolResultPayload:
		outcome := "success"
		if p.Error != "" {
			outcome = "error"
		}

		c.toolCalls.WithLabelValues(p.Tool, outcome).Inc()
	}
}

// ObserveSession records the outcome of a finished workflow session.
func (c *Collector) ObserveSession(mode, outcome string, hops int, dur time.Duration) {
	if c == nil {
		return
	}

	c.sessions.WithLabelValues(mode, outcome).Inc()
	c.sessionHops.WithLabelValues(mode).Observe(float64(hops))
	c.sessionDuration.WithLabelValues(mode).Observe(dur.Seconds())
}
