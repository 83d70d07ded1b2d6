package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Transition sources for the status transition counter.
const (
	sourceAdmin     = "admin"
	sourceRecompute = "recompute"
	sourceResubmit  = "resubmit"
)

var (
	statusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manuscript_status_transitions_total",
		Help: "Manuscript status changes by source and target.",
	}, []string{"from", "to", "source"})

	writeConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manuscript_write_conflicts_total",
		Help: "Compare-and-swap conflicts that forced a re-read.",
	}, []string{"operation"})

	sideEffectFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manuscript_side_effect_failures_total",
		Help: "Best-effort side effects that failed after a committed write.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(statusTransitions, writeConflicts, sideEffectFailures)
}
