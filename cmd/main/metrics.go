package main

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/CTAG07/Verbena/pkg/markov"
)

var (
	// tokensTrained counts tokens fed to each model through the API.
	// Labels: model
	tokensTrained = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verbena",
		Subsystem: "markov",
		Name:      "tokens_trained_total",
		Help:      "Total tokens trained per model",
	}, []string{"model"})

	// generations counts generate requests by outcome.
	// Labels: status (ok, invalid_context, unseen_context, empty_model, error)
	generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verbena",
		Subsystem: "markov",
		Name:      "generations_total",
		Help:      "Total generate requests by outcome",
	}, []string{"status"})

	// generateLatency measures time spent sampling a sequence.
	generateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "verbena",
		Subsystem: "markov",
		Name:      "generate_latency_seconds",
		Help:      "Sequence generation latency in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	// sessionsActive tracks open autocomplete sessions.
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "verbena",
		Subsystem: "autocomplete",
		Name:      "sessions_active",
		Help:      "Number of open autocomplete sessions",
	})

	// suggestionMisses counts session lookups that hit an untrained context.
	suggestionMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "verbena",
		Subsystem: "autocomplete",
		Name:      "unseen_contexts_total",
		Help:      "Total suggestion lookups on untrained contexts",
	})
)

// generateStatus is the generations_total label for a generate outcome.
func generateStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, markov.ErrInvalidContext):
		return "invalid_context"
	case errors.Is(err, markov.ErrUnseenContext):
		return "unseen_context"
	case errors.Is(err, markov.ErrEmptyModel):
		return "empty_model"
	default:
		return "error"
	}
}
