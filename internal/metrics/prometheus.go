package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationsTotal counts plan generations by outcome.
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealplanner_generations_total",
			Help: "Total number of week plan generations",
		},
		[]string{"outcome"},
	)

	// GenerationDuration tracks how long a generation run takes end to end.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mealplanner_generation_duration_seconds",
			Help:    "Duration of week plan generations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"outcome"},
	)

	// RotationResetsTotal counts rotation cycles completed during generation.
	RotationResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mealplanner_rotation_resets_total",
			Help: "Total number of rotation cycle resets",
		},
	)

	// CandidatePoolSize records the eligible favorite pool per run.
	CandidatePoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mealplanner_candidate_pool_size",
			Help:    "Eligible favorite recipes per generation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		},
	)

	// RecipesIngestedTotal counts recipes saved by source.
	RecipesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealplanner_recipes_ingested_total",
			Help: "Total number of recipes ingested",
		},
		[]string{"source"},
	)
)

func observe(m GenerationMetric) {
	GenerationsTotal.WithLabelValues(m.Outcome).Inc()
	GenerationDuration.WithLabelValues(m.Outcome).Observe(float64(m.LatencyMS) / 1000)
	if m.Outcome == OutcomeSuccess {
		RotationResetsTotal.Add(float64(m.RotationResets))
		CandidatePoolSize.Observe(float64(m.Candidates))
	}
}

// RecordIngested adds n recipes ingested from source.
func RecordIngested(source string, n int) {
	RecipesIngestedTotal.WithLabelValues(source).Add(float64(n))
}
