package ml

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrDimensionMismatch reports a vector whose length does not match the
// baseline model. This is a programming-contract violation, not a runtime
// condition to retry.
var ErrDimensionMismatch = errors.New("feature vector dimensionality does not match baseline model")

var anomalyScores = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "riskgate",
	Subsystem: "scorer",
	Name:      "anomaly_score",
	Help:      "Distribution of anomaly scores produced by the baseline scorer.",
	Buckets:   []float64{-0.5, -0.25, 0, 0.1, 0.25, 0.5, 1.0, 1.5},
})

func init() {
	_ = prometheus.Register(anomalyScores)
}

// Scorer scores feature vectors against an immutable baseline model. Higher
// scores always mean more anomalous: the raw decision value (positive =
// inlier) is negated here, and downstream tier thresholds are tuned against
// that sign convention.
type Scorer struct {
	model *BaselineModel
}

// NewScorer wraps a fitted baseline model.
func NewScorer(model *BaselineModel) (*Scorer, error) {
	if model == nil {
		return nil, fmt.Errorf("nil baseline model")
	}
	return &Scorer{model: model}, nil
}

// Score returns the anomaly score for the vector. Deterministic for a fixed
// model and input; safe for concurrent use.
func (s *Scorer) Score(vector []float64) (float64, error) {
	if len(vector) != s.model.Dim() {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.model.Dim())
	}
	score := -s.model.forest.DecisionFunction(vector)
	anomalyScores.Observe(score)
	return score, nil
}
