package ml

import "fmt"

// BaselineModel is the fitted representation of "normal" behavior. It is
// constructed once at process start and never mutated afterwards: there is
// no online learning, and concurrent scoring calls share it read-only.
type BaselineModel struct {
	forest *IsolationForest
	dim    int
}

// NewBaselineModel fits a model over the reference vectors. All vectors must
// share one dimensionality; a mismatch is a fatal construction error.
func NewBaselineModel(vectors [][]float64, cfg ForestConfig) (*BaselineModel, error) {
	forest, err := FitIsolationForest(vectors, cfg)
	if err != nil {
		return nil, fmt.Errorf("fit baseline: %w", err)
	}
	return &BaselineModel{forest: forest, dim: forest.Dim()}, nil
}

// Dim is the feature dimensionality every scored vector must match.
func (m *BaselineModel) Dim() int { return m.dim }

// DefaultBaselineVectors is the supplied reference set of normal feature
// vectors: {lat, lon, typing, touch, navigation, session} per row.
func DefaultBaselineVectors() [][]float64 {
	return [][]float64{
		{28.6139, 77.2090, 0.5, 0.5, 0.5, 0.5},
		{19.0760, 72.8777, 0.6, 0.4, 0.5, 0.6},
		{12.9716, 77.5946, 0.4, 0.6, 0.5, 0.4},
		{13.0827, 80.2707, 0.5, 0.5, 0.6, 0.5},
		{22.5726, 88.3639, 0.5, 0.5, 0.4, 0.5},
		{28.7041, 77.1025, 0.5, 0.5, 0.5, 0.5},
		{23.0225, 72.5714, 0.5, 0.5, 0.5, 0.5},
		{26.9124, 75.7873, 0.5, 0.5, 0.5, 0.5},
		{18.5204, 73.8567, 0.5, 0.5, 0.5, 0.5},
		{17.3850, 78.4867, 0.5, 0.5, 0.5, 0.5},
	}
}

// DefaultBaseline fits the default reference set with the default forest
// tuning.
func DefaultBaseline() (*BaselineModel, error) {
	return NewBaselineModel(DefaultBaselineVectors(), DefaultForestConfig())
}
