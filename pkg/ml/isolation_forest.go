package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// IsolationForest is an ensemble of randomized isolation trees. Construction
// uses a seeded PRNG so a fit over the same data is reproducible; inference
// is deterministic and touches no per-call state, so a fitted forest may be
// shared read-only across goroutines.
type IsolationForest struct {
	trees      []*isolationTree
	numTrees   int
	sampleSize int
	maxDepth   int
	offset     float64
	dim        int
}

type isolationTree struct {
	root *treeNode
}

type treeNode struct {
	splitFeature int
	splitValue   float64
	left         *treeNode
	right        *treeNode
	size         int
}

// ForestConfig controls forest construction.
type ForestConfig struct {
	NumTrees      int
	SampleSize    int
	Contamination float64 // expected anomaly fraction, sets the score offset
	Seed          int64
}

// DefaultForestConfig mirrors the tuning the gating thresholds were derived
// against.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{NumTrees: 100, SampleSize: 256, Contamination: 0.1, Seed: 42}
}

// FitIsolationForest trains a forest on data. All rows must share one
// dimensionality.
func FitIsolationForest(data [][]float64, cfg ForestConfig) (*IsolationForest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no training data provided")
	}
	dim := len(data[0])
	if dim == 0 {
		return nil, fmt.Errorf("empty feature rows")
	}
	for i, row := range data {
		if len(row) != dim {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), dim)
		}
	}
	if cfg.NumTrees <= 0 {
		cfg.NumTrees = 100
	}
	if cfg.SampleSize <= 0 || cfg.SampleSize > len(data) {
		cfg.SampleSize = len(data)
	}
	if cfg.Contamination <= 0 || cfg.Contamination >= 1 {
		cfg.Contamination = 0.1
	}

	f := &IsolationForest{
		numTrees:   cfg.NumTrees,
		sampleSize: cfg.SampleSize,
		maxDepth:   int(math.Ceil(math.Log2(float64(cfg.SampleSize)))) + 1,
		dim:        dim,
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	f.trees = make([]*isolationTree, f.numTrees)
	for i := 0; i < f.numTrees; i++ {
		sample := sampleRows(data, f.sampleSize, rng)
		f.trees[i] = &isolationTree{root: buildTree(sample, 0, f.maxDepth, rng)}
	}
	f.fitOffset(data, cfg.Contamination)
	return f, nil
}

// Dim returns the feature dimensionality the forest was fitted on.
func (f *IsolationForest) Dim() int { return f.dim }

// anomalyScore is the standard isolation score in (0,1]: ~0.5 for ordinary
// points, approaching 1 for points isolated quickly.
func (f *IsolationForest) anomalyScore(sample []float64) float64 {
	total := 0.0
	for _, tree := range f.trees {
		total += pathLength(tree.root, sample, 0)
	}
	avg := total / float64(len(f.trees))
	c := averagePathLength(f.sampleSize)
	return math.Pow(2, -avg/c)
}

// DecisionFunction returns the raw decision value: positive for inliers,
// negative for outliers. The offset fixes the contamination-quantile of the
// training scores at zero.
func (f *IsolationForest) DecisionFunction(sample []float64) float64 {
	return f.scoreSamples(sample) - f.offset
}

// scoreSamples is the negated isolation score, matching the convention that
// lower raw values are more anomalous.
func (f *IsolationForest) scoreSamples(sample []float64) float64 {
	return -f.anomalyScore(sample)
}

// fitOffset places the decision boundary at the contamination quantile of
// the training scores.
func (f *IsolationForest) fitOffset(data [][]float64, contamination float64) {
	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = f.scoreSamples(row)
	}
	sort.Float64s(scores)
	idx := int(contamination * float64(len(scores)))
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	f.offset = scores[idx]
}

func buildTree(data [][]float64, depth, maxDepth int, rng *rand.Rand) *treeNode {
	if len(data) <= 1 || depth >= maxDepth {
		return &treeNode{size: len(data)}
	}
	featureIdx := rng.Intn(len(data[0]))
	minVal, maxVal := featureRange(data, featureIdx)
	if minVal == maxVal {
		return &treeNode{size: len(data)}
	}
	splitValue := minVal + rng.Float64()*(maxVal-minVal)

	var left, right [][]float64
	for _, row := range data {
		if row[featureIdx] < splitValue {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	node := &treeNode{
		splitFeature: featureIdx,
		splitValue:   splitValue,
		size:         len(data),
	}
	node.left = buildTree(left, depth+1, maxDepth, rng)
	node.right = buildTree(right, depth+1, maxDepth, rng)
	return node
}

func pathLength(node *treeNode, sample []float64, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + averagePathLength(node.size)
	}
	if sample[node.splitFeature] < node.splitValue {
		return pathLength(node.left, sample, depth+1)
	}
	return pathLength(node.right, sample, depth+1)
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// BST search over n points.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	const eulerMascheroni = 0.5772156649
	return 2.0*(math.Log(float64(n-1))+eulerMascheroni) - 2.0*float64(n-1)/float64(n)
}

func sampleRows(data [][]float64, sampleSize int, rng *rand.Rand) [][]float64 {
	if len(data) <= sampleSize {
		return data
	}
	sample := make([][]float64, sampleSize)
	for i := range sample {
		sample[i] = data[rng.Intn(len(data))]
	}
	return sample
}

func featureRange(data [][]float64, featureIdx int) (float64, float64) {
	minVal, maxVal := data[0][featureIdx], data[0][featureIdx]
	for _, row := range data {
		if row[featureIdx] < minVal {
			minVal = row[featureIdx]
		}
		if row[featureIdx] > maxVal {
			maxVal = row[featureIdx]
		}
	}
	return minVal, maxVal
}
