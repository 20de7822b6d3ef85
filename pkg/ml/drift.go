package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// FeatureNames labels the six vector components in order.
var FeatureNames = []string{"lat", "lon", "typing", "touch", "navigation", "session"}

var (
	driftScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "riskgate", Subsystem: "drift", Name: "score", Help: "Latest drift score per feature."},
		[]string{"feature"},
	)
	driftAlerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "riskgate", Subsystem: "drift", Name: "alerts_total", Help: "Drift alerts by feature."},
		[]string{"feature"},
	)
)

func init() {
	_ = prometheus.Register(driftScore)
	_ = prometheus.Register(driftAlerts)
}

// featureStats holds running statistics for one feature.
type featureStats struct {
	Feature string  `json:"feature"`
	Mean    float64 `json:"mean"`
	M2      float64 `json:"m2"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
}

func (s *featureStats) observe(v float64) {
	if s.Count == 0 {
		s.Min, s.Max = v, v
	}
	s.Count++
	delta := v - s.Mean
	s.Mean += delta / float64(s.Count)
	s.M2 += delta * (v - s.Mean)
	if v < s.Min {
		s.Min = v
	}
	if v > s.Max {
		s.Max = v
	}
}

func (s *featureStats) stddev() float64 {
	if s.Count < 2 {
		return 0
	}
	return math.Sqrt(s.M2 / float64(s.Count-1))
}

// DriftMonitor tracks how the live feature distribution moves away from the
// baseline reference set. It only observes; the model is never retrained.
// Stats are periodically persisted to Redis when a client is configured so
// drift survives restarts and is visible to operators.
type DriftMonitor struct {
	mu           sync.Mutex
	baseline     []featureStats
	current      []featureStats
	threshold    float64
	rdb          *redis.Client
	key          string
	persistEvery time.Duration
	lastPersist  time.Time
}

// NewDriftMonitor seeds baseline statistics from the reference vectors.
// rdb may be nil, which disables persistence.
func NewDriftMonitor(baselineVectors [][]float64, threshold float64, rdb *redis.Client) *DriftMonitor {
	if threshold <= 0 {
		threshold = 3.0 // z-score units
	}
	dim := 0
	if len(baselineVectors) > 0 {
		dim = len(baselineVectors[0])
	}
	m := &DriftMonitor{
		baseline:     make([]featureStats, dim),
		current:      make([]featureStats, dim),
		threshold:    threshold,
		rdb:          rdb,
		key:          "riskgate:drift:stats",
		persistEvery: 30 * time.Second,
	}
	for i := 0; i < dim; i++ {
		m.baseline[i].Feature = featureName(i)
		m.current[i].Feature = featureName(i)
	}
	for _, row := range baselineVectors {
		for i, v := range row {
			m.baseline[i].observe(v)
		}
	}
	return m
}

// Observe folds one live vector into the running statistics and updates the
// per-feature drift gauges. Vectors of the wrong length are ignored; the
// scorer already rejects them. Redis persistence happens at most once per
// persistEvery and outside the mutex, keeping the network round-trip off the
// scoring hot path.
func (m *DriftMonitor) Observe(ctx context.Context, vector []float64) {
	m.mu.Lock()
	if len(vector) != len(m.current) {
		m.mu.Unlock()
		return
	}
	for i, v := range vector {
		m.current[i].observe(v)
		score := m.zScore(i)
		driftScore.WithLabelValues(m.current[i].Feature).Set(score)
		if score > m.threshold {
			driftAlerts.WithLabelValues(m.current[i].Feature).Inc()
		}
	}
	var payload []byte
	if m.rdb != nil && time.Since(m.lastPersist) >= m.persistEvery {
		payload, _ = json.Marshal(m.current)
		m.lastPersist = time.Now()
	}
	m.mu.Unlock()

	if payload != nil {
		// Best effort; drift stats are advisory.
		m.rdb.Set(ctx, m.key, payload, 24*time.Hour)
	}
}

// zScore measures how far the live mean of feature i sits from the baseline
// mean, in baseline standard deviations.
func (m *DriftMonitor) zScore(i int) float64 {
	base := m.baseline[i]
	cur := m.current[i]
	if cur.Count == 0 {
		return 0
	}
	sd := base.stddev()
	if sd == 0 {
		sd = 1.0
	}
	return math.Abs(cur.Mean-base.Mean) / sd
}

func featureName(i int) string {
	if i < len(FeatureNames) {
		return FeatureNames[i]
	}
	return fmt.Sprintf("f%d", i)
}
