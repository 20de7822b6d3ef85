package ml

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestDriftObserveTracksMean(t *testing.T) {
	m := NewDriftMonitor(DefaultBaselineVectors(), 3.0, nil)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		m.Observe(ctx, []float64{28.6, 77.2, 0.5, 0.5, 0.5, 0.5})
	}
	if m.current[2].Count != 20 {
		t.Fatalf("unexpected observation count: %d", m.current[2].Count)
	}
	if z := m.zScore(2); z > 0.1 {
		t.Fatalf("baseline-shaped traffic should not drift: z=%v", z)
	}

	// Push the typing signal far from baseline.
	for i := 0; i < 200; i++ {
		m.Observe(ctx, []float64{28.6, 77.2, 1.0, 0.5, 0.5, 0.5})
	}
	if z := m.zScore(2); z <= 3.0 {
		t.Fatalf("shifted feature should cross the alert threshold: z=%v", z)
	}
}

func TestDriftPersistThrottled(t *testing.T) {
	// Unreachable address: Set fails fast and is ignored, which is all the
	// monitor promises.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	m := NewDriftMonitor(DefaultBaselineVectors(), 3.0, rdb)
	ctx := context.Background()
	vec := []float64{28.6, 77.2, 0.5, 0.5, 0.5, 0.5}

	m.Observe(ctx, vec)
	first := m.lastPersist
	if first.IsZero() {
		t.Fatalf("first observation did not attempt persistence")
	}
	m.Observe(ctx, vec)
	if !m.lastPersist.Equal(first) {
		t.Fatalf("persisted again inside the throttle interval")
	}
	if m.current[0].Count != 2 {
		t.Fatalf("observations lost while throttled: %d", m.current[0].Count)
	}
}

func TestDriftNilRedisNeverPersists(t *testing.T) {
	m := NewDriftMonitor(DefaultBaselineVectors(), 3.0, nil)
	m.Observe(context.Background(), []float64{28.6, 77.2, 0.5, 0.5, 0.5, 0.5})
	if !m.lastPersist.IsZero() {
		t.Fatalf("persistence attempted without a client")
	}
}

func TestDriftIgnoresWrongDimension(t *testing.T) {
	m := NewDriftMonitor(DefaultBaselineVectors(), 3.0, nil)
	m.Observe(context.Background(), []float64{1, 2, 3})
	for i := range m.current {
		if m.current[i].Count != 0 {
			t.Fatalf("wrong-dimension vector was folded in at feature %d", i)
		}
	}
}
