package session

import (
	"sync"
	"testing"
	"time"
)

func TestSnapshotConsistency(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newCounters(base)
	c.AddKeyEvents(10)
	c.AddClickEvents(5)
	c.AddMoveEvents(100)

	snap := c.Snapshot(base.Add(30 * time.Second))
	if snap.KeyEvents != 10 || snap.ClickEvents != 5 || snap.MoveEvents != 100 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Elapsed != 30*time.Second {
		t.Fatalf("unexpected elapsed: %v", snap.Elapsed)
	}

	// Counters are monotonic; the snapshot must not reset them.
	again := c.Snapshot(base.Add(60 * time.Second))
	if again.KeyEvents != 10 {
		t.Fatalf("snapshot reset counters: %+v", again)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	m := NewManager()
	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := m.Get("s1")
			for j := 0; j < perWorker; j++ {
				c.AddKeyEvents(1)
				c.AddClickEvents(1)
				c.AddMoveEvents(1)
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot("s1")
	want := uint64(workers * perWorker)
	if snap.KeyEvents != want || snap.ClickEvents != want || snap.MoveEvents != want {
		t.Fatalf("lost increments: %+v, want %d each", snap, want)
	}
}

func TestManagerCreatesOnFirstTouch(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	m := NewManagerWithClock(func() time.Time { return now })

	m.Get("fresh").AddKeyEvents(1)
	now = base.Add(10 * time.Second)

	snap := m.Snapshot("fresh")
	if snap.KeyEvents != 1 {
		t.Fatalf("unexpected count: %+v", snap)
	}
	if snap.Elapsed != 10*time.Second {
		t.Fatalf("unexpected elapsed: %v", snap.Elapsed)
	}

	// A different id starts from zero.
	other := m.Snapshot("other")
	if other.KeyEvents != 0 || other.Elapsed != 0 {
		t.Fatalf("new session not empty: %+v", other)
	}
}
