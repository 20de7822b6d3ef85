// Package features turns raw session counters and request context into the
// normalized feature vector consumed by the anomaly scorer.
package features

import (
	"time"

	"riskgate/pkg/geo"
	"riskgate/pkg/session"
)

// Dim is the fixed vector length. It must match the baseline model's
// dimensionality; a mismatch is a construction error, never coerced.
const Dim = 6

// Saturation ceilings per signal: the count at which the normalized value
// reaches 1.0.
const (
	keyEventCeiling   = 500.0
	clickEventCeiling = 300.0
	moveEventCeiling  = 2000.0
	sessionCeiling    = 600 * time.Second
)

// neutralMidpoint stands in for a signal with zero observed events, so "no
// data yet" is distinguishable from confirmed low activity. Callers must not
// conflate the two.
const neutralMidpoint = 0.5

// Vector is an ordered feature vector:
// {lat, lon, typing, touch, navigation, session}. Geo components pass through
// unnormalized; the rest are in [0,1]. Immutable once produced.
type Vector []float64

// Aggregate builds the feature vector from a consistent counter snapshot and
// resolved (or fallback) coordinates. Pure function of its inputs.
func Aggregate(snap session.Snapshot, coords geo.Coordinates) Vector {
	return Vector{
		coords.Lat,
		coords.Lon,
		saturate(snap.KeyEvents, keyEventCeiling),
		saturate(snap.ClickEvents, clickEventCeiling),
		saturate(snap.MoveEvents, moveEventCeiling),
		sessionSignal(snap.Elapsed),
	}
}

// saturate normalizes a raw count by its ceiling, clamped to 1.0. A zero
// count maps to the neutral midpoint.
func saturate(count uint64, ceiling float64) float64 {
	if count == 0 {
		return neutralMidpoint
	}
	v := float64(count) / ceiling
	if v > 1.0 {
		return 1.0
	}
	return v
}

func sessionSignal(elapsed time.Duration) float64 {
	v := elapsed.Seconds() / sessionCeiling.Seconds()
	if v > 1.0 {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	return v
}
