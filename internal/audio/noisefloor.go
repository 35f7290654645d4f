package audio

import (
	"math"

	"github.com/oszuidwest/zwfm-mictest/internal/types"
)

// NoiseFloorTracker estimates the ambient noise floor as a peak-hold over
// RMS levels measured during silence. The estimate only ever increases
// while the signal stays quiet and is left untouched by loud windows, so
// a single loud moment cannot erase it. It never decays; reset happens
// only when a new session starts.
type NoiseFloorTracker struct {
	estimateDB float64
}

// NewNoiseFloorTracker returns a tracker with no estimate yet.
func NewNoiseFloorTracker() *NoiseFloorTracker {
	return &NoiseFloorTracker{estimateDB: math.Inf(-1)}
}

// Update feeds one window's RMS level. Only silent windows move the
// estimate, and only upward.
func (t *NoiseFloorTracker) Update(rmsDB float64, silent bool) {
	if silent && rmsDB > t.estimateDB {
		t.estimateDB = rmsDB
	}
}

// EstimateDB returns the current estimate clamped to the displayable
// floor, so callers never see -Inf.
func (t *NoiseFloorTracker) EstimateDB() float64 {
	if math.IsInf(t.estimateDB, -1) || t.estimateDB < types.FloorDB {
		return types.FloorDB
	}
	return t.estimateDB
}

// Reset clears the estimate for a new session.
func (t *NoiseFloorTracker) Reset() {
	t.estimateDB = math.Inf(-1)
}
