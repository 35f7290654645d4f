// Package audio provides audio analysis utilities including level
// metering, clipping detection, and noise floor tracking.
package audio

import (
	"math"
	"time"

	"github.com/oszuidwest/zwfm-mictest/internal/types"
)

const (
	// ByteZero is the unsigned 8-bit sample value for zero amplitude.
	ByteZero = 128.0
	// ClipHigh is the upper byte value treated as saturation (within one
	// quantization step of the extreme).
	ClipHigh = 254
	// ClipLow is the lower byte value treated as saturation.
	ClipLow = 1
)

// Normalize maps an unsigned 8-bit sample to linear amplitude.
// 0 maps to -1.0, 128 to 0.0, 255 to just under +1.0.
func Normalize(b byte) float64 {
	return float64(b)/ByteZero - 1.0
}

// DB converts linear amplitude to dB relative to full scale, clamped to
// types.FloorDB so true silence never surfaces -Inf or NaN.
func DB(x float64) float64 {
	if x <= 0 || math.IsNaN(x) {
		return types.FloorDB
	}
	db := 20 * math.Log10(x)
	if db < types.FloorDB {
		return types.FloorDB
	}
	return db
}

// LinearFromDB converts dBFS back to linear amplitude. It inverts DB for
// values above the floor.
func LinearFromDB(db float64) float64 {
	return math.Pow(10, db/20)
}

// WindowStats holds the linear-domain measurements of one sample window.
type WindowStats struct {
	PeakLinear float64
	RMSLinear  float64
	DCOffset   float64
	Clipped    bool
}

// AnalyzeWindow computes linear-domain statistics over one time-domain
// window of unsigned 8-bit samples.
func AnalyzeWindow(window []byte) WindowStats {
	var stats WindowStats
	if len(window) == 0 {
		return stats
	}

	var sumSquares, sum float64
	for _, b := range window {
		if b >= ClipHigh || b <= ClipLow {
			stats.Clipped = true
		}
		v := Normalize(b)
		sum += v
		sumSquares += v * v
		if abs := math.Abs(v); abs > stats.PeakLinear {
			stats.PeakLinear = abs
		}
	}

	n := float64(len(window))
	stats.RMSLinear = math.Sqrt(sumSquares / n)
	stats.DCOffset = sum / n
	return stats
}

// CalculateMetrics computes one MetricsSnapshot from a time-domain window,
// updating the noise floor tracker as a side effect. The tracker is the
// only cross-tick state in metrics computation. thresholdDB is the RMS
// level below which the window counts as silent.
func CalculateMetrics(window []byte, floor *NoiseFloorTracker, thresholdDB float64, now time.Time) types.MetricsSnapshot {
	stats := AnalyzeWindow(window)
	rmsDB := DB(stats.RMSLinear)
	silent := rmsDB < thresholdDB

	floor.Update(rmsDB, silent)

	return types.MetricsSnapshot{
		PeakDB:       DB(stats.PeakLinear),
		RMSDB:        rmsDB,
		Clipping:     stats.Clipped,
		NoiseFloorDB: floor.EstimateDB(),
		DCOffset:     stats.DCOffset,
		Silent:       silent,
		Timestamp:    now,
	}
}
