// Package types provides shared type definitions used across the mic test engine.
package types

import (
	"time"
)

// SessionState represents the lifecycle state of a capture session.
type SessionState string

const (
	// SessionClosed indicates no device is held.
	SessionClosed SessionState = "closed"
	// SessionOpen indicates the device is held and delivering samples.
	SessionOpen SessionState = "open"
	// SessionClosing indicates teardown is in progress.
	SessionClosing SessionState = "closing"
)

// LoopState represents the state of the analysis loop.
type LoopState string

const (
	// LoopStopped indicates the loop is not ticking.
	LoopStopped LoopState = "stopped"
	// LoopRunning indicates the loop publishes results on every tick.
	LoopRunning LoopState = "running"
)

// RecorderState represents the state of the recording controller.
type RecorderState string

const (
	// RecorderIdle indicates no recording activity.
	RecorderIdle RecorderState = "idle"
	// RecorderRecording indicates chunks are being collected.
	RecorderRecording RecorderState = "recording"
	// RecorderStopping indicates finalization was requested.
	RecorderStopping RecorderState = "stopping"
	// RecorderFinished indicates an artifact is available.
	RecorderFinished RecorderState = "finished"
	// RecorderFailed indicates the recording terminated with an error.
	RecorderFailed RecorderState = "failed"
)

// Audio format constants for PCM capture and analysis.
const (
	// DefaultSampleRate is the capture sample rate in Hz.
	DefaultSampleRate = 48000
	// DefaultChannels is the number of capture channels (mono).
	DefaultChannels = 1
	// DefaultWindowSize is the analysis window length in samples (power of two).
	DefaultWindowSize = 2048
)

// Metric range constants.
const (
	// FloorDB is the minimum displayable level in dBFS; silence and
	// non-finite conversions are clamped here.
	FloorDB = -100.0
	// SilenceThresholdDB is the RMS level below which a window counts as silent.
	SilenceThresholdDB = -50.0
	// SpectrumCeilingDB is the level mapped to the top of the byte magnitude scale.
	SpectrumCeilingDB = -30.0
)

// ShutdownTimeout is the duration to wait for graceful teardown of the
// encoder subprocess and the capture backend.
const ShutdownTimeout = 3000 * time.Millisecond

// TickInterval is how often the engine drives one analysis tick.
// Roughly display refresh rate.
const TickInterval = 16 * time.Millisecond

// SampleWindow is one analysis window pulled from the capture session.
// TimeDomain holds windowSize unsigned 8-bit samples (128 = zero
// amplitude); FrequencyDomain holds windowSize/2 byte magnitudes ordered
// low frequency first. Windows are transient: consumed on the tick that
// produced them and never retained.
type SampleWindow struct {
	TimeDomain      []byte
	FrequencyDomain []byte
}

// MetricsSnapshot is one immutable per-tick metrics result.
type MetricsSnapshot struct {
	PeakDB       float64   `json:"peak_db"`        // Peak level in dBFS
	RMSDB        float64   `json:"rms_db"`         // RMS level in dBFS
	Clipping     bool      `json:"clipping"`       // Input saturated during this window
	NoiseFloorDB float64   `json:"noise_floor_db"` // Peak-held ambient noise estimate in dBFS
	DCOffset     float64   `json:"dc_offset"`      // Mean linear amplitude
	Silent       bool      `json:"silent"`         // RMS below the silence threshold
	Timestamp    time.Time `json:"timestamp"`
}

// WaveformPoint is one renderable waveform coordinate.
type WaveformPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WaveformFrame is the renderable time-domain frame for one tick.
type WaveformFrame struct {
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Points []WaveformPoint `json:"points"`
}

// SpectrumFrame is the renderable frequency-domain frame for one tick.
// Bars are ordered low frequency first; each height is already scaled to
// the frame height.
type SpectrumFrame struct {
	Height int       `json:"height"`
	Bars   []float64 `json:"bars"`
}

// RecordingArtifact is the finalized in-memory recording. It is replaced,
// and any exposed handle invalidated, when a new recording starts.
type RecordingArtifact struct {
	Bytes      []byte `json:"-"`
	MimeType   string `json:"mime_type"`
	TotalBytes int    `json:"total_bytes"`
}

// AudioDevice represents an available audio input device. Label may be
// empty when enumeration ran without device permission.
type AudioDevice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// SessionInfo is the stream metadata fixed at open time.
type SessionInfo struct {
	DeviceID     string `json:"device_id"`
	SampleRate   int    `json:"sample_rate"`
	ChannelCount int    `json:"channel_count"`
	WindowSize   int    `json:"window_size"`
}
