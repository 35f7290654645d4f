// Package analysis drives per-tick metrics and visualization over a live
// capture session.
package analysis

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-mictest/internal/audio"
	"github.com/oszuidwest/zwfm-mictest/internal/capture"
	"github.com/oszuidwest/zwfm-mictest/internal/types"
	"github.com/oszuidwest/zwfm-mictest/internal/visual"
)

// Sentinel errors for loop operations.
var (
	// ErrAlreadyRunning is returned when starting a loop that is running.
	ErrAlreadyRunning = errors.New("analysis loop already running")
	// ErrSessionNotOpen is returned when starting against a closed session.
	ErrSessionNotOpen = errors.New("capture session is not open")
)

// Source is the sample window provider the loop pulls from, implemented
// by *capture.Session.
type Source interface {
	IsOpen() bool
	Window() (types.SampleWindow, error)
}

// Subscriber receives the published results of each tick. Both callbacks
// are invoked once per tick while the loop is running.
type Subscriber struct {
	OnMetrics func(types.MetricsSnapshot)
	OnFrames  func(types.WaveformFrame, types.SpectrumFrame)
}

// Loop is the cooperative analysis scheduler. Tick is an explicit method
// so any host scheduler can drive it: a ticker in production, a manual
// call in tests. Stop guarantees no subscriber callback runs after it
// returns, even for a tick already scheduled: Tick and Stop serialize on
// the same mutex and Tick re-checks the state under it.
type Loop struct {
	mu          sync.Mutex
	state       types.LoopState
	source      Source
	sampler     *visual.Sampler
	floor       *audio.NoiseFloorTracker
	thresholdDB float64
	sub         Subscriber
}

// NewLoop creates a stopped loop rendering through the given sampler.
// thresholdDB is the silence threshold applied to every tick's RMS level.
func NewLoop(sampler *visual.Sampler, thresholdDB float64) *Loop {
	return &Loop{
		state:       types.LoopStopped,
		sampler:     sampler,
		floor:       audio.NewNoiseFloorTracker(),
		thresholdDB: thresholdDB,
	}
}

// Subscribe registers the single subscriber. Replacing the subscriber
// while running takes effect on the next tick.
func (l *Loop) Subscribe(sub Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sub = sub
}

// SetThreshold changes the silence threshold. Takes effect on the next
// tick; a running loop keeps its noise floor history.
func (l *Loop) SetThreshold(thresholdDB float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.thresholdDB = thresholdDB
}

// State returns the current loop state.
func (l *Loop) State() types.LoopState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start transitions to Running against an open session. The noise floor
// estimate starts fresh for every session.
func (l *Loop) Start(source Source) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == types.LoopRunning {
		return ErrAlreadyRunning
	}
	if source == nil || !source.IsOpen() {
		return ErrSessionNotOpen
	}

	l.source = source
	l.floor.Reset()
	l.state = types.LoopRunning
	return nil
}

// Stop transitions to Stopped. Idempotent; once it returns no further
// subscriber callback will be invoked.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = types.LoopStopped
	l.source = nil
}

// Tick executes one analysis pass: pull a window, derive the metrics
// snapshot and visualization frames, publish to the subscriber. A closed
// or invalid session detected mid-tick stops the loop instead of
// publishing stale data.
func (l *Loop) Tick(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != types.LoopRunning {
		return
	}

	window, err := l.source.Window()
	if err != nil {
		slog.Info("analysis loop stopping: session no longer open")
		l.state = types.LoopStopped
		l.source = nil
		return
	}

	snapshot := audio.CalculateMetrics(window.TimeDomain, l.floor, l.thresholdDB, now)
	waveform, spectrum := l.sampler.Frames(window)

	if l.sub.OnMetrics != nil {
		l.sub.OnMetrics(snapshot)
	}
	if l.sub.OnFrames != nil {
		l.sub.OnFrames(waveform, spectrum)
	}
}

var _ Source = (*capture.Session)(nil)
