// Package engine wires the capture session, analysis loop, and recording
// controller into one mic test engine and drives the analysis ticks.
package engine

import (
	"cmp"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-mictest/internal/analysis"
	"github.com/oszuidwest/zwfm-mictest/internal/capture"
	"github.com/oszuidwest/zwfm-mictest/internal/config"
	"github.com/oszuidwest/zwfm-mictest/internal/eventlog"
	"github.com/oszuidwest/zwfm-mictest/internal/recorder"
	"github.com/oszuidwest/zwfm-mictest/internal/types"
	"github.com/oszuidwest/zwfm-mictest/internal/visual"
)

// ErrTestNotRunning is returned when a recording is requested while no
// test is in progress.
var ErrTestNotRunning = errors.New("mic test is not running")

// Engine owns the mic test lifecycle: it opens the capture session,
// drives the analysis loop on a fixed tick, and layers the recording
// controller over the live session.
type Engine struct {
	config     *config.Config
	ffmpegPath string
	session    *capture.Session
	loop       *analysis.Loop
	recorder   *recorder.Controller
	events     *eventlog.Logger

	mu       sync.RWMutex
	stopChan chan struct{}
	metrics  types.MetricsSnapshot
	waveform types.WaveformFrame
	spectrum types.SpectrumFrame

	wasClipping bool
	wasSilent   bool
}

// New creates an engine from the loaded configuration. backend supplies
// the capture devices; events may be nil to disable the event log.
func New(cfg *config.Config, ffmpegPath string, backend capture.Backend, events *eventlog.Logger) *Engine {
	snap := cfg.Snapshot()

	e := &Engine{
		config:     cfg,
		ffmpegPath: ffmpegPath,
		session:    capture.NewSession(backend, snap.WindowSize, snap.SampleRate),
		loop:       analysis.NewLoop(visual.NewSampler(snap.VisualWidth, snap.VisualHeight), snap.SilenceThreshold),
		events:     events,
	}

	autoStop := time.Duration(snap.RecordingMaxDurationSeconds) * time.Second
	e.recorder = recorder.NewController(recorder.FFmpegSupport(ffmpegPath), e.newEncoder, autoStop)

	e.loop.Subscribe(analysis.Subscriber{
		OnMetrics: e.onMetrics,
		OnFrames:  e.onFrames,
	})

	return e
}

// newEncoder builds a fresh recording encoder matched to the open
// session's actual sample rate.
func (e *Engine) newEncoder() recorder.Encoder {
	rate := cmp.Or(e.session.Info().SampleRate, e.config.Snapshot().SampleRate)
	return recorder.NewFFmpegEncoder(e.ffmpegPath, rate)
}

// StartTest opens the capture session and starts analysis. deviceID ""
// uses the configured device, falling back to the system default.
func (e *Engine) StartTest(deviceID string) (types.SessionInfo, error) {
	if deviceID == "" {
		deviceID = e.config.AudioInput()
	}

	info, err := e.session.Open(deviceID)
	if err != nil {
		if logErr := e.events.LogSession(eventlog.SessionError, deviceID, 0, 0, err.Error()); logErr != nil {
			slog.Warn("failed to log session error", "error", logErr)
		}
		return types.SessionInfo{}, err
	}

	if err := e.loop.Start(e.session); err != nil {
		if closeErr := e.session.Close(); closeErr != nil {
			slog.Warn("failed to close session after loop start failure", "error", closeErr)
		}
		return types.SessionInfo{}, err
	}

	e.mu.Lock()
	e.stopChan = make(chan struct{})
	e.wasClipping = false
	e.wasSilent = false
	stop := e.stopChan
	e.mu.Unlock()

	go e.runTicker(stop)

	if err := e.events.LogSession(eventlog.SessionOpened, info.DeviceID, info.SampleRate, info.ChannelCount, ""); err != nil {
		slog.Warn("failed to log session open", "error", err)
	}
	return info, nil
}

// StopTest tears everything down in dependency order: recording first,
// then the analysis loop, then the device. Idempotent.
func (e *Engine) StopTest() error {
	e.recorder.Reset()
	e.loop.Stop()

	e.mu.Lock()
	if e.stopChan != nil {
		close(e.stopChan)
		e.stopChan = nil
	}
	e.metrics = types.MetricsSnapshot{}
	e.waveform = types.WaveformFrame{}
	e.spectrum = types.SpectrumFrame{}
	e.mu.Unlock()

	wasOpen := e.session.IsOpen()
	err := e.session.Close()
	if wasOpen {
		if logErr := e.events.LogSession(eventlog.SessionClosed, "", 0, 0, ""); logErr != nil {
			slog.Warn("failed to log session close", "error", logErr)
		}
	}
	return err
}

// runTicker drives the analysis loop until the test stops.
func (e *Engine) runTicker(stop <-chan struct{}) {
	ticker := time.NewTicker(types.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			e.loop.Tick(now)
		}
	}
}

// onMetrics stores the latest snapshot and edge-triggers quality events.
func (e *Engine) onMetrics(m types.MetricsSnapshot) {
	threshold := e.config.Snapshot().SilenceThreshold

	e.mu.Lock()
	e.metrics = m
	clipStart := m.Clipping && !e.wasClipping
	silenceStart := m.Silent && !e.wasSilent
	e.wasClipping = m.Clipping
	e.wasSilent = m.Silent
	e.mu.Unlock()

	if clipStart {
		if err := e.events.LogQuality(eventlog.ClippingDetected, m.PeakDB, m.RMSDB, 0); err != nil {
			slog.Warn("failed to log clipping event", "error", err)
		}
	}
	if silenceStart {
		if err := e.events.LogQuality(eventlog.SilenceDetected, m.PeakDB, m.RMSDB, threshold); err != nil {
			slog.Warn("failed to log silence event", "error", err)
		}
	}
}

// onFrames stores the latest visualization frames.
func (e *Engine) onFrames(w types.WaveformFrame, s types.SpectrumFrame) {
	e.mu.Lock()
	e.waveform = w
	e.spectrum = s
	e.mu.Unlock()
}

// IsRunning reports whether a mic test is in progress.
func (e *Engine) IsRunning() bool {
	return e.session.IsOpen() && e.loop.State() == types.LoopRunning
}

// Metrics returns the latest published tick results: metrics snapshot
// plus both visualization frames. Zero values while no test runs.
func (e *Engine) Metrics() (types.MetricsSnapshot, types.WaveformFrame, types.SpectrumFrame) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.metrics, e.waveform, e.spectrum
}

// Devices enumerates available input devices.
func (e *Engine) Devices() []types.AudioDevice {
	return e.session.Devices()
}

// SelectDevice persists the preferred input device. Takes effect on the
// next test start; a running test keeps its current device.
func (e *Engine) SelectDevice(deviceID string) error {
	return e.config.SetAudioInput(deviceID)
}

// SetSilenceThreshold persists the silence threshold and applies it to
// the analysis loop immediately.
func (e *Engine) SetSilenceThreshold(thresholdDB float64) error {
	if err := e.config.SetSilenceThreshold(thresholdDB); err != nil {
		return err
	}
	e.loop.SetThreshold(thresholdDB)
	return nil
}

// StartRecording begins recording the live test audio.
func (e *Engine) StartRecording() error {
	if !e.IsRunning() {
		return ErrTestNotRunning
	}

	if err := e.recorder.Start(e.session); err != nil {
		if logErr := e.events.LogRecording(eventlog.RecordingFailed, "", 0, err.Error()); logErr != nil {
			slog.Warn("failed to log recording failure", "error", logErr)
		}
		return err
	}

	if err := e.events.LogRecording(eventlog.RecordingStarted, "", 0, ""); err != nil {
		slog.Warn("failed to log recording start", "error", err)
	}
	return nil
}

// StopRecording finalizes the active recording.
func (e *Engine) StopRecording() error {
	err := e.recorder.Stop()
	if err != nil {
		if errors.Is(err, recorder.ErrNotRecording) {
			return err
		}
		if logErr := e.events.LogRecording(eventlog.RecordingFailed, "", 0, err.Error()); logErr != nil {
			slog.Warn("failed to log recording failure", "error", logErr)
		}
		return err
	}

	artifact := e.recorder.Artifact()
	if artifact != nil {
		if logErr := e.events.LogRecording(eventlog.RecordingFinished, artifact.MimeType, artifact.TotalBytes, ""); logErr != nil {
			slog.Warn("failed to log recording finish", "error", logErr)
		}
	}
	return nil
}

// RecorderState returns the recording controller state and failure kind.
func (e *Engine) RecorderState() (types.RecorderState, types.ErrorKind) {
	return e.recorder.State()
}

// Artifact returns the finalized recording, or nil.
func (e *Engine) Artifact() *types.RecordingArtifact {
	return e.recorder.Artifact()
}

// Status assembles the full engine status for clients.
func (e *Engine) Status() types.WSStatusResponse {
	recState, recErr := e.recorder.State()

	status := types.WSStatusResponse{
		Type:             "status",
		FFmpegAvailable:  e.ffmpegPath != "",
		SessionState:     e.session.State(),
		LoopState:        e.loop.State(),
		RecorderState:    recState,
		RecorderError:    recErr,
		Devices:          e.Devices(),
		SelectedDevice:   e.config.AudioInput(),
		SilenceThreshold: e.config.Snapshot().SilenceThreshold,
	}

	if e.session.IsOpen() {
		info := e.session.Info()
		status.Session = &info
	}
	if artifact := e.recorder.Artifact(); artifact != nil {
		status.RecordingMime = artifact.MimeType
		status.RecordingBytes = artifact.TotalBytes
	}
	return status
}

// Shutdown stops everything and releases the event log.
func (e *Engine) Shutdown() error {
	var errs []error
	if err := e.StopTest(); err != nil {
		errs = append(errs, err)
	}
	if err := e.events.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
