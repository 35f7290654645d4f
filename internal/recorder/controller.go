package recorder

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-mictest/internal/types"
	"github.com/oszuidwest/zwfm-mictest/internal/util"
)

// Sentinel errors for controller operations.
var (
	// ErrAlreadyRecording is returned when starting while a recording is active.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording is returned when stopping without an active recording.
	ErrNotRecording = errors.New("no recording in progress")
	// ErrSessionNotOpen is returned when starting without an open capture session.
	ErrSessionNotOpen = errors.New("capture session is not open")
)

// Session is the capture surface the controller records from: it checks
// the session is open and taps its raw sample stream. Implemented by
// *capture.Session.
type Session interface {
	IsOpen() bool
	SetTap(func([]float32))
}

// Controller is the recording state machine layered over a capture
// session: Idle -> Recording -> Stopping -> Finished or Failed, with the
// terminal states returning to Idle when the next recording starts. It
// shares the session with the analysis loop without affecting it. Safe
// for concurrent use.
type Controller struct {
	mu         sync.Mutex
	state      types.RecorderState
	failure    types.ErrorKind
	supported  SupportFunc
	newEncoder func() Encoder
	autoStop   time.Duration

	session     Session
	encoder     Encoder
	timer       *time.Timer
	chunks      [][]byte
	totalBytes  int
	encodeErr   error
	collectDone chan struct{}
	artifact    *types.RecordingArtifact
}

// NewController creates an idle controller. supported is the host
// capability predicate (nil when the host has none); newEncoder builds a
// fresh encoder per recording; autoStop > 0 enables the optional
// fixed-duration auto-stop timer.
func NewController(supported SupportFunc, newEncoder func() Encoder, autoStop time.Duration) *Controller {
	return &Controller{
		state:      types.RecorderIdle,
		supported:  supported,
		newEncoder: newEncoder,
		autoStop:   autoStop,
	}
}

// State returns the current state and, for Failed, the failure kind.
func (c *Controller) State() (types.RecorderState, types.ErrorKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.failure
}

// Artifact returns the finalized recording, or nil when none is
// available. The handle is invalidated when a new recording starts.
func (c *Controller) Artifact() *types.RecordingArtifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.artifact
}

// Start begins a new recording against an open session. A prior artifact
// is invalidated immediately; the terminal Finished/Failed states return
// to Idle here before the new recording begins.
func (c *Controller) Start(session Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == types.RecorderRecording || c.state == types.RecorderStopping {
		return ErrAlreadyRecording
	}
	c.state = types.RecorderIdle
	c.failure = ""
	c.artifact = nil

	if session == nil || !session.IsOpen() {
		return ErrSessionNotOpen
	}

	candidate := Negotiate(c.supported)
	enc := c.newEncoder()
	if err := enc.Start(candidate); err != nil {
		c.state = types.RecorderFailed
		c.failure = types.ErrRecordingUnsupported
		return types.NewRecordingError(types.ErrRecordingUnsupported, err)
	}

	c.session = session
	c.encoder = enc
	c.chunks = nil
	c.totalBytes = 0
	c.encodeErr = nil
	c.collectDone = make(chan struct{})
	go c.collect(enc, c.collectDone)

	session.SetTap(enc.Write)
	c.state = types.RecorderRecording

	if c.autoStop > 0 {
		c.timer = time.AfterFunc(c.autoStop, func() {
			slog.Info("recording auto-stop reached", "duration", util.FormatDuration(c.autoStop.Milliseconds()))
			if err := c.Stop(); err != nil && !errors.Is(err, ErrNotRecording) {
				slog.Error("auto-stop failed", "error", err)
			}
		})
	}

	slog.Info("recording started", "mime", candidate.MimeType)
	return nil
}

// collect accumulates chunks as the encoder delivers them. An encoder
// that terminates while the controller still believes it is recording is
// a mid-recording failure.
func (c *Controller) collect(enc Encoder, done chan struct{}) {
	defer close(done)

	for chunk := range enc.Chunks() {
		c.mu.Lock()
		c.chunks = append(c.chunks, chunk)
		c.totalBytes += len(chunk)
		c.mu.Unlock()
	}

	err := <-enc.Done()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.encodeErr = err
	if c.state == types.RecorderRecording {
		if err == nil {
			err = errors.New("encoder terminated unexpectedly")
		}
		slog.Error("recording failed mid-stream", "error", err)
		c.stopTimerLocked()
		c.untapLocked()
		c.encoder = nil
		c.state = types.RecorderFailed
		c.failure = types.ErrEncodingFailure
	}
}

// Stop requests finalization and waits for the terminal event. Valid
// only while Recording; a pending auto-stop timer is cancelled so a
// manual stop never races a second stop.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != types.RecorderRecording {
		c.mu.Unlock()
		return ErrNotRecording
	}
	c.state = types.RecorderStopping
	c.stopTimerLocked()
	c.untapLocked()
	enc := c.encoder
	collectDone := c.collectDone
	c.mu.Unlock()

	if err := enc.Stop(); err != nil {
		slog.Warn("encoder stop failed", "error", err)
	}

	timedOut := false
	select {
	case <-collectDone:
	case <-time.After(types.ShutdownTimeout):
		timedOut = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.encoder = nil

	if timedOut {
		c.state = types.RecorderFailed
		c.failure = types.ErrEncodingFailure
		return types.NewRecordingError(types.ErrEncodingFailure, errors.New("encoder did not finalize in time"))
	}

	// Zero chunks means the encoder never emitted data, which is a
	// distinct failure from recording genuine silence.
	if len(c.chunks) == 0 {
		c.state = types.RecorderFailed
		c.failure = types.ErrNoDataRecorded
		return types.NewRecordingError(types.ErrNoDataRecorded, c.encodeErr)
	}

	if c.encodeErr != nil {
		c.state = types.RecorderFailed
		c.failure = types.ErrEncodingFailure
		return types.NewRecordingError(types.ErrEncodingFailure, c.encodeErr)
	}

	bytes := make([]byte, 0, c.totalBytes)
	for _, chunk := range c.chunks {
		bytes = append(bytes, chunk...)
	}
	c.chunks = nil
	c.artifact = &types.RecordingArtifact{
		Bytes:      bytes,
		MimeType:   enc.MimeType(),
		TotalBytes: len(bytes),
	}
	c.state = types.RecorderFinished

	slog.Info("recording finished",
		"bytes", c.artifact.TotalBytes, "mime", c.artifact.MimeType)
	return nil
}

// Reset tears down any recording activity and returns to Idle, dropping
// the artifact. Used on session teardown.
func (c *Controller) Reset() {
	state, _ := c.State()
	if state == types.RecorderRecording {
		if err := c.Stop(); err != nil {
			slog.Warn("recording stop during reset", "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.untapLocked()
	c.state = types.RecorderIdle
	c.failure = ""
	c.artifact = nil
	c.chunks = nil
}

// stopTimerLocked cancels a pending auto-stop timer. Caller holds c.mu.
func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// untapLocked detaches from the session's sample stream. Caller holds c.mu.
func (c *Controller) untapLocked() {
	if c.session != nil {
		c.session.SetTap(nil)
		c.session = nil
	}
}
