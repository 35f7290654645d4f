package capture

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/oszuidwest/zwfm-mictest/internal/types"
)

// ErrSessionClosed is returned when windows are pulled from a session
// that is not open.
var ErrSessionClosed = errors.New("capture session is not open")

// Session owns one live input device connection and its analysis node.
// It is created closed; Open claims the device and Close releases it.
// At most one session may be open per engine; reopening requires the
// previous open to have fully closed first. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	backend  Backend
	analyser *Analyser
	state    types.SessionState
	stream   Stream
	info     types.SessionInfo

	tapMu sync.Mutex
	tap   func([]float32)

	sampleRate int
}

// NewSession creates a closed session using the given backend.
// windowSize must be a power of two; sampleRate is the rate requested
// from the device.
func NewSession(backend Backend, windowSize, sampleRate int) *Session {
	return &Session{
		backend:    backend,
		analyser:   NewAnalyser(windowSize),
		state:      types.SessionClosed,
		sampleRate: sampleRate,
	}
}

// State returns the current session state.
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsOpen reports whether the session currently holds the device.
func (s *Session) IsOpen() bool {
	return s.State() == types.SessionOpen
}

// Info returns the stream metadata fixed at open time. Zero value while
// closed.
func (s *Session) Info() types.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Open requests exclusive access to the audio input device. deviceID ""
// means the system default. On success the stream metadata is fixed for
// the session's lifetime. Failures surface as a *types.CaptureError and
// leave no partial state behind.
func (s *Session) Open(deviceID string) (types.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != types.SessionClosed {
		return types.SessionInfo{}, types.NewCaptureError(types.ErrSessionAlreadyOpen, nil)
	}

	s.analyser.Reset()
	stream, err := s.backend.OpenStream(deviceID, s.sampleRate, s.deliver)
	if err != nil {
		return types.SessionInfo{}, err
	}

	info := stream.Info()
	s.stream = stream
	s.state = types.SessionOpen
	s.info = types.SessionInfo{
		DeviceID:     deviceID,
		SampleRate:   info.SampleRate,
		ChannelCount: info.ChannelCount,
		WindowSize:   s.analyser.WindowSize(),
	}

	slog.Info("capture session opened",
		"device", deviceID, "sample_rate", info.SampleRate, "channels", info.ChannelCount)
	return s.info, nil
}

// Close releases the device and analysis resources. It is idempotent and
// safe on a partially-opened session; after it returns no further samples
// reach this session's consumers, though the device itself may release
// asynchronously.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == types.SessionClosed || s.state == types.SessionClosing {
		s.mu.Unlock()
		return nil
	}
	s.state = types.SessionClosing
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	s.SetTap(nil)

	var err error
	if stream != nil {
		err = stream.Close()
	}

	s.mu.Lock()
	s.state = types.SessionClosed
	s.info = types.SessionInfo{}
	s.mu.Unlock()

	if err != nil {
		slog.Warn("capture stream close failed", "error", err)
		return err
	}
	slog.Info("capture session closed")
	return nil
}

// Window pulls one fresh SampleWindow from the analysis node. Fails once
// the session is no longer open, which is how dependents detect mid-tick
// teardown.
func (s *Session) Window() (types.SampleWindow, error) {
	if !s.IsOpen() {
		return types.SampleWindow{}, ErrSessionClosed
	}
	return s.analyser.Window(), nil
}

// SetTap installs a secondary consumer of the raw sample stream, fed
// alongside the analysis node from the capture callback. A nil tap
// detaches; the previous tap receives no samples after SetTap returns.
func (s *Session) SetTap(tap func([]float32)) {
	s.tapMu.Lock()
	defer s.tapMu.Unlock()
	s.tap = tap
}

// deliver is the backend's sample callback: it feeds the analysis ring
// and fans out to the tap when one is installed.
func (s *Session) deliver(samples []float32) {
	s.analyser.Push(samples)

	s.tapMu.Lock()
	tap := s.tap
	s.tapMu.Unlock()
	if tap != nil {
		tap(samples)
	}
}

// Devices enumerates input devices through the session's backend.
func (s *Session) Devices() []types.AudioDevice {
	return Devices(s.backend)
}
