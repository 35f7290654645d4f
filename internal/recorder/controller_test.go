package recorder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oszuidwest/zwfm-mictest/internal/types"
)

// fakeSession satisfies the controller's Session interface.
type fakeSession struct {
	mu   sync.Mutex
	open bool
	tap  func([]float32)
}

func (f *fakeSession) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeSession) SetTap(tap func([]float32)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tap = tap
}

func (f *fakeSession) hasTap() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tap != nil
}

// fakeEncoder is a scriptable in-memory encoder.
type fakeEncoder struct {
	startErr error
	chunks   chan []byte
	done     chan error
	mime     string

	mu      sync.Mutex
	started Candidate
	stopped bool
	doneErr error
}

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{
		chunks: make(chan []byte, 16),
		done:   make(chan error, 1),
		mime:   "audio/webm",
	}
}

func (f *fakeEncoder) Start(c Candidate) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.started = c
	f.mu.Unlock()
	return nil
}

func (f *fakeEncoder) Write([]float32) {}

func (f *fakeEncoder) Chunks() <-chan []byte { return f.chunks }

// Stop finalizes: flush nothing further, close the chunk stream, deliver
// the terminal result.
func (f *fakeEncoder) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return nil
	}
	f.stopped = true
	close(f.chunks)
	f.done <- f.doneErr
	return nil
}

func (f *fakeEncoder) Done() <-chan error { return f.done }

func (f *fakeEncoder) MimeType() string { return f.mime }

func newTestController(enc *fakeEncoder, autoStop time.Duration) *Controller {
	return NewController(nil, func() Encoder { return enc }, autoStop)
}

func TestControllerHappyPath(t *testing.T) {
	enc := newFakeEncoder()
	c := newTestController(enc, 0)
	session := &fakeSession{open: true}

	if state, _ := c.State(); state != types.RecorderIdle {
		t.Fatalf("initial state = %v, want idle", state)
	}

	if err := c.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if state, _ := c.State(); state != types.RecorderRecording {
		t.Fatalf("state = %v, want recording", state)
	}
	if !session.hasTap() {
		t.Error("no tap registered while recording")
	}

	enc.chunks <- []byte("abc")
	enc.chunks <- []byte("def")

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if state, _ := c.State(); state != types.RecorderFinished {
		t.Fatalf("state = %v, want finished", state)
	}
	if session.hasTap() {
		t.Error("tap still registered after stop")
	}

	artifact := c.Artifact()
	if artifact == nil {
		t.Fatal("no artifact after finished recording")
	}
	if string(artifact.Bytes) != "abcdef" {
		t.Errorf("artifact bytes = %q, want %q", artifact.Bytes, "abcdef")
	}
	if artifact.TotalBytes != 6 {
		t.Errorf("artifact total = %d, want 6", artifact.TotalBytes)
	}
	if artifact.MimeType != "audio/webm" {
		t.Errorf("artifact mime = %q", artifact.MimeType)
	}
}

func TestControllerZeroChunksFails(t *testing.T) {
	enc := newFakeEncoder()
	c := newTestController(enc, 0)

	if err := c.Start(&fakeSession{open: true}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	err := c.Stop()
	if types.KindOf(err) != types.ErrNoDataRecorded {
		t.Fatalf("Stop error kind = %q, want no_data_recorded", types.KindOf(err))
	}
	if state, kind := c.State(); state != types.RecorderFailed || kind != types.ErrNoDataRecorded {
		t.Errorf("state = %v/%v, want failed/no_data_recorded", state, kind)
	}
	if c.Artifact() != nil {
		t.Error("artifact present after failed recording")
	}
}

func TestControllerEncoderStartFailure(t *testing.T) {
	enc := newFakeEncoder()
	enc.startErr = errors.New("no encoder binary")
	c := newTestController(enc, 0)

	err := c.Start(&fakeSession{open: true})
	if types.KindOf(err) != types.ErrRecordingUnsupported {
		t.Fatalf("Start error kind = %q, want recording_unsupported", types.KindOf(err))
	}
	if state, kind := c.State(); state != types.RecorderFailed || kind != types.ErrRecordingUnsupported {
		t.Errorf("state = %v/%v, want failed/recording_unsupported", state, kind)
	}
}

func TestControllerEncodeErrorFails(t *testing.T) {
	enc := newFakeEncoder()
	enc.doneErr = errors.New("muxer exploded")
	c := newTestController(enc, 0)

	if err := c.Start(&fakeSession{open: true}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	enc.chunks <- []byte("partial")

	err := c.Stop()
	if types.KindOf(err) != types.ErrEncodingFailure {
		t.Fatalf("Stop error kind = %q, want encoding_failure", types.KindOf(err))
	}
	if c.Artifact() != nil {
		t.Error("artifact present after encoding failure")
	}
}

func TestControllerInvalidTransitions(t *testing.T) {
	enc := newFakeEncoder()
	c := newTestController(enc, 0)
	session := &fakeSession{open: true}

	if err := c.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop while idle = %v, want ErrNotRecording", err)
	}

	if err := c.Start(&fakeSession{open: false}); !errors.Is(err, ErrSessionNotOpen) {
		t.Errorf("Start with closed session = %v, want ErrSessionNotOpen", err)
	}
	if err := c.Start(nil); !errors.Is(err, ErrSessionNotOpen) {
		t.Errorf("Start(nil) = %v, want ErrSessionNotOpen", err)
	}

	if err := c.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(session); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("Start while recording = %v, want ErrAlreadyRecording", err)
	}
}

func TestControllerNewStartInvalidatesArtifact(t *testing.T) {
	first := newFakeEncoder()
	second := newFakeEncoder()
	encoders := []*fakeEncoder{first, second}
	i := 0
	c := NewController(nil, func() Encoder {
		enc := encoders[i]
		i++
		return enc
	}, 0)
	session := &fakeSession{open: true}

	if err := c.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first.chunks <- []byte("old")
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.Artifact() == nil {
		t.Fatal("no artifact after first recording")
	}

	// Starting again drops the finished artifact immediately.
	if err := c.Start(session); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if c.Artifact() != nil {
		t.Error("stale artifact survived a new Start")
	}
	if state, _ := c.State(); state != types.RecorderRecording {
		t.Errorf("state = %v, want recording", state)
	}
}

func TestControllerAutoStop(t *testing.T) {
	enc := newFakeEncoder()
	c := newTestController(enc, 20*time.Millisecond)

	if err := c.Start(&fakeSession{open: true}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	enc.chunks <- []byte("clip")

	deadline := time.After(2 * time.Second)
	for {
		state, _ := c.State()
		if state == types.RecorderFinished {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("state = %v, auto-stop never finalized", state)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if artifact := c.Artifact(); artifact == nil || string(artifact.Bytes) != "clip" {
		t.Errorf("artifact = %+v after auto-stop", artifact)
	}
}

func TestControllerManualStopCancelsTimer(t *testing.T) {
	enc := newFakeEncoder()
	c := newTestController(enc, 30*time.Millisecond)
	session := &fakeSession{open: true}

	if err := c.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}
	enc.chunks <- []byte("x")
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Let the timer window pass: the late timer must not disturb the
	// finished state.
	time.Sleep(60 * time.Millisecond)
	if state, _ := c.State(); state != types.RecorderFinished {
		t.Errorf("state = %v after timer window, want finished", state)
	}
}

func TestControllerMidRecordingEncoderDeath(t *testing.T) {
	enc := newFakeEncoder()
	c := newTestController(enc, 0)
	session := &fakeSession{open: true}

	if err := c.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Encoder dies on its own while the controller believes it is
	// recording.
	enc.mu.Lock()
	enc.stopped = true
	close(enc.chunks)
	enc.done <- errors.New("process exited")
	enc.mu.Unlock()

	deadline := time.After(2 * time.Second)
	for {
		state, kind := c.State()
		if state == types.RecorderFailed {
			if kind != types.ErrEncodingFailure {
				t.Errorf("failure kind = %q, want encoding_failure", kind)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("state = %v, mid-recording death never surfaced", state)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if session.hasTap() {
		t.Error("tap still registered after mid-recording failure")
	}
	if err := c.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop after failure = %v, want ErrNotRecording", err)
	}
}

func TestControllerReset(t *testing.T) {
	enc := newFakeEncoder()
	c := newTestController(enc, 0)
	session := &fakeSession{open: true}

	if err := c.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}
	enc.chunks <- []byte("x")
	c.Reset()

	if state, _ := c.State(); state != types.RecorderIdle {
		t.Errorf("state = %v after reset, want idle", state)
	}
	if c.Artifact() != nil {
		t.Error("artifact survived reset")
	}
	if session.hasTap() {
		t.Error("tap still registered after reset")
	}
}
