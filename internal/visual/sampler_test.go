package visual

import (
	"math"
	"testing"

	"github.com/oszuidwest/zwfm-mictest/internal/types"
)

func TestNewSamplerDefaults(t *testing.T) {
	s := NewSampler(0, -5)
	frame := s.Waveform([]byte{128})
	if frame.Width != DefaultWidth || frame.Height != DefaultHeight {
		t.Errorf("frame dimensions = %dx%d, want defaults", frame.Width, frame.Height)
	}
}

func TestWaveformZeroAmplitudeAtMidHeight(t *testing.T) {
	s := NewSampler(100, 200)
	window := make([]byte, 50)
	for i := range window {
		window[i] = 128
	}

	frame := s.Waveform(window)
	if len(frame.Points) != 50 {
		t.Fatalf("got %d points, want 50", len(frame.Points))
	}
	for _, p := range frame.Points {
		if math.Abs(p.Y-100) > 1e-9 {
			t.Fatalf("zero-amplitude y = %v, want mid-height 100", p.Y)
		}
	}
}

func TestWaveformDecimation(t *testing.T) {
	s := NewSampler(100, 200)
	window := make([]byte, 1000)

	frame := s.Waveform(window)
	if len(frame.Points) != 100 {
		t.Errorf("got %d points for 1000 samples over 100 columns, want 100", len(frame.Points))
	}

	// X coordinates span the width linearly.
	if frame.Points[0].X != 0 {
		t.Errorf("first x = %v, want 0", frame.Points[0].X)
	}
	last := frame.Points[len(frame.Points)-1].X
	if last >= 100 || last < 98 {
		t.Errorf("last x = %v, want just under width", last)
	}
}

func TestWaveformNoUpsampling(t *testing.T) {
	s := NewSampler(640, 200)
	frame := s.Waveform(make([]byte, 100))
	if len(frame.Points) != 100 {
		t.Errorf("got %d points for 100 samples, want 100 (no interpolation)", len(frame.Points))
	}
}

func TestWaveformEmptyWindow(t *testing.T) {
	s := NewSampler(100, 200)
	frame := s.Waveform(nil)
	if len(frame.Points) != 0 {
		t.Errorf("got %d points for empty window", len(frame.Points))
	}
	if frame.Width != 100 || frame.Height != 200 {
		t.Errorf("empty frame keeps dimensions, got %dx%d", frame.Width, frame.Height)
	}
}

func TestSpectrumBarHeights(t *testing.T) {
	s := NewSampler(100, 200)
	frame := s.Spectrum([]byte{0, 128, 255})

	if len(frame.Bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(frame.Bars))
	}
	if frame.Bars[0] != 0 {
		t.Errorf("zero magnitude bar = %v, want 0", frame.Bars[0])
	}
	if math.Abs(frame.Bars[1]-float64(128)/255*200) > 1e-9 {
		t.Errorf("mid magnitude bar = %v", frame.Bars[1])
	}
	if frame.Bars[2] != 200 {
		t.Errorf("full magnitude bar = %v, want full height 200", frame.Bars[2])
	}
}

func TestFramesProducesBoth(t *testing.T) {
	s := NewSampler(100, 200)
	window := types.SampleWindow{
		TimeDomain:      make([]byte, 64),
		FrequencyDomain: make([]byte, 32),
	}
	waveform, spectrum := s.Frames(window)
	if len(waveform.Points) != 64 {
		t.Errorf("waveform points = %d, want 64", len(waveform.Points))
	}
	if len(spectrum.Bars) != 32 {
		t.Errorf("spectrum bars = %d, want 32", len(spectrum.Bars))
	}
}
