package capture

import (
	"math"
	"testing"
)

func TestAnalyserEmptyRingIsSilence(t *testing.T) {
	a := NewAnalyser(256)
	window := a.TimeDomainWindow()
	if len(window) != 256 {
		t.Fatalf("window length = %d, want 256", len(window))
	}
	for i, b := range window {
		if b != 128 {
			t.Fatalf("sample %d = %d, want 128 (zero amplitude)", i, b)
		}
	}
}

func TestAnalyserPushWrapsRing(t *testing.T) {
	a := NewAnalyser(4)
	a.Push([]float32{0.1, 0.2, 0.3, 0.4})
	a.Push([]float32{0.5, 0.6})

	// Ring now holds 0.3, 0.4, 0.5, 0.6 in chronological order.
	window := a.TimeDomainWindow()
	want := []float32{0.3, 0.4, 0.5, 0.6}
	for i, v := range want {
		expected := byte(math.Round((float64(v) + 1) * 128))
		if window[i] != expected {
			t.Errorf("window[%d] = %d, want %d", i, window[i], expected)
		}
	}
}

func TestAnalyserReset(t *testing.T) {
	a := NewAnalyser(8)
	a.Push([]float32{1, 1, 1, 1, 1, 1, 1, 1})
	a.Reset()
	for i, b := range a.TimeDomainWindow() {
		if b != 128 {
			t.Fatalf("sample %d = %d after reset, want 128", i, b)
		}
	}
}

func TestAnalyserFrequencyWindowLength(t *testing.T) {
	a := NewAnalyser(256)
	spectrum := a.FrequencyWindow()
	if len(spectrum) != 128 {
		t.Fatalf("spectrum length = %d, want 128", len(spectrum))
	}
}

func TestAnalyserFrequencyWindowSinePeak(t *testing.T) {
	const n = 256
	const bin = 16

	a := NewAnalyser(n)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * float64(bin) * float64(i) / n))
	}
	a.Push(samples)

	spectrum := a.FrequencyWindow()

	// The driven bin must dominate the spectrum.
	maxIdx := 0
	for i, m := range spectrum {
		if m > spectrum[maxIdx] {
			maxIdx = i
		}
	}
	if maxIdx != bin {
		t.Errorf("spectrum peak at bin %d, want %d", maxIdx, bin)
	}
	if spectrum[bin] < 200 {
		t.Errorf("full-scale sine magnitude = %d, expected near ceiling", spectrum[bin])
	}
	// A far-away bin should be near the floor.
	if spectrum[100] > 50 {
		t.Errorf("idle bin magnitude = %d, expected near floor", spectrum[100])
	}
}

func TestAnalyserSilentSpectrumAtFloor(t *testing.T) {
	a := NewAnalyser(256)
	for i, m := range a.FrequencyWindow() {
		if m != 0 {
			t.Fatalf("bin %d = %d for silence, want 0", i, m)
		}
	}
}

func TestLinearToByteClamps(t *testing.T) {
	tests := []struct {
		v    float64
		want byte
	}{
		{-1.5, 0},
		{-1, 0},
		{0, 128},
		{0.5, 192},
		{1.5, 255},
	}
	for _, tt := range tests {
		if got := linearToByte(tt.v); got != tt.want {
			t.Errorf("linearToByte(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}
