package capture

import (
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/oszuidwest/zwfm-mictest/internal/audio"
	"github.com/oszuidwest/zwfm-mictest/internal/types"
)

// Analyser is the analysis node attached to a capture stream. It keeps a
// ring of the most recent samples and serves fixed-size time-domain and
// frequency-domain windows on demand. Push runs on the backend's read
// goroutine; the window pulls run on the analysis tick, so the ring is
// the one mutex-guarded handoff point in the engine.
type Analyser struct {
	mu         sync.Mutex
	ring       []float32
	pos        int
	windowSize int

	fft     *fourier.FFT
	hann    []float64
	scratch []float64
	coeffs  []complex128
}

// NewAnalyser creates an analyser for the given window size, which must
// be a power of two.
func NewAnalyser(windowSize int) *Analyser {
	hann := make([]float64, windowSize)
	for i := range hann {
		hann[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(windowSize-1)))
	}
	return &Analyser{
		ring:       make([]float32, windowSize),
		windowSize: windowSize,
		fft:        fourier.NewFFT(windowSize),
		hann:       hann,
		scratch:    make([]float64, windowSize),
		coeffs:     make([]complex128, windowSize/2+1),
	}
}

// WindowSize returns the time-domain window length in samples.
func (a *Analyser) WindowSize() int {
	return a.windowSize
}

// Push appends captured samples to the ring, overwriting the oldest.
func (a *Analyser) Push(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos = (a.pos + 1) % len(a.ring)
	}
}

// Reset clears the ring for a new session.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.ring)
	a.pos = 0
}

// snapshotLocked copies the ring in chronological order into dst.
// Caller must hold a.mu.
func (a *Analyser) snapshotLocked(dst []float64) {
	n := len(a.ring)
	for i := 0; i < n; i++ {
		dst[i] = float64(a.ring[(a.pos+i)%n])
	}
}

// TimeDomainWindow returns the latest window as unsigned 8-bit samples,
// 128 meaning zero amplitude. A fresh slice is returned on every call.
func (a *Analyser) TimeDomainWindow() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]byte, a.windowSize)
	n := len(a.ring)
	for i := 0; i < n; i++ {
		v := float64(a.ring[(a.pos+i)%n])
		out[i] = linearToByte(v)
	}
	return out
}

// FrequencyWindow returns windowSize/2 byte magnitudes, low frequency
// first. Magnitudes are converted to dBFS and scaled between the metrics
// floor and the spectrum ceiling, matching the byte range the
// visualization consumer expects.
func (a *Analyser) FrequencyWindow() []byte {
	a.mu.Lock()
	a.snapshotLocked(a.scratch)
	a.mu.Unlock()

	for i := range a.scratch {
		a.scratch[i] *= a.hann[i]
	}
	a.fft.Coefficients(a.coeffs, a.scratch)

	out := make([]byte, a.windowSize/2)
	// Amplitude normalization: a full-scale sine concentrates half its
	// energy in one positive-frequency bin.
	norm := 2.0 / float64(a.windowSize)
	for i := range out {
		mag := cmplx.Abs(a.coeffs[i]) * norm
		out[i] = magnitudeToByte(audio.DB(mag))
	}
	return out
}

// Window produces both domains for one tick.
func (a *Analyser) Window() types.SampleWindow {
	return types.SampleWindow{
		TimeDomain:      a.TimeDomainWindow(),
		FrequencyDomain: a.FrequencyWindow(),
	}
}

// linearToByte maps linear amplitude [-1, 1] to the unsigned 8-bit scale.
func linearToByte(v float64) byte {
	b := math.Round((v + 1.0) * audio.ByteZero)
	if b < 0 {
		return 0
	}
	if b > 255 {
		return 255
	}
	return byte(b)
}

// magnitudeToByte maps a dBFS magnitude into 0-255 between the floor and
// the spectrum ceiling.
func magnitudeToByte(db float64) byte {
	scaled := (db - types.FloorDB) / (types.SpectrumCeilingDB - types.FloorDB) * 255
	if scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return byte(math.Round(scaled))
}
