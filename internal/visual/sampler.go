// Package visual converts sample windows into renderable waveform and
// spectrum frames. Bar widths, spacing, and colors are the consumer's
// concern; this package only fixes coordinates and ordering.
package visual

import (
	"github.com/oszuidwest/zwfm-mictest/internal/audio"
	"github.com/oszuidwest/zwfm-mictest/internal/types"
)

// Default output dimensions, in consumer pixels.
const (
	DefaultWidth  = 640
	DefaultHeight = 200
)

// Sampler is a pure transform from sample windows to frames sized for a
// fixed output area.
type Sampler struct {
	width  int
	height int
}

// NewSampler creates a sampler for the given output dimensions.
func NewSampler(width, height int) *Sampler {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Sampler{width: width, height: height}
}

// Waveform renders the time-domain window as (x, y) points. X is linearly
// spaced across the output width; y is the normalized amplitude b/128
// scaled to half the height, so 128 (zero amplitude) lands at mid-height.
// When the window holds more samples than pixel columns, it is decimated
// to one point per column.
func (s *Sampler) Waveform(timeDomain []byte) types.WaveformFrame {
	n := len(timeDomain)
	frame := types.WaveformFrame{Width: s.width, Height: s.height}
	if n == 0 {
		return frame
	}

	step := 1
	if n > s.width {
		step = n / s.width
	}
	count := n / step

	points := make([]types.WaveformPoint, 0, count)
	dx := float64(s.width) / float64(count)
	for i := 0; i < count; i++ {
		v := float64(timeDomain[i*step]) / audio.ByteZero
		points = append(points, types.WaveformPoint{
			X: float64(i) * dx,
			Y: v * float64(s.height) / 2,
		})
	}
	frame.Points = points
	return frame
}

// Spectrum renders the frequency-domain window as bar heights, one per
// bin, ordered low frequency first. Heights are magnitude/255 of the
// output height.
func (s *Sampler) Spectrum(frequencyDomain []byte) types.SpectrumFrame {
	bars := make([]float64, len(frequencyDomain))
	for i, m := range frequencyDomain {
		bars[i] = float64(m) / 255 * float64(s.height)
	}
	return types.SpectrumFrame{Height: s.height, Bars: bars}
}

// Frames produces both frames for one tick.
func (s *Sampler) Frames(window types.SampleWindow) (types.WaveformFrame, types.SpectrumFrame) {
	return s.Waveform(window.TimeDomain), s.Spectrum(window.FrequencyDomain)
}
