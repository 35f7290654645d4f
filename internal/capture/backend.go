// Package capture owns the live audio input device: session lifecycle,
// device enumeration, and the analysis node that serves fixed-size
// sample windows to consumers.
package capture

import (
	"errors"

	"github.com/oszuidwest/zwfm-mictest/internal/types"
)

// ErrNoAudioDevice is returned when no audio input device is available.
var ErrNoAudioDevice = errors.New("no audio input device found")

// StreamInfo is the fixed metadata of an open device stream.
type StreamInfo struct {
	SampleRate   int
	ChannelCount int
}

// Stream is an open device stream. Samples are delivered to the callback
// passed at open time until Close, which must be safe to call more than
// once.
type Stream interface {
	Info() StreamInfo
	Close() error
}

// Backend abstracts the platform capture API so the session logic can be
// tested against a fake. Open errors must carry a types.CaptureError
// taxonomy kind.
type Backend interface {
	// Devices enumerates available input devices. May return partial
	// results alongside an error (degraded enumeration).
	Devices() ([]types.AudioDevice, error)

	// OpenStream requests exclusive access to the device. deviceID ""
	// selects the system default. deliver is invoked from the backend's
	// read goroutine with mono float32 samples in [-1, 1].
	OpenStream(deviceID string, sampleRate int, deliver func([]float32)) (Stream, error)
}

// Devices enumerates input devices with the documented degraded path:
// after a permission failure the caller still gets an unlabeled default
// entry rather than nothing.
func Devices(backend Backend) []types.AudioDevice {
	devices, err := backend.Devices()
	if err != nil {
		if types.KindOf(err) == types.ErrPermissionDenied {
			unlabeled := make([]types.AudioDevice, 0, len(devices)+1)
			for _, d := range devices {
				unlabeled = append(unlabeled, types.AudioDevice{ID: d.ID})
			}
			if len(unlabeled) == 0 {
				unlabeled = append(unlabeled, types.AudioDevice{ID: ""})
			}
			return unlabeled
		}
		return nil
	}
	return devices
}
