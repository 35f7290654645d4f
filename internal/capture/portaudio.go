package capture

import (
	"errors"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/oszuidwest/zwfm-mictest/internal/types"
)

// framesPerBuffer is the device read size. Small enough that the ring
// buffer stays fresh between analysis ticks.
const framesPerBuffer = 512

// PortAudio is the production capture backend.
type PortAudio struct{}

// NewPortAudio initializes the PortAudio runtime. A failure here means no
// capture API is available on this host at all.
func NewPortAudio() (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, types.NewCaptureError(types.ErrPlatformUnsupported, err)
	}
	return &PortAudio{}, nil
}

// Terminate releases the PortAudio runtime.
func (p *PortAudio) Terminate() error {
	return portaudio.Terminate()
}

// Devices enumerates input-capable devices.
func (p *PortAudio) Devices() ([]types.AudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, mapPortAudioError(err)
	}

	result := make([]types.AudioDevice, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, types.AudioDevice{ID: d.Name, Label: d.Name})
		}
	}
	return result, nil
}

// OpenStream claims the device and starts delivering mono float32 samples
// to the callback from a dedicated read goroutine.
func (p *PortAudio) OpenStream(deviceID string, sampleRate int, deliver func([]float32)) (Stream, error) {
	device, err := p.findDevice(deviceID)
	if err != nil {
		return nil, err
	}

	buffer := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: types.DefaultChannels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: len(buffer),
	}, buffer)
	if err != nil {
		return nil, mapPortAudioError(err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, mapPortAudioError(err)
	}

	ps := &portAudioStream{
		stream: stream,
		info: StreamInfo{
			SampleRate:   sampleRate,
			ChannelCount: types.DefaultChannels,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(ps.done)
		for {
			select {
			case <-ps.stop:
				return
			default:
			}
			if err := stream.Read(); err != nil {
				return
			}
			samples := make([]float32, len(buffer))
			copy(samples, buffer)
			deliver(samples)
		}
	}()

	return ps, nil
}

// findDevice resolves a device id to a PortAudio device, "" meaning the
// system default input.
func (p *PortAudio) findDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, mapPortAudioError(err)
		}
		if device == nil {
			return nil, types.NewCaptureError(types.ErrDeviceNotFound, ErrNoAudioDevice)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, mapPortAudioError(err)
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, types.NewCaptureError(types.ErrDeviceNotFound, ErrNoAudioDevice)
}

// portAudioStream is an open PortAudio input stream.
type portAudioStream struct {
	stream *portaudio.Stream
	info   StreamInfo

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func (s *portAudioStream) Info() StreamInfo {
	return s.info
}

func (s *portAudioStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		err = s.stream.Stop()
		<-s.done
		if closeErr := s.stream.Close(); err == nil {
			err = closeErr
		}
	})
	return err
}

// mapPortAudioError translates a PortAudio failure into the stable
// capture error taxonomy.
func mapPortAudioError(err error) error {
	if err == nil {
		return nil
	}

	var pe portaudio.Error
	if errors.As(err, &pe) {
		switch pe {
		case portaudio.InvalidDevice:
			return types.NewCaptureError(types.ErrDeviceNotFound, err)
		case portaudio.DeviceUnavailable:
			return types.NewCaptureError(types.ErrDeviceBusy, err)
		case portaudio.InvalidSampleRate, portaudio.InvalidChannelCount,
			portaudio.SampleFormatNotSupported, portaudio.BadIODeviceCombination:
			return types.NewCaptureError(types.ErrConstraintUnsatisfiable, err)
		case portaudio.NotInitialized, portaudio.HostApiNotFound, portaudio.InvalidHostApi:
			return types.NewCaptureError(types.ErrPlatformUnsupported, err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "access denied"):
		return types.NewCaptureError(types.ErrPermissionDenied, err)
	case strings.Contains(msg, "busy") || strings.Contains(msg, "in use"):
		return types.NewCaptureError(types.ErrDeviceBusy, err)
	default:
		return types.NewCaptureError(types.ErrConstraintUnsatisfiable, err)
	}
}
