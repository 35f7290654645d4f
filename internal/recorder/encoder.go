package recorder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/oszuidwest/zwfm-mictest/internal/types"
	"github.com/oszuidwest/zwfm-mictest/internal/util"
)

// Encoder turns live PCM samples into encoded container chunks. Chunks
// arrive asynchronously on Chunks until the channel closes; the terminal
// encode result is delivered once on Done after Stop or failure.
type Encoder interface {
	Start(c Candidate) error
	Write(samples []float32)
	Chunks() <-chan []byte
	Stop() error
	Done() <-chan error
	MimeType() string
}

// chunkSize is the encoded read size from the encoder's stdout.
const chunkSize = 32 * 1024

// encoderPreset holds the FFmpeg arguments for one container format.
type encoderPreset struct {
	codecArgs []string
	format    string
	mime      string
}

// encoderPresets maps container names to FFmpeg configuration.
var encoderPresets = map[string]encoderPreset{
	"webm": {[]string{"libopus", "-b:a", "128k"}, "webm", "audio/webm"},
	"ogg":  {[]string{"libopus", "-b:a", "128k"}, "ogg", "audio/ogg"},
}

// defaultContainer is what the FFmpeg host picks for the platform
// default candidate. Piped output always needs an explicit format.
const defaultContainer = "webm"

// FFmpegEncoder encodes PCM through an FFmpeg subprocess: samples in on
// stdin, container chunks out on stdout.
type FFmpegEncoder struct {
	ffmpegPath string
	sampleRate int

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	mime   string

	chunks chan []byte
	done   chan error
}

// NewFFmpegEncoder creates an encoder using the given FFmpeg binary.
func NewFFmpegEncoder(ffmpegPath string, sampleRate int) *FFmpegEncoder {
	return &FFmpegEncoder{
		ffmpegPath: ffmpegPath,
		sampleRate: sampleRate,
		chunks:     make(chan []byte, 16),
		done:       make(chan error, 1),
	}
}

// Start launches the FFmpeg subprocess for the negotiated candidate.
func (e *FFmpegEncoder) Start(c Candidate) error {
	if e.ffmpegPath == "" {
		return fmt.Errorf("ffmpeg not available")
	}

	container := c.Container
	if container == "" {
		container = defaultContainer
	}
	preset, ok := encoderPresets[container]
	if !ok {
		return fmt.Errorf("unknown container format %q", container)
	}

	args := []string{
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", e.sampleRate),
		"-ac", fmt.Sprintf("%d", types.DefaultChannels),
		"-i", "pipe:0",
		"-c:a",
	}
	args = append(args, preset.codecArgs...)
	args = append(args,
		"-f", preset.format,
		"-hide_banner",
		"-loglevel", "warning",
		"pipe:1",
	)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Cancel = func() error {
		return util.GracefulSignal(cmd.Process)
	}
	cmd.WaitDelay = types.ShutdownTimeout

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		if closeErr := stdinPipe.Close(); closeErr != nil {
			slog.Warn("failed to close encoder stdin pipe", "error", closeErr)
		}
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	e.mu.Lock()
	e.cmd = cmd
	e.cancel = cancel
	e.stdin = stdinPipe
	e.stderr = &stderr
	e.mime = preset.mime
	e.mu.Unlock()

	go e.readChunks(stdoutPipe)

	slog.Info("recording encoder started", "format", preset.format, "mime", preset.mime)
	return nil
}

// readChunks streams encoded output until EOF, then delivers the
// terminal result.
func (e *FFmpegEncoder) readChunks(stdout io.Reader) {
	reader := bufio.NewReader(stdout)
	buf := make([]byte, chunkSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			e.chunks <- chunk
		}
		if err != nil {
			break
		}
	}
	close(e.chunks)

	err := e.cmd.Wait()
	if err != nil {
		e.mu.Lock()
		detail := util.ExtractLastError(e.stderr.String())
		e.mu.Unlock()
		if detail != "" {
			err = fmt.Errorf("%s", detail)
		}
	}
	e.done <- err
}

// Write feeds captured samples to the encoder as signed 16-bit PCM.
// Write errors mark the encoder failed; the terminal result carries the
// detail.
func (e *FFmpegEncoder) Write(samples []float32) {
	e.mu.Lock()
	stdin := e.stdin
	e.mu.Unlock()
	if stdin == nil {
		return
	}

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))
	}

	if _, err := stdin.Write(pcm); err != nil {
		slog.Warn("encoder write failed", "error", err)
		e.mu.Lock()
		e.stdin = nil
		e.mu.Unlock()
	}
}

// Chunks delivers encoded chunks until the encoder finalizes.
func (e *FFmpegEncoder) Chunks() <-chan []byte {
	return e.chunks
}

// Stop requests finalization by closing the encoder's input. FFmpeg
// flushes the container and exits; the result arrives on Done.
func (e *FFmpegEncoder) Stop() error {
	e.mu.Lock()
	stdin := e.stdin
	e.stdin = nil
	e.mu.Unlock()

	if stdin != nil {
		return stdin.Close()
	}
	return nil
}

// Done delivers the terminal encode result.
func (e *FFmpegEncoder) Done() <-chan error {
	return e.done
}

// MimeType reports the negotiated container MIME type once started.
func (e *FFmpegEncoder) MimeType() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mime
}

// FFmpegSupport builds the host capability predicate by querying the
// FFmpeg binary for its available muxers and encoders. Returns nil when
// no binary is available, which makes negotiation fall through to the
// platform default attempt.
func FFmpegSupport(ffmpegPath string) SupportFunc {
	if ffmpegPath == "" {
		return nil
	}

	muxers := queryFFmpegList(ffmpegPath, "-muxers")
	encoders := queryFFmpegList(ffmpegPath, "-encoders")
	if muxers == nil {
		return nil
	}

	return func(c Candidate) bool {
		container := c.Container
		if container == "" {
			container = defaultContainer
		}
		if !muxers[container] {
			return false
		}
		if c.Codec == "opus" && !encoders["libopus"] {
			return false
		}
		return true
	}
}

// queryFFmpegList parses one of FFmpeg's capability listings into a name
// set.
func queryFFmpegList(ffmpegPath, flag string) map[string]bool {
	out, err := exec.Command(ffmpegPath, "-hide_banner", flag).Output()
	if err != nil {
		return nil
	}

	names := make(map[string]bool)
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		// Listing lines start with a capability flag column, e.g.
		// " E webm" or " A....D libopus".
		if len(fields) < 2 {
			continue
		}
		for _, name := range strings.Split(fields[1], ",") {
			names[name] = true
		}
	}
	return names
}
