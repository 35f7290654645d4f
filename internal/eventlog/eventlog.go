// Package eventlog provides unified event logging for the mic tester.
// It captures session events (opened, closed), recording events (started,
// finished, failed), and audio quality events (clipping, silence) in a
// single JSON lines file.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

// Session event types.
const (
	SessionOpened EventType = "session_opened"
	SessionClosed EventType = "session_closed"
	SessionError  EventType = "session_error"
)

// Recording event types.
const (
	RecordingStarted  EventType = "recording_started"
	RecordingFinished EventType = "recording_finished"
	RecordingFailed   EventType = "recording_failed"
)

// Audio quality event types.
const (
	ClippingDetected EventType = "clipping_detected"
	SilenceDetected  EventType = "silence_detected"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// SessionDetails contains session-specific event details.
type SessionDetails struct {
	DeviceID   string `json:"device_id,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RecordingDetails contains recording-specific event details.
type RecordingDetails struct {
	MimeType   string `json:"mime_type,omitempty"`
	TotalBytes int    `json:"total_bytes,omitempty"`
	Error      string `json:"error,omitempty"`
}

// QualityDetails contains audio quality event details.
type QualityDetails struct {
	PeakDB      float64 `json:"peak_db"`
	RMSDB       float64 `json:"rms_db"`
	ThresholdDB float64 `json:"threshold_db,omitempty"`
}

// Logger writes events to a JSON lines file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	encoder  *json.Encoder
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(filePath string) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
		encoder:  json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file. A nil Logger discards events so
// callers do not need to guard every call on whether logging is enabled.
func (l *Logger) Log(event *Event) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return l.encoder.Encode(event)
}

// LogSession logs a session lifecycle event.
func (l *Logger) LogSession(eventType EventType, deviceID string, sampleRate, channels int, errMsg string) error {
	return l.Log(&Event{
		Type: eventType,
		Details: &SessionDetails{
			DeviceID:   deviceID,
			SampleRate: sampleRate,
			Channels:   channels,
			Error:      errMsg,
		},
	})
}

// LogRecording logs a recording lifecycle event.
func (l *Logger) LogRecording(eventType EventType, mimeType string, totalBytes int, errMsg string) error {
	return l.Log(&Event{
		Type: eventType,
		Details: &RecordingDetails{
			MimeType:   mimeType,
			TotalBytes: totalBytes,
			Error:      errMsg,
		},
	})
}

// LogQuality logs an audio quality event.
func (l *Logger) LogQuality(eventType EventType, peakDB, rmsDB, thresholdDB float64) error {
	return l.Log(&Event{
		Type: eventType,
		Details: &QualityDetails{
			PeakDB:      peakDB,
			RMSDB:       rmsDB,
			ThresholdDB: thresholdDB,
		},
	})
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// MaxReadLimit is the maximum number of events that can be read at once.
const MaxReadLimit = 500

// ReadLast reads up to n events from the log file, newest first.
// Malformed lines are skipped.
func ReadLast(filePath string, n int) ([]Event, error) {
	if n > MaxReadLimit {
		n = MaxReadLimit
	}
	if n <= 0 {
		return []Event{}, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, nil
		}
		return nil, err
	}
	defer file.Close() //nolint:errcheck // Read-only operation, close error not critical

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	events := make([]Event, 0, n)
	for i := len(lines) - 1; i >= 0 && len(events) < n; i-- {
		var event Event
		if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
