package types

import "errors"

// ErrorKind is a stable error taxonomy value. Every failure surfaced to
// the presentation layer maps to exactly one kind so the frontend can
// render a localizable message without parsing error text.
type ErrorKind string

// Capture error kinds.
const (
	// ErrPermissionDenied indicates the user or OS declined device access.
	ErrPermissionDenied ErrorKind = "permission_denied"
	// ErrDeviceNotFound indicates the requested device id is no longer enumerable.
	ErrDeviceNotFound ErrorKind = "device_not_found"
	// ErrDeviceBusy indicates the hardware is exclusively claimed elsewhere.
	ErrDeviceBusy ErrorKind = "device_busy"
	// ErrConstraintUnsatisfiable indicates the id/format combination cannot be honored.
	ErrConstraintUnsatisfiable ErrorKind = "constraint_unsatisfiable"
	// ErrPlatformUnsupported indicates no capture API is available at all.
	ErrPlatformUnsupported ErrorKind = "platform_unsupported"
	// ErrSessionAlreadyOpen indicates a capture session is already held.
	ErrSessionAlreadyOpen ErrorKind = "session_already_open"
)

// Recording error kinds.
const (
	// ErrRecordingUnsupported indicates no capture-encode capability exists.
	ErrRecordingUnsupported ErrorKind = "recording_unsupported"
	// ErrNoDataRecorded indicates the encoder never emitted a chunk.
	ErrNoDataRecorded ErrorKind = "no_data_recorded"
	// ErrEncodingFailure indicates the encoder failed mid-recording.
	ErrEncodingFailure ErrorKind = "encoding_failure"
)

// CaptureError is a typed capture failure carrying its taxonomy kind.
type CaptureError struct {
	Kind  ErrorKind
	Cause error
}

func (e *CaptureError) Error() string {
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Cause.Error()
	}
	return string(e.Kind)
}

func (e *CaptureError) Unwrap() error { return e.Cause }

// NewCaptureError returns a CaptureError with the given kind and cause.
func NewCaptureError(kind ErrorKind, cause error) *CaptureError {
	return &CaptureError{Kind: kind, Cause: cause}
}

// RecordingError is a typed recording failure carrying its taxonomy kind.
type RecordingError struct {
	Kind  ErrorKind
	Cause error
}

func (e *RecordingError) Error() string {
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Cause.Error()
	}
	return string(e.Kind)
}

func (e *RecordingError) Unwrap() error { return e.Cause }

// NewRecordingError returns a RecordingError with the given kind and cause.
func NewRecordingError(kind ErrorKind, cause error) *RecordingError {
	return &RecordingError{Kind: kind, Cause: cause}
}

// KindOf extracts the taxonomy kind from an error, or empty string when
// the error carries none.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	var re *RecordingError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
