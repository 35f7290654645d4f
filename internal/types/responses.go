package types

// WSStatusResponse is sent to clients with full engine status.
type WSStatusResponse struct {
	Type             string        `json:"type"`                     // Message type identifier
	FFmpegAvailable  bool          `json:"ffmpeg_available"`         // FFmpeg binary is available for recording
	SessionState     SessionState  `json:"session_state"`            // Capture session state
	Session          *SessionInfo  `json:"session,omitempty"`        // Stream metadata while open
	LoopState        LoopState     `json:"loop_state"`               // Analysis loop state
	RecorderState    RecorderState `json:"recorder_state"`           // Recording controller state
	RecorderError    ErrorKind     `json:"recorder_error,omitzero"`  // Terminal recording failure kind
	RecordingMime    string        `json:"recording_mime,omitzero"`  // Negotiated artifact MIME type
	RecordingBytes   int           `json:"recording_bytes,omitzero"` // Finalized artifact size
	Devices          []AudioDevice `json:"devices"`                  // Available input devices
	SelectedDevice   string        `json:"selected_device"`          // Configured device id ("" = default)
	SilenceThreshold float64       `json:"silence_threshold"`        // Silence threshold in dB
	Version          VersionInfo   `json:"version"`                  // Version information
}

// WSMetricsResponse is sent to clients once per published tick.
type WSMetricsResponse struct {
	Type     string          `json:"type"`     // Message type identifier
	Metrics  MetricsSnapshot `json:"metrics"`  // Per-window metrics
	Waveform WaveformFrame   `json:"waveform"` // Renderable time-domain frame
	Spectrum SpectrumFrame   `json:"spectrum"` // Renderable frequency-domain frame
}

// WSErrorResponse reports a typed failure for a client command.
type WSErrorResponse struct {
	Type    string    `json:"type"`            // Message type identifier
	Command string    `json:"command"`         // Originating command type
	Kind    ErrorKind `json:"kind,omitzero"`   // Taxonomy value, when known
	Error   string    `json:"error,omitempty"` // Free-form detail for logs
}

// VersionInfo contains version comparison data.
type VersionInfo struct {
	Current     string `json:"current"`              // Current version
	Latest      string `json:"latest,omitempty"`     // Latest available version
	UpdateAvail bool   `json:"update_available"`     // Update is available
	Commit      string `json:"commit,omitempty"`     // Git commit hash
	BuildTime   string `json:"build_time,omitempty"` // Build timestamp
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`   // JSON path to the field
	Message string `json:"message"` // Human-readable error message
	Value   any    `json:"value"`   // The invalid value that was provided
}

// ValidationError collects multiple field validation errors.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationError creates a new empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Errors: make([]FieldError, 0)}
}

// Add adds a field error to the collection.
func (v *ValidationError) Add(field, message string, value any) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message, Value: value})
}
