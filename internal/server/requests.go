package server

// Request types for WebSocket commands with validation tags.
// These types define the expected input for each command and use
// go-playground/validator struct tags for automatic validation.

// --- Test lifecycle ---

// TestStartRequest is the request body for test/start.
type TestStartRequest struct {
	DeviceID string `json:"device_id" validate:"omitempty,max=256"`
}

// --- Device settings ---

// DeviceSelectRequest is the request body for device/select.
type DeviceSelectRequest struct {
	DeviceID string `json:"device_id" validate:"omitempty,max=256"`
}

// --- Silence detection settings ---

// SilenceUpdateRequest is the request body for silence/update.
type SilenceUpdateRequest struct {
	ThresholdDB *float64 `json:"threshold_db" validate:"omitempty,gte=-100,lte=0"`
}

// --- Event log ---

// EventsRecentRequest is the request body for events/recent.
type EventsRecentRequest struct {
	Limit int `json:"limit" validate:"omitempty,gte=1,lte=500"`
}
