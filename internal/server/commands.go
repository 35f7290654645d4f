package server

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/oszuidwest/zwfm-mictest/internal/config"
	"github.com/oszuidwest/zwfm-mictest/internal/engine"
	"github.com/oszuidwest/zwfm-mictest/internal/eventlog"
)

// DefaultEventLimit is how many events events/recent returns when the
// client does not ask for a specific count.
const DefaultEventLimit = 50

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	cfg    *config.Config
	engine *engine.Engine
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(cfg *config.Config, eng *engine.Engine) *CommandHandler {
	return &CommandHandler{
		cfg:    cfg,
		engine: eng,
	}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g., "test/start",
// "recording/stop").
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	parts := strings.SplitN(cmd.Type, "/", 2)
	namespace := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch namespace {
	case "test":
		h.handleTest(action, cmd, send)
	case "device":
		h.handleDevice(action, cmd, send)
	case "recording":
		h.handleRecording(action, cmd, send)
	case "silence":
		h.handleSilence(action, cmd, send)
	case "events":
		h.handleEvents(action, cmd, send)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// handleTest routes test/* commands.
func (h *CommandHandler) handleTest(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "start":
		HandleCommand(cmd, send, func(req *TestStartRequest) error {
			_, err := h.engine.StartTest(req.DeviceID)
			return err
		})
	case "stop":
		if err := h.engine.StopTest(); err != nil {
			SendError(send, cmd.Type, err)
			return
		}
		SendSuccess(send, cmd.Type, nil)
	default:
		slog.Warn("unknown test action", "action", action)
	}
}

// handleDevice routes device/* commands.
func (h *CommandHandler) handleDevice(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "select":
		HandleCommand(cmd, send, func(req *DeviceSelectRequest) error {
			return h.engine.SelectDevice(req.DeviceID)
		})
	case "list":
		SendSuccess(send, cmd.Type, h.engine.Devices())
	default:
		slog.Warn("unknown device action", "action", action)
	}
}

// handleRecording routes recording/* commands.
func (h *CommandHandler) handleRecording(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "start":
		if err := h.engine.StartRecording(); err != nil {
			SendError(send, cmd.Type, err)
			return
		}
		SendSuccess(send, cmd.Type, nil)
	case "stop":
		if err := h.engine.StopRecording(); err != nil {
			SendError(send, cmd.Type, err)
			return
		}
		artifact := h.engine.Artifact()
		SendSuccess(send, cmd.Type, artifact)
	default:
		slog.Warn("unknown recording action", "action", action)
	}
}

// handleSilence routes silence/* commands.
func (h *CommandHandler) handleSilence(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		HandleCommand(cmd, send, func(req *SilenceUpdateRequest) error {
			if req.ThresholdDB == nil {
				return nil
			}
			return h.engine.SetSilenceThreshold(*req.ThresholdDB)
		})
	default:
		slog.Warn("unknown silence action", "action", action)
	}
}

// handleEvents routes events/* commands.
func (h *CommandHandler) handleEvents(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "recent":
		HandleEvents(cmd, send, h.cfg.Snapshot().EventLogPath)
	default:
		slog.Warn("unknown events action", "action", action)
	}
}

// HandleEvents reads recent event log entries and sends them back.
func HandleEvents(cmd WSCommand, send chan<- any, logPath string) {
	var req EventsRecentRequest
	if len(cmd.Data) > 0 && !DecodeAndValidate(cmd, send, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = DefaultEventLimit
	}

	events, err := eventlog.ReadLast(logPath, req.Limit)
	if err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, events)
}
