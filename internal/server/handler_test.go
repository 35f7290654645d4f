package server

import (
	"encoding/json"
	"strings"
	"testing"
)

func command(t *testing.T, cmdType, data string) WSCommand {
	t.Helper()
	return WSCommand{Type: cmdType, Data: json.RawMessage(data)}
}

func drain(t *testing.T, send chan any) map[string]any {
	t.Helper()
	select {
	case msg := <-send:
		result, ok := msg.(map[string]any)
		if !ok {
			t.Fatalf("response type %T, want map", msg)
		}
		return result
	default:
		t.Fatal("no response sent")
		return nil
	}
}

func TestDecodeAndValidateAccepts(t *testing.T) {
	send := make(chan any, 1)
	var req DeviceSelectRequest
	if !DecodeAndValidate(command(t, "device/select", `{"device_id":"mic-1"}`), send, &req) {
		t.Fatal("valid request rejected")
	}
	if req.DeviceID != "mic-1" {
		t.Errorf("device id = %q", req.DeviceID)
	}
	if len(send) != 0 {
		t.Error("response sent for valid request")
	}
}

func TestDecodeAndValidateRejectsBadJSON(t *testing.T) {
	send := make(chan any, 1)
	var req DeviceSelectRequest
	if DecodeAndValidate(command(t, "device/select", `{broken`), send, &req) {
		t.Fatal("malformed JSON accepted")
	}

	result := drain(t, send)
	if result["success"] != false {
		t.Errorf("result = %+v, want failure", result)
	}
	if result["type"] != "device/select_result" {
		t.Errorf("result type = %v", result["type"])
	}
}

func TestDecodeAndValidateRejectsOutOfRange(t *testing.T) {
	send := make(chan any, 1)
	var req SilenceUpdateRequest
	if DecodeAndValidate(command(t, "silence/update", `{"threshold_db":10}`), send, &req) {
		t.Fatal("out-of-range threshold accepted")
	}
	result := drain(t, send)
	if result["success"] != false {
		t.Errorf("result = %+v, want failure", result)
	}
}

func TestDecodeAndValidateLongDeviceID(t *testing.T) {
	send := make(chan any, 1)
	var req DeviceSelectRequest
	long := strings.Repeat("x", 300)
	if DecodeAndValidate(command(t, "device/select", `{"device_id":"`+long+`"}`), send, &req) {
		t.Fatal("oversized device id accepted")
	}
}

func TestHandleCommandSendsSuccess(t *testing.T) {
	send := make(chan any, 1)
	HandleCommand(command(t, "device/select", `{"device_id":"mic-1"}`), send, func(req *DeviceSelectRequest) error {
		return nil
	})

	result := drain(t, send)
	if result["success"] != true {
		t.Errorf("result = %+v, want success", result)
	}
}
