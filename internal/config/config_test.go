package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/oszuidwest/zwfm-mictest/internal/types"
)

func testConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := testConfigPath(t)
	cfg := New(path)

	if err := cfg.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	snap := cfg.Snapshot()
	if snap.WebPort != DefaultWebPort {
		t.Errorf("port = %d, want %d", snap.WebPort, DefaultWebPort)
	}
	if snap.SampleRate != types.DefaultSampleRate {
		t.Errorf("sample rate = %d", snap.SampleRate)
	}
	if snap.WindowSize != types.DefaultWindowSize {
		t.Errorf("window size = %d", snap.WindowSize)
	}
	if snap.SilenceThreshold != types.SilenceThresholdDB {
		t.Errorf("threshold = %v", snap.SilenceThreshold)
	}
	if snap.RecordingMaxDurationSeconds != DefaultRecordingMaxDurationSeconds {
		t.Errorf("max duration = %d", snap.RecordingMaxDurationSeconds)
	}
}

func TestLoadExistingFile(t *testing.T) {
	path := testConfigPath(t)
	content := map[string]any{
		"system": map[string]any{"port": 9090},
		"audio": map[string]any{
			"input":        "usb-mic",
			"threshold_db": -40.0,
		},
		"event_log": map[string]any{"path": "/tmp/mictest.jsonl"},
	}
	data, err := json.Marshal(content)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := New(path)
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	snap := cfg.Snapshot()
	if snap.WebPort != 9090 {
		t.Errorf("port = %d, want 9090", snap.WebPort)
	}
	if snap.AudioInput != "usb-mic" {
		t.Errorf("input = %q", snap.AudioInput)
	}
	if snap.SilenceThreshold != -40 {
		t.Errorf("threshold = %v, want -40", snap.SilenceThreshold)
	}
	// Unspecified fields fall back to defaults.
	if snap.WindowSize != types.DefaultWindowSize {
		t.Errorf("window size = %d, want default", snap.WindowSize)
	}
	if !snap.HasEventLog() {
		t.Error("event log path not loaded")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", `{"system":{"port":70000}}`},
		{"window not power of two", `{"audio":{"window_size":1000}}`},
		{"window too small", `{"audio":{"window_size":128}}`},
		{"positive threshold", `{"audio":{"threshold_db":5}}`},
		{"negative duration", `{"recording":{"max_duration_seconds":-1}}`},
		{"malformed json", `{not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testConfigPath(t)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			cfg := New(path)
			if err := cfg.Load(); err == nil {
				t.Error("Load accepted invalid config")
			}
		})
	}
}

func TestSettersPersist(t *testing.T) {
	path := testConfigPath(t)
	cfg := New(path)
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := cfg.SetAudioInput("usb-mic"); err != nil {
		t.Fatalf("SetAudioInput: %v", err)
	}
	if err := cfg.SetSilenceThreshold(-60); err != nil {
		t.Fatalf("SetSilenceThreshold: %v", err)
	}

	// A fresh load must observe the persisted values.
	reloaded := New(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.AudioInput(); got != "usb-mic" {
		t.Errorf("input = %q after reload", got)
	}
	if got := reloaded.Snapshot().SilenceThreshold; got != -60 {
		t.Errorf("threshold = %v after reload, want -60", got)
	}
}
