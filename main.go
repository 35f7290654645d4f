// Package main provides a self-hosted microphone test tool: it captures
// live audio from an input device, meters level and quality in real
// time, renders waveform and spectrum frames, and records short test
// clips, all surfaced in the browser.
//
// Usage:
//
//	mictest [-config path/to/config.json]
//
// If -config is not specified, the tool looks for config.json in the
// same directory as the binary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/oszuidwest/zwfm-mictest/internal/capture"
	"github.com/oszuidwest/zwfm-mictest/internal/config"
	"github.com/oszuidwest/zwfm-mictest/internal/engine"
	"github.com/oszuidwest/zwfm-mictest/internal/eventlog"
	"github.com/oszuidwest/zwfm-mictest/internal/util"
)

// Build-time variables set via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	snap := cfg.Snapshot()

	// Check FFmpeg availability. Without it the mic test still works,
	// only recording is unavailable.
	ffmpegPath := util.ResolveFFmpegPath(snap.FFmpegPath)
	if ffmpegPath == "" {
		slog.Warn("FFmpeg not found - recording disabled", "configured_path", snap.FFmpegPath)
	} else {
		slog.Info("FFmpeg found", "path", ffmpegPath)
	}

	backend, err := capture.NewPortAudio()
	if err != nil {
		slog.Error("no audio capture API available", "error", err)
		os.Exit(1)
	}

	var events *eventlog.Logger
	if snap.HasEventLog() {
		events, err = eventlog.NewLogger(snap.EventLogPath)
		if err != nil {
			slog.Error("failed to open event log", "path", snap.EventLogPath, "error", err)
			os.Exit(1)
		}
		slog.Info("event log enabled", "path", snap.EventLogPath)
	}

	eng := engine.New(cfg, ffmpegPath, backend, events)
	srv := NewServer(cfg, eng)

	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	srv.version.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := eng.Shutdown(); err != nil {
		slog.Error("error stopping engine", "error", err)
	}
	if err := backend.Terminate(); err != nil {
		slog.Error("error terminating capture backend", "error", err)
	}

	slog.Info("shutdown complete")
}
