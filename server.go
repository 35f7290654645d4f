package main

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/oszuidwest/zwfm-mictest/internal/config"
	"github.com/oszuidwest/zwfm-mictest/internal/engine"
	"github.com/oszuidwest/zwfm-mictest/internal/server"
	"github.com/oszuidwest/zwfm-mictest/internal/types"
)

// Push intervals for the WebSocket event loop.
const (
	metricsPushInterval = 50 * time.Millisecond   // 20 fps for meters and frames
	statusPushInterval  = 3000 * time.Millisecond // Full status refresh
)

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

type indexData struct {
	Version string
	Year    int
}

// Server is an HTTP server that provides the web interface for the mic
// tester.
type Server struct {
	config   *config.Config
	engine   *engine.Engine
	commands *server.CommandHandler
	version  *VersionChecker
}

// NewServer returns a new Server wired to the given engine.
func NewServer(cfg *config.Config, eng *engine.Engine) *Server {
	return &Server{
		config:   cfg,
		engine:   eng,
		commands: server.NewCommandHandler(cfg, eng),
		version:  NewVersionChecker(),
	}
}

// handleWebSocket handles bidirectional WebSocket communication for
// real-time updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Only the writer goroutine writes to the connection.
	send := make(chan any, 16)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	go s.runWebSocketWriter(conn, send)
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate)
}

// runWebSocketWriter writes messages from the send channel to the connection.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop pushes periodic metrics and status updates.
func (s *Server) runWebSocketEventLoop(send chan any, done, statusUpdate <-chan struct{}) {
	metricsTicker := time.NewTicker(metricsPushInterval)
	statusTicker := time.NewTicker(statusPushInterval)
	defer metricsTicker.Stop()
	defer statusTicker.Stop()

	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	if !trySend(s.buildWSStatus()) {
		close(send)
		return
	}

	for {
		select {
		case <-done:
			close(send)
			return
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				close(send)
				return
			}
		case <-metricsTicker.C:
			if !s.engine.IsRunning() {
				continue
			}
			metrics, waveform, spectrum := s.engine.Metrics()
			msg := types.WSMetricsResponse{
				Type:     "metrics",
				Metrics:  metrics,
				Waveform: waveform,
				Spectrum: spectrum,
			}
			if !trySend(msg) {
				close(send)
				return
			}
		case <-statusTicker.C:
			if !trySend(s.buildWSStatus()) {
				close(send)
				return
			}
		}
	}
}

// buildWSStatus returns the current WebSocket status response.
func (s *Server) buildWSStatus() types.WSStatusResponse {
	status := s.engine.Status()
	status.Version = s.version.Info()
	return status
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/recording", s.handleDownloadRecording)
	mux.HandleFunc("/", s.handleStatic)

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// handleDownloadRecording serves the finalized recording for playback or
// download. The artifact lives in memory only; it disappears when a new
// recording starts.
func (s *Server) handleDownloadRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	artifact := s.engine.Artifact()
	if artifact == nil {
		http.Error(w, "No recording available", http.StatusNotFound)
		return
	}

	mime := artifact.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(artifact.TotalBytes))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(artifact.Bytes); err != nil {
		slog.Error("failed to write recording", "error", err)
	}
}

// staticFile is an embedded static file with content type and data.
type staticFile struct {
	contentType string
	content     string
	name        string
}

// staticFiles is a map from URL paths to static file definitions.
var staticFiles = map[string]staticFile{
	"/style.css": {
		contentType: "text/css",
		content:     styleCSS,
		name:        "style.css",
	},
	"/app.js": {
		contentType: "application/javascript",
		content:     appJS,
		name:        "app.js",
	},
}

// handleStatic handles requests for embedded static web interface files.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	if path == "/index.html" {
		w.Header().Set("Content-Type", "text/html")
		if err := indexTmpl.Execute(w, indexData{
			Version: Version,
			Year:    time.Now().Year(),
		}); err != nil {
			slog.Error("failed to write index.html", "error", err)
		}
		return
	}

	if file, ok := staticFiles[path]; ok {
		w.Header().Set("Content-Type", file.contentType)
		if _, err := w.Write([]byte(file.content)); err != nil {
			slog.Error("failed to write static file", "file", file.name, "error", err)
		}
		return
	}

	http.NotFound(w, r)
}

// Start begins the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.Snapshot().WebPort)
	slog.Info("starting web server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
