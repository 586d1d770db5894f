package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/macrolink-io/macrolink/internal/capture"
	"github.com/macrolink-io/macrolink/internal/eventlog"
	"github.com/macrolink-io/macrolink/internal/version"
)

// APIServer serves the operator HTTP API and the WebSocket event stream.
type APIServer struct {
	backend Backend
	events  *eventlog.Log
	capture *capture.Session
	logger  *log.Logger

	binding string
	port    int

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
	ws       *wsHub
}

// Options configures an API server.
type Options struct {
	Backend Backend
	Events  *eventlog.Log
	Capture *capture.Session
	Logger  *log.Logger

	// Binding is the bind address. Empty binds localhost only.
	Binding string
	// Port is the HTTP port. Zero picks an ephemeral port (tests).
	Port int
}

// New creates an API server. Call Start to begin serving.
func New(opts Options) *APIServer {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[APIServer] ", log.LstdFlags)
	}
	binding := opts.Binding
	if binding == "" {
		binding = "127.0.0.1"
	}
	return &APIServer{
		backend: opts.Backend,
		events:  opts.Events,
		capture: opts.Capture,
		logger:  logger,
		binding: binding,
		port:    opts.Port,
	}
}

// Start binds the listening socket and serves in a background goroutine.
func (s *APIServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpSrv != nil {
		return fmt.Errorf("server: already started")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.binding, s.port))
	if err != nil {
		return fmt.Errorf("server: bind %s:%d: %w", s.binding, s.port, err)
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port

	s.ws = newWSHub(s.events, s.logger)
	s.httpSrv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("serve: %v", err)
		}
	}()

	s.logger.Printf("Listening on %s", ln.Addr())
	return nil
}

// Port returns the bound HTTP port. Valid after Start.
func (s *APIServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Shutdown drains in-flight requests and closes WebSocket clients.
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	hub := s.ws
	s.httpSrv = nil
	s.mu.Unlock()

	if hub != nil {
		hub.close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *APIServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ws.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/automators", s.handleAutomators)
	mux.HandleFunc("/api/automators/", s.handleAutomatorSubroutes)
	mux.HandleFunc("/api/automator/test", s.handleAutomatorTest)
	mux.HandleFunc("/api/automator/refresh", s.handleAutomatorRefresh)
	mux.HandleFunc("/api/automator/items", s.handleAutomatorItems)
	mux.HandleFunc("/api/automator/trigger/", s.handleManualTrigger)
	mux.HandleFunc("/tcp/capture/start", s.handleCaptureStart)
	mux.HandleFunc("/tcp/capture/status", s.handleCaptureStatus)
	mux.HandleFunc("/tcp/capture/cancel", s.handleCaptureCancel)
	mux.HandleFunc("/config/export", s.handleConfigExport)
	mux.HandleFunc("/config/import", s.handleConfigImport)
	mux.HandleFunc("/settings/json", s.handleSettingsGet)
	mux.HandleFunc("/settings", s.handleSettingsPost)
	return mux
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}
