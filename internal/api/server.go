package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bryanchriswhite/framerelay/internal/config"
	"github.com/bryanchriswhite/framerelay/internal/logger"
	"github.com/bryanchriswhite/framerelay/internal/sink"
	"github.com/bryanchriswhite/framerelay/internal/transport"
)

// Server exposes the output transport over HTTP: health and stats
// endpoints, an interruption trigger, and the websocket sink's stream.
type Server struct {
	router    *mux.Router
	output    *transport.Output
	configMgr *config.Manager
	wsSink    *sink.WebSocketSink
}

// NewServer creates a new API server
func NewServer(output *transport.Output, configMgr *config.Manager, wsSink *sink.WebSocketSink) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		output:    output,
		configMgr: configMgr,
		wsSink:    wsSink,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/interrupt", s.handleInterrupt).Methods("POST")

	if s.wsSink != nil {
		s.router.HandleFunc("/stream", s.wsSink.Handler())
	}
}

// Router returns the configured router, mainly for tests
func (s *Server) Router() http.Handler {
	return s.enableCORS(s.router)
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("Starting API server")
	return http.ListenAndServe(addr, s.Router())
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HTTP Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"running": s.output.Running(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.output.Stats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Running     bool `json:"running"`
		Interrupted bool `json:"interrupted"`
		Clients     int  `json:"stream_clients"`
		transport.StatsSnapshot
	}{
		Running:       s.output.Running(),
		Interrupted:   s.output.Interrupted(),
		Clients:       s.clientCount(),
		StatsSnapshot: stats,
	})
}

func (s *Server) clientCount() int {
	if s.wsSink == nil {
		return 0
	}
	return s.wsSink.ClientCount()
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.configMgr.Get()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

func (s *Server) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	switch req.Action {
	case "start":
		err = s.output.Interrupt(true)
	case "stop":
		err = s.output.Interrupt(false)
	default:
		http.Error(w, fmt.Sprintf("unknown action %q", req.Action), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "success",
		"interrupted": s.output.Interrupted(),
	})
}
