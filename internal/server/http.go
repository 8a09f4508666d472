package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saintzema/ai-voice-call-agent/internal/config"
	"github.com/saintzema/ai-voice-call-agent/internal/metrics"
	"github.com/saintzema/ai-voice-call-agent/internal/session"
	"github.com/saintzema/ai-voice-call-agent/internal/twilio"
)

// Server hosts the media stream, the telephony webhooks and the
// monitoring API on one listener.
type Server struct {
	server       *http.Server
	logger       *slog.Logger
	config       *config.Config
	registry     *session.Registry
	twilioClient *twilio.Client
	metrics      *metrics.Metrics

	startTime time.Time
}

// New creates the HTTP server with all routes configured.
func New(cfg *config.Config, registry *session.Registry, twilioClient *twilio.Client,
	m *metrics.Metrics, logger *slog.Logger) *Server {

	s := &Server{
		logger:       logger,
		config:       cfg,
		registry:     registry,
		twilioClient: twilioClient,
		metrics:      m,
		startTime:    time.Now(),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Telephony endpoints
	mux.HandleFunc("/media", s.handleMedia)
	mux.HandleFunc("/voice", s.withMetrics("/voice", s.handleVoice))
	mux.HandleFunc("/status", s.withMetrics("/status", s.handleStatus))

	// Call monitoring endpoints
	mux.HandleFunc("/calls", s.withMetrics("/calls", s.handleCalls))
	mux.HandleFunc("/calls/", s.withMetrics("/calls/{id}", s.handleCallDetail))

	// Service endpoints
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("/config", s.withMetrics("/config", s.handleConfig))
	mux.HandleFunc("/stats", s.withMetrics("/stats", s.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", s.withMetrics("/", s.handleRoot))
}

// Handler returns the configured route handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// withMetrics wraps an HTTP handler with metrics collection
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		s.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			s.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		slog.String("address", s.server.Addr),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server...")

	return s.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
		"service": map[string]interface{}{
			"name":    "ai-voice-call-agent",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"sessions": map[string]interface{}{
				"status":       "running",
				"active_calls": s.registry.ActiveCount(),
			},
			"sms": map[string]interface{}{
				"configured": s.twilioClient.Enabled(),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleCalls implements the /calls endpoint
func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := s.registry.Snapshot()

	response := map[string]interface{}{
		"total_calls": len(infos),
		"timestamp":   time.Now().UTC(),
		"calls":       infos,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleCallDetail implements the /calls/{session_id} endpoint
func (s *Server) handleCallDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/calls/")
	if id == "" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	sess, exists := s.registry.GetSession(id)
	if !exists {
		http.Error(w, "Call not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess.Info())
}

// handleConfig implements the /config endpoint
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"port":        s.config.Server.Port,
			"address":     s.config.Server.Address,
			"public_host": s.config.Server.PublicHost,
		},
		"audio": map[string]interface{}{
			"sample_rate": s.config.Audio.SampleRate,
			"frame_bytes": s.config.Audio.FrameBytes,
		},
		"session": map[string]interface{}{
			"reply_cooldown": s.config.Session.ReplyCooldown,
			"greeting_delay": s.config.Session.GreetingDelay,
			"idle_timeout":   s.config.Session.IdleTimeout,
			"record_dir":     s.config.Session.RecordDir,
		},
		"transcription": map[string]interface{}{
			"endpoint": s.config.Transcription.Endpoint,
			"model":    s.config.Transcription.Model,
			"language": s.config.Transcription.Language,
			"timeout":  s.config.Transcription.Timeout,
			// Note: API key is intentionally omitted for security
		},
		"generation": map[string]interface{}{
			"binary":  s.config.Generation.Binary,
			"model":   s.config.Generation.Model,
			"timeout": s.config.Generation.Timeout,
		},
		"synthesis": map[string]interface{}{
			"binary":     s.config.Synthesis.Binary,
			"model_path": s.config.Synthesis.ModelPath,
			"timeout":    s.config.Synthesis.Timeout,
		},
		"logging": map[string]interface{}{
			"level":  s.config.Logging.Level,
			"format": s.config.Logging.Format,
			"output": s.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().UTC(),
		"calls": map[string]interface{}{
			"active_count": s.registry.ActiveCount(),
		},
		"sms": map[string]interface{}{
			"configured": s.twilioClient.Enabled(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "AI Voice Call Agent",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                   "API documentation",
			"GET /health":             "Service health check",
			"GET /calls":              "List active call sessions",
			"GET /calls/{session_id}": "Get detailed call information",
			"GET /config":             "Get service configuration",
			"GET /stats":              "Get service statistics",
			"GET /metrics":            "Prometheus metrics",
			"POST /voice":             "Inbound call webhook (call-control document)",
			"POST /status":            "Call status callback",
			"WS /media":               "Bidirectional call media stream",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
