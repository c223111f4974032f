// Package server exposes the segmentation pipeline over HTTP and WebSocket.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cyber-run/floro/internal/analysis"
	"github.com/cyber-run/floro/internal/pipeline"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	config      pipeline.Config
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	overlay     bool
	rateLimiter *RateLimiter
	profiler    pipeline.Profiler
	logger      zerolog.Logger
}

// RateLimitConfig holds per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	TimeoutSec      int
	ShutdownTimeout int
	PipelineConfig  pipeline.Config
	OverlayEnabled  bool
	RateLimit       RateLimitConfig
	Logger          zerolog.Logger
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string             `json:"status"`
	Version  string             `json:"version,omitempty"`
	Time     string             `json:"time"`
	Memory   *pipeline.MemStats `json:"memory,omitempty"`
	Pipeline map[string]any     `json:"pipeline,omitempty"` // cumulative stage timings
}

// SegmentResponse is the JSON body of POST /v1/segment.
type SegmentResponse struct {
	Success bool              `json:"success"`
	Result  *pipeline.Result  `json:"result,omitempty"`
	Summary *analysis.Summary `json:"summary,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// NewServer creates a server that segments with config.PipelineConfig
// unless a request overrides it.
func NewServer(config Config) (*Server, error) {
	if err := config.PipelineConfig.Validate(); err != nil {
		return nil, err
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 50
	}
	s := &Server{
		config:      config.PipelineConfig,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		overlay:     config.OverlayEnabled,
		logger:      config.Logger.With().Str("component", "server").Logger(),
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/v1/segment", s.corsMiddleware(s.rateLimitMiddleware(s.segmentHandler)))
	mux.HandleFunc("/ws/segment", s.segmentWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
