// Package server exposes the claim checker over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/pipeline"
)

const (
	maxBodyBytes = 1 << 20

	msgEmptyText  = "Please provide text to analyze."
	msgBadBody    = "Invalid request body."
	msgIncomplete = "Failed to generate a complete report."
	msgInternal   = "An unexpected error occurred."
)

// Checker runs one claim check
type Checker interface {
	Check(ctx context.Context, text string) (*model.FinalReport, error)
}

// Server serves POST /fact-check, GET /health and GET /metrics
type Server struct {
	checker  Checker
	gatherer prometheus.Gatherer
	timeout  time.Duration
	version  string
	validate *validator.Validate
	router   chi.Router
}

// Option configures a Server
type Option func(*Server)

// WithGatherer serves metrics from g instead of the default registry
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithTimeout bounds each check; zero means no limit
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithVersion is reported by /health
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a server around checker
func New(checker Checker, opts ...Option) *Server {
	s := &Server{
		checker:  checker,
		gatherer: prometheus.DefaultGatherer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/fact-check", s.handleFactCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server: listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// checkRequest accepts the text under either "answer" or "text"
type checkRequest struct {
	Answer string `json:"answer" validate:"required_without=Text"`
	Text   string `json:"text" validate:"required_without=Answer"`
}

func (r checkRequest) input() string {
	if r.Answer != "" {
		return r.Answer
	}
	return r.Text
}

func (s *Server) handleFactCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody)
		return
	}

	req.Answer = strings.TrimSpace(req.Answer)
	req.Text = strings.TrimSpace(req.Text)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, msgEmptyText)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.checker.Check(ctx, req.input())
	if err != nil {
		log := zap.L().With(zap.String("request_id", requestIDFrom(r.Context())))
		if errors.Is(err, pipeline.ErrIncompleteReport) {
			log.Warn("server: incomplete report", zap.Error(err))
			writeError(w, http.StatusInternalServerError, msgIncomplete)
			return
		}
		log.Error("server: check failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if report == nil {
		writeError(w, http.StatusInternalServerError, msgIncomplete)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.version != "" {
		body["version"] = s.version
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
