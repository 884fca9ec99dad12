// Package api exposes the progression engine over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-academy/internal/attempt"
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/certificate"
	"github.com/p-n-ai/pai-academy/internal/progress"
)

// Config holds HTTP-level settings.
type Config struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// Deps are the services the API serves.
type Deps struct {
	Catalog       catalog.Reader
	Store         progress.Store
	Recorder      *attempt.Recorder
	Certificates  *certificate.Service
	Authenticator *Authenticator
	Hub           *EventHub
	// Checks are run by /readyz; any error marks the service not ready.
	Checks map[string]func(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	cfg      Config
	router   *chi.Mux
	catalog  catalog.Reader
	store    progress.Store
	recorder *attempt.Recorder
	certs    *certificate.Service
	auth     *Authenticator
	hub      *EventHub
	checks   map[string]func(ctx context.Context) error
	validate *validator.Validate
}

// NewServer creates a new API server.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewEventHub()
	}
	s := &Server{
		cfg:      cfg,
		catalog:  deps.Catalog,
		store:    deps.Store,
		recorder: deps.Recorder,
		certs:    deps.Certificates,
		auth:     deps.Authenticator,
		hub:      hub,
		checks:   deps.Checks,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api/v1", func(r chi.Router) {
		if s.auth != nil {
			r.Use(s.auth.Identify)
		}

		// Long-lived websocket feed; kept outside the request timeout.
		r.With(RequireElevated).Get("/courses/{courseID}/events", s.handleEventStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))

			r.Route("/lessons/{lessonID}", func(r chi.Router) {
				r.Get("/access", s.handleLessonAccess)
				r.With(RequireIdentity).Post("/quiz", s.handleSubmitLessonQuiz)
			})

			r.Route("/chapters/{chapterID}/test", func(r chi.Router) {
				r.Get("/access", s.handleChapterTestAccess)
				r.Get("/cooldown", s.handleChapterTestCooldown)
				r.Get("/", s.handleStartChapterTest)
				r.With(RequireIdentity).Post("/", s.handleSubmitChapterTest)
			})

			r.Route("/courses/{courseID}", func(r chi.Router) {
				r.Get("/final-exam/access", s.handleFinalExamAccess)
				r.Get("/final-exam/cooldown", s.handleFinalExamCooldown)
				r.Get("/final-exam", s.handleStartFinalExam)
				r.With(RequireIdentity).Post("/final-exam", s.handleSubmitFinalExam)
				r.Get("/progress", s.handleGetProgress)
				r.With(RequireElevated).Get("/progress/export", s.handleExportProgress)
				r.With(RequireElevated).Post("/certificates/reissue", s.handleReissueCertificates)
			})

			r.Get("/certificates", s.handleListCertificates)
			r.Get("/certificates/verify/{code}", s.handleVerifyCertificate)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			respondError(w, http.StatusServiceUnavailable, "not_ready", name+" not ready")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
