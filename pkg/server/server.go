// Package server assembles the HTTP surface of the policy search service:
// the search API, the optional audit API and the health endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/policydesk/policy-search/pkg/audit"
	"github.com/policydesk/policy-search/pkg/config"
	"github.com/policydesk/policy-search/pkg/policy"
)

// Route prefixes.
const (
	PolicyBasePath = "/api/policies/v1"
	AuditBasePath  = "/api/audit/v1"
)

// pingTimeout bounds the database check behind /readyz.
const pingTimeout = 2 * time.Second

// Server wires the policy search API to a database pool.
type Server struct {
	db             *gorm.DB
	searcher       policy.Searcher
	logger         *slog.Logger
	auditStore     *audit.Store
	auditConfig    *audit.Config
	allowedOrigins []string
	startedAt      time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithAudit records search requests in store when cfg.Enabled is set and
// exposes them under AuditBasePath.
func WithAudit(store *audit.Store, cfg *audit.Config) Option {
	return func(s *Server) {
		s.auditStore = store
		s.auditConfig = cfg
	}
}

// WithAllowedOrigins sets the CORS origins. Without it cross-origin
// requests are refused.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// NewServer creates a Server. db may be nil, in which case /readyz reports
// the database as not configured.
func NewServer(db *gorm.DB, searcher policy.Searcher, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		db:        db,
		searcher:  searcher,
		logger:    logger,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) auditEnabled() bool {
	return s.auditStore != nil && s.auditConfig != nil && s.auditConfig.Enabled
}

// MountRoutes builds the router.
func (s *Server) MountRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	corsOptions := cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", audit.ActorHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}
	if len(s.allowedOrigins) == 0 {
		// cors treats an empty origin list as "allow all".
		corsOptions.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	r.Use(cors.Handler(corsOptions))

	r.Route(PolicyBasePath, func(r chi.Router) {
		if s.auditEnabled() {
			r.Use(audit.Middleware(s.auditStore, s.auditConfig, s.logger))
			s.logger.Info("search audit enabled", "retentionDays", s.auditConfig.RetentionDays)
		}
		r.Mount("/", policy.Router(s.searcher, s.logger))
	})

	if s.auditEnabled() {
		r.Mount(AuditBasePath, audit.Router(s.auditStore))
	}

	r.Get("/healthz", s.healthHandler)
	r.Get("/livez", s.healthHandler)
	r.Get("/readyz", s.readyHandler)

	return r
}

// Run serves HTTP on cfg.Listen until ctx is canceled, then shuts down
// gracefully within cfg.ShutdownTimeout. When audit is enabled the retention
// worker runs for the lifetime of the server.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.MountRoutes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if s.auditEnabled() {
		go audit.NewRetentionWorker(s.auditStore, s.auditConfig.RetentionDays, s.logger).Run(workerCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("policy search server listening", "listen", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("policy search server stopped")
	return nil
}

// healthHandler returns the liveness status of the server.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// readyHandler reports ready only while the database answers a ping.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	dbStatus := map[string]string{"status": "up"}
	ready := true

	if s.db == nil {
		dbStatus["status"] = "not_configured"
		ready = false
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus["status"] = "down"
		dbStatus["error"] = err.Error()
		ready = false
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus["status"] = "down"
			dbStatus["error"] = err.Error()
			ready = false
		}
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"components": map[string]any{
			"database": dbStatus,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
