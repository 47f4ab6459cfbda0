// Package api serves the dataset views, notices, Prometheus metrics and the
// embedded dashboard page over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/dbsmedya/outreachkpi/internal/config"
	"github.com/dbsmedya/outreachkpi/internal/dashboard"
	"github.com/dbsmedya/outreachkpi/internal/logger"
	"github.com/dbsmedya/outreachkpi/internal/notify"
	"github.com/dbsmedya/outreachkpi/internal/source"
	"github.com/dbsmedya/outreachkpi/internal/telemetry"
)

const (
	defaultNoticeLimit = 50
	refreshTimeout     = 2 * time.Minute
)

// Server is the HTTP API and dashboard server.
type Server struct {
	manager   *dashboard.Manager
	notices   *notify.Ring
	telemetry *telemetry.Collector
	cfg       config.ServerConfig
	log       *logger.Logger
	startTime time.Time

	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter

	httpServer *http.Server
	addr       string
}

// NewServer creates an API server. notices and tel may be nil.
func NewServer(m *dashboard.Manager, notices *notify.Ring, tel *telemetry.Collector, cfg config.ServerConfig, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		manager:   m,
		notices:   notices,
		telemetry: tel,
		cfg:       cfg,
		log:       log.WithComponent("api"),
		startTime: time.Now(),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Handler builds the router with all middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/health", s.healthHandler)
	r.Get("/ready", s.readyHandler)
	if s.telemetry != nil {
		r.Handle("/metrics", s.telemetry.Handler())
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/datasets", s.listDatasets)
		r.Get("/datasets/{name}", s.getDataset)
		r.Post("/datasets/{name}/refresh", s.refreshDataset)
		r.Get("/notices", s.listNotices)
	})

	r.Get("/", s.dashboardHandler)
	r.Get("/dashboard", s.dashboardHandler)

	return r
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      refreshTimeout + 10*time.Second,
	}

	if s.cfg.APIKey == "" {
		s.log.Warnw("API key not configured, /api endpoints are unauthenticated")
	}
	s.addr = ln.Addr().String()
	s.log.Infow("HTTP server listening", "addr", s.addr)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// --- Middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.APIKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized: invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"latency", time.Since(start),
		)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// --- Handlers ---

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.startTime).Round(time.Second).String(),
		"datasets": len(s.manager.Names()),
	})
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if !s.manager.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Summaries())
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, src.View())
}

func (s *Server) refreshDataset(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(w, r)
	if !ok {
		return
	}

	if lim := s.limiter(src.Dataset()); !lim.Allow() {
		w.Header().Set("Retry-After", strconv.Itoa(s.retryAfterSeconds()))
		writeError(w, http.StatusTooManyRequests, "refresh rate limit exceeded")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	err := src.Refresh(ctx)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, src.View())
	case errors.Is(err, dashboard.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		status := http.StatusBadGateway
		if fe, ok := source.IsFetchError(err); ok && fe.Kind == source.KindConfig {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, map[string]interface{}{
			"error": err.Error(),
			"view":  src.View(),
		})
	}
}

func (s *Server) listNotices(w http.ResponseWriter, r *http.Request) {
	if s.notices == nil {
		writeJSON(w, http.StatusOK, []notify.Notice{})
		return
	}

	limit := defaultNoticeLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	dataset := r.URL.Query().Get("dataset")
	all := s.notices.Recent(0)
	out := make([]notify.Notice, 0, len(all))
	for _, n := range all {
		if dataset != "" && n.Dataset != dataset {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Helpers ---

func (s *Server) source(w http.ResponseWriter, r *http.Request) (*dashboard.Source, bool) {
	name := chi.URLParam(r, "name")
	src, ok := s.manager.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("dataset %q not found", name))
		return nil, false
	}
	return src, true
}

// limiter returns the refresh limiter of a dataset. A refresh_per_minute of
// 0 disables limiting.
func (s *Server) limiter(dataset string) *rate.Limiter {
	s.limitMu.Lock()
	defer s.limitMu.Unlock()

	lim, ok := s.limiters[dataset]
	if !ok {
		if s.cfg.RefreshPerMinute <= 0 {
			lim = rate.NewLimiter(rate.Inf, 0)
		} else {
			lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.cfg.RefreshPerMinute)), s.cfg.RefreshPerMinute)
		}
		s.limiters[dataset] = lim
	}
	return lim
}

func (s *Server) retryAfterSeconds() int {
	if s.cfg.RefreshPerMinute <= 0 {
		return 1
	}
	secs := 60 / s.cfg.RefreshPerMinute
	if secs < 1 {
		secs = 1
	}
	return secs
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
