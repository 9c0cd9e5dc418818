package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"viralvision/internal/api"
	"viralvision/internal/config"
	"viralvision/internal/logging"
	"viralvision/internal/services"
)

const (
	shutdownTimeout = 5 * time.Second
	maxJSONBody     = 1 << 20
	// multipartOverhead covers part headers and boundaries around the file.
	multipartOverhead = 1 << 20
)

type apiServer struct {
	bind        string
	logger      *slog.Logger
	daemon      *Daemon
	svc         *api.Service
	limiter     *submitLimiter
	maxUploadMB int
	handler     http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, svc *api.Service, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:        strings.TrimSpace(cfg.Paths.APIBind),
		logger:      logging.NewComponentLogger(logger, "api-server"),
		daemon:      d,
		svc:         svc,
		limiter:     newSubmitLimiter(cfg.API.SubmitRatePerMinute, cfg.API.SubmitBurst),
		maxUploadMB: cfg.API.MaxUploadMB,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/jobs/script", accountMiddleware(srv.limited(srv.handleSubmitScript)))
	mux.HandleFunc("POST /api/jobs/link", accountMiddleware(srv.limited(srv.handleSubmitLink)))
	mux.HandleFunc("POST /api/jobs/upload", accountMiddleware(srv.limited(srv.handleSubmitUpload)))
	mux.HandleFunc("GET /api/jobs/{id}", accountMiddleware(srv.handleJob))
	mux.HandleFunc("GET /api/jobs", accountMiddleware(srv.handleJobs))
	mux.HandleFunc("GET /api/stats", accountMiddleware(srv.handleStats))
	mux.HandleFunc("GET /api/accounts/me", accountMiddleware(srv.handleAccount))
	mux.HandleFunc("GET /api/status", srv.handleStatus)

	srv.handler = requestIDMiddleware(authMiddleware(strings.TrimSpace(cfg.Paths.APIToken), mux.ServeHTTP))
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.logger.Info("api server disabled (no bind address)")
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(s.logger, "api server shutdown incomplete", "api_shutdown_failed", logging.Error(err))
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// limited rejects submissions beyond the account's rate allowance.
func (s *apiServer) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(accountFromRequest(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "submission rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func requestIDMiddleware(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message})
}
