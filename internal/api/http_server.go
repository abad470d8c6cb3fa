// Package api exposes the booking REST API: authentication, role-gated user
// management, booking CRUD with per-role field policies, the public phone
// lookup and the advisory slot availability endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"vinylbook/internal/config"
	"vinylbook/internal/database"
	"vinylbook/internal/events"
	"vinylbook/internal/metrics"
	"vinylbook/internal/repository"
	"vinylbook/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer wires the handlers, middleware and dependencies together.
type HTTPServer struct {
	cfg     *config.Config
	db      *database.DB
	store   storage.Storage
	slots   repository.SlotCache
	bus     *events.EventBus
	limiter *clientLimiter
	server  *http.Server
	log     zerolog.Logger
}

func NewHTTPServer(
	cfg *config.Config,
	db *database.DB,
	store storage.Storage,
	slots repository.SlotCache,
	bus *events.EventBus,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		db:      db,
		store:   store,
		slots:   slots,
		bus:     bus,
		limiter: newClientLimiter(cfg.Server.RateLimit),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	} else {
		srv.log = zerolog.Nop()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", srv.handleRegister)
	mux.HandleFunc("POST /auth/login", srv.limiter.wrap(srv.handleLogin))
	mux.HandleFunc("GET /auth/me", srv.requireAuth(srv.handleMe))

	mux.HandleFunc("POST /bookings", srv.optionalAuth(srv.handleCreateBooking))
	mux.HandleFunc("GET /bookings", srv.requireAuth(srv.handleListBookings))
	mux.HandleFunc("PUT /bookings/{id}", srv.requireAuth(srv.handleUpdateBooking))
	mux.HandleFunc("DELETE /bookings/{id}", srv.requireAuth(srv.handleDeleteBooking))
	mux.HandleFunc("GET /bookings/stats", srv.requireRoles(srv.handleBookingStats, rolesAdmin...))
	mux.HandleFunc("GET /bookings/export", srv.requireRoles(srv.handleExportBookings, rolesAdmin...))
	mux.HandleFunc("GET /bookings/search/{phone}", srv.handleSearchBookings)
	mux.HandleFunc("GET /bookings/availability", srv.handleAvailability)

	mux.HandleFunc("GET /users", srv.requireAuth(srv.handleListUsers))
	mux.HandleFunc("POST /users", srv.requireRoles(srv.handleCreateUser, rolesAdmin...))
	mux.HandleFunc("PUT /users/{id}", srv.requireAuth(srv.handleUpdateUser))
	mux.HandleFunc("DELETE /users/{id}", srv.requireRoles(srv.handleDeleteUser, rolesAdmin...))
	mux.HandleFunc("GET /users/technicians/available", srv.requireRoles(srv.handleAvailableTechnicians, rolesDispatch...))

	mux.HandleFunc("GET /healthz", srv.handleHealth)

	// Uploaded images are served from disk only under the local backend;
	// the minio backend serves them itself.
	if local, ok := store.(*storage.LocalStorage); ok {
		prefix := cfg.Storage.PublicPrefix + "/"
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(local.Dir()))))
	}

	handler := srv.loggingMiddleware(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the root handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		metrics.IncHTTP(r.Method+" "+r.URL.Path, fmt.Sprintf("%d", recorder.status))
		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits the {message} error body shared by every failure path.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"message": message})
}

// writeInternalError surfaces the underlying error to the client. This is an
// internal tool, not a hardened boundary.
func writeInternalError(w http.ResponseWriter, message string, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"message": message,
		"error":   err.Error(),
	})
}
