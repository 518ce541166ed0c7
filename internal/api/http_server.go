package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"supperclub/internal/config"
	"supperclub/internal/export"
	"supperclub/internal/metrics"
	"supperclub/internal/models"
	"supperclub/internal/service"

	"github.com/rs/zerolog"
)

// InboxLister reads a user's delivered notifications.
type InboxLister interface {
	List(ctx context.Context, userID string) ([]models.Notification, error)
}

// Services bundles the operations the HTTP API exposes.
type Services struct {
	Bookings     *service.BookingService
	Reschedules  *service.RescheduleService
	Applications *service.ApplicationService
	Coupons      *service.CouponService
	Inbox        InboxLister
	Exporter     *export.Exporter
}

// HTTPServer exposes the booking and approval operations as JSON over HTTP.
type HTTPServer struct {
	cfg         config.APIConfig
	svc         Services
	server      *http.Server
	auth        *TokenAuth
	limiter     *rateLimiter
	idempotency *idempotencyCache
	logger      zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:         cfg,
		svc:         svc,
		auth:        NewTokenAuth(cfg.Auth),
		limiter:     newRateLimiter(cfg.RateLimit),
		idempotency: newIdempotencyCache(cfg.IdempotencyTTL),
		logger:      zerolog.Nop(),
	}
	if logger != nil {
		srv.logger = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := srv.loggingMiddleware(srv.auth.Wrap(srv.limiter.Wrap(capturePattern(mux))))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/v1/bookings", s.idempotency.Wrap(s.handleCreateBooking))
	mux.HandleFunc("GET /api/v1/bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", s.handleConfirmBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", s.handleCancelBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/reschedule", s.handleRequestReschedule)
	mux.HandleFunc("POST /api/v1/bookings/{id}/reschedule/respond", s.handleRespondReschedule)

	mux.HandleFunc("GET /api/v1/coupons/{code}/quote", s.handleQuoteCoupon)
	mux.HandleFunc("POST /api/v1/applications", s.handleSubmitApplication)
	mux.HandleFunc("GET /api/v1/notifications", s.handleInbox)

	mux.HandleFunc("GET /api/v1/admin/bookings", s.handleListBookings)
	mux.HandleFunc("GET /api/v1/admin/exports/bookings", s.handleExportBookings)
	mux.HandleFunc("PUT /api/v1/admin/coupons/{code}", s.handleSaveCoupon)
	mux.HandleFunc("DELETE /api/v1/admin/coupons/{code}", s.handleDeleteCoupon)
	mux.HandleFunc("POST /api/v1/admin/applications/{id}/approve", s.handleApproveApplication)
	mux.HandleFunc("POST /api/v1/admin/applications/{id}/reject", s.handleRejectApplication)
	mux.HandleFunc("POST /api/v1/admin/applications/{id}/request-changes", s.handleRequestChanges)
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		route := recorder.route
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(route, strconv.Itoa(recorder.status), dur)

		event := s.logger.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
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
	route  string
}

// capturePattern records the matched route pattern on the outer recorder.
func capturePattern(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		if rec, ok := w.(*statusRecorder); ok {
			rec.route = r.Pattern
		}
	})
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
