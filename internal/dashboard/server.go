package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imamik/devsim/internal/config"
	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/util/deviceid"
)

// Provisioner is the machine surface the API drives.
// *provisioning.Machine satisfies it.
type Provisioner interface {
	Start(d provisioning.DeviceDescriptor) error
	Retry() error
	Cancel()
	Snapshot() provisioning.Run
}

// DeviceRegistry is the read side of the device registry.
type DeviceRegistry interface {
	GetDevice(ctx context.Context, id string) (*provisioning.DeviceRecord, error)
	ListDevices(ctx context.Context) ([]provisioning.DeviceRecord, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l logr.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithHandoffs sets the handoff recorder shared with the machine.
func WithHandoffs(h *Handoffs) Option {
	return func(s *Server) {
		s.handoffs = h
	}
}

// WithRateLimiter replaces the submission limiter built from the config.
func WithRateLimiter(l *RateLimiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithGatherer sets the metrics source served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithIDGenerator sets the generator used for submissions that ask for a generated id.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Server) {
		s.newID = fn
	}
}

// Server is the dashboard HTTP API.
type Server struct {
	machine  Provisioner
	devices  DeviceRegistry
	cfg      *config.Config
	handoffs *Handoffs
	limiter  *RateLimiter
	gatherer prometheus.Gatherer
	logger   logr.Logger
	newID    func() (string, error)

	mux *http.ServeMux
}

// New creates a Server. It panics if machine, devices or cfg is nil.
func New(machine Provisioner, devices DeviceRegistry, cfg *config.Config, opts ...Option) *Server {
	if machine == nil || devices == nil || cfg == nil {
		panic("dashboard.New: nil dependency")
	}
	s := &Server{
		machine:  machine,
		devices:  devices,
		cfg:      cfg,
		gatherer: provisioning.Registry,
		logger:   logr.Discard(),
		newID:    deviceid.Generate,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.handoffs == nil {
		s.handoffs = NewHandoffs(nil)
	}
	if s.limiter == nil {
		s.limiter = NewRateLimiter(cfg.Server.SubmitRate, cfg.Server.SubmitBurst)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/provisioning", s.limited(s.handleStart))
	mux.HandleFunc("GET /api/provisioning", s.handleStatus)
	mux.HandleFunc("POST /api/provisioning/retry", s.limited(s.handleRetry))
	mux.HandleFunc("POST /api/provisioning/cancel", s.handleCancel)

	mux.HandleFunc("GET /api/devices", s.handleListDevices)
	mux.HandleFunc("GET /api/devices/{id}", s.handleGetDevice)

	mux.HandleFunc("GET /api/environments", s.handleEnvironments)
	mux.HandleFunc("GET /api/device-types", s.handleDeviceTypes)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.mux = mux
}

// Handler returns the API handler with request logging.
func (s *Server) Handler() http.Handler {
	return logging(s.logger, s.mux)
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down dashboard: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dashboard server: %w", err)
	}
}

// limited rejects requests over the submission rate with 429.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errRateLimited)
			return
		}
		next(w, r)
	}
}
