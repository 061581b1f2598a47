package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/pipeline"
	"github.com/joseph-ayodele/debitsheet-import/internal/repository"
)

const defaultMaxUploadBytes = 32 << 20

type Extractor interface {
	Process(ctx context.Context, doc entity.SourceDocument, opts pipeline.Options) (*pipeline.Result, error)
}

type Exporter interface {
	ExportOrdersXLSX(ctx context.Context, from, to *time.Time) ([]byte, error)
	ExportExtractionLogsXLSX(ctx context.Context, limit int) ([]byte, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Deps are the collaborators behind the HTTP API.
type Deps struct {
	Processor Extractor
	Orders    repository.OrderRepository
	Logs      repository.ExtractionLogRepository
	Exports   Exporter
	DB        HealthChecker
}

type Server struct {
	cfg     common.ServerConfig
	deps    Deps
	logger  *slog.Logger
	limiter *IPRateLimiter
	health  *health.Server
	router  chi.Router
}

func New(cfg common.ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 20 * time.Second
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = 15 * time.Second
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		health: health.NewServer(),
	}
	if cfg.RateLimitPerSecond > 0 {
		s.limiter = NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSecond), max(cfg.RateLimitBurst, 1))
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.withRequestContext)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.authenticate)
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}

		r.Post("/extractions", s.handleExtraction)
		r.Get("/orders", s.handleListOrders)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.Get("/extraction-logs", s.handleListLogs)
		r.Get("/exports/orders.xlsx", s.handleExportOrders)
		r.Get("/exports/extraction-logs.xlsx", s.handleExportLogs)
	})
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP, and gRPC health when GRPCAddr is set, until ctx is done or
// a listener fails. Both are shut down gracefully before Run returns.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("server.http.listening", "addr", s.cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcSrv *grpc.Server
	if s.cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", s.cfg.GRPCAddr)
		if err != nil {
			_ = httpSrv.Close()
			return err
		}
		grpcSrv = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, s.health)
		reflection.Register(grpcSrv)
		go func() {
			s.logger.Info("server.grpc.listening", "addr", lis.Addr().String())
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
		}()
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go s.watchHealth(watchCtx)

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("server.shutdown.start")
	case runErr = <-errCh:
		s.logger.Error("server.listener_failed", "error", runErr)
	}
	stopWatch()
	s.health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server.http.shutdown_failed", "error", err)
		runErr = errors.Join(runErr, err)
	}
	if grpcSrv != nil {
		stopped := make(chan struct{})
		go func() { grpcSrv.GracefulStop(); close(stopped) }()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcSrv.Stop()
		}
	}
	s.logger.Info("server.shutdown.ok")
	return runErr
}
