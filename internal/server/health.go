package server

import (
	"context"
	"net/http"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthTimeout = 2 * time.Second

// CheckHealth pings the database and flips the gRPC health status to match.
func (s *Server) CheckHealth(ctx context.Context) error {
	if s.deps.DB == nil {
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		return nil
	}
	start := time.Now()
	if err := s.deps.DB.HealthCheck(ctx, healthTimeout); err != nil {
		s.logger.Warn("server.health.db_unavailable", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		return err
	}
	s.logger.Debug("server.health.ok", "elapsed_ms", time.Since(start).Milliseconds())
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return nil
}

func (s *Server) watchHealth(ctx context.Context) {
	_ = s.CheckHealth(ctx)
	t := time.NewTicker(s.cfg.HealthInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = s.CheckHealth(ctx)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
