package handler

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger checks store reachability (e.g. *pgxpool.Pool, *memory.Store).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker checks that the policy engine evaluates (e.g. *engine.OPAEvaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the standard grpc.health.v1 service with readiness driven by Update.
type Server struct {
	*health.Server
	pinger   Pinger
	policy   PolicyChecker
	services []string
}

// NewServer returns a health server reporting NOT_SERVING until the first successful Update.
// services are the named services reported alongside the overall "" entry. Nil checkers are skipped.
func NewServer(pinger Pinger, policy PolicyChecker, services ...string) *Server {
	s := &Server{Server: health.NewServer(), pinger: pinger, policy: policy, services: services}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Update runs the readiness checks and publishes the result.
func (s *Server) Update(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("health: store ping failed")
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	if s.policy != nil {
		if err := s.policy.HealthCheck(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("health: policy check failed")
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.set(st)
	return st
}

func (s *Server) set(st healthpb.HealthCheckResponse_ServingStatus) {
	s.SetServingStatus("", st)
	for _, name := range s.services {
		s.SetServingStatus(name, st)
	}
}
