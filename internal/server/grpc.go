package server

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	authv1 "github.com/jesseKyomuhendo/auth-user-api/api/auth/v1"
	healthhandler "github.com/jesseKyomuhendo/auth-user-api/internal/health/handler"
	identityhandler "github.com/jesseKyomuhendo/auth-user-api/internal/identity/handler"
	identityservice "github.com/jesseKyomuhendo/auth-user-api/internal/identity/service"
	"github.com/jesseKyomuhendo/auth-user-api/internal/logger"
	"github.com/jesseKyomuhendo/auth-user-api/internal/platform/rbac"
	"github.com/jesseKyomuhendo/auth-user-api/internal/server/interceptors"
)

// Deps holds service dependencies for gRPC handlers.
type Deps struct {
	// Auth is the session manager. If nil, auth RPCs return Unimplemented.
	Auth *identityservice.AuthService
	// Policy gates admin-only RPCs.
	Policy rbac.AdminPolicy
	// Health is the grpc.health.v1 server. If nil, the health service is not registered.
	Health *healthhandler.Server
	// Logger is the base request logger.
	Logger zerolog.Logger
}

// PublicMethods is the set of full method names callable without a Bearer token.
func PublicMethods() map[string]bool {
	return map[string]bool{
		authv1.AuthService_Register_FullMethodName: true,
		authv1.AuthService_Login_FullMethodName:    true,
		authv1.AuthService_Refresh_FullMethodName:  true,
		authv1.AuthService_Logout_FullMethodName:   true,
		healthpb.Health_Check_FullMethodName:       true,
		healthpb.Health_Watch_FullMethodName:       true,
	}
}

// NewGRPCServer returns a gRPC server with tracing, request logging and bearer authentication,
// and all services registered.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	unary := []grpc.UnaryServerInterceptor{logger.UnaryServerInterceptor(deps.Logger)}
	if deps.Auth != nil {
		unary = append(unary, interceptors.AuthUnary(deps.Auth, PublicMethods()))
	}
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unary...),
	}, opts...)

	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - auth.v1.AuthService → internal/identity/handler
//   - grpc.health.v1.Health → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	authv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth, deps.Policy))
	if deps.Health != nil {
		healthpb.RegisterHealthServer(s, deps.Health)
	}
}
