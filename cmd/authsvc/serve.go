package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	authv1 "github.com/jesseKyomuhendo/auth-user-api/api/auth/v1"
	"github.com/jesseKyomuhendo/auth-user-api/internal/config"
	healthhandler "github.com/jesseKyomuhendo/auth-user-api/internal/health/handler"
	"github.com/jesseKyomuhendo/auth-user-api/internal/identity/service"
	"github.com/jesseKyomuhendo/auth-user-api/internal/logger"
	"github.com/jesseKyomuhendo/auth-user-api/internal/policy/engine"
	"github.com/jesseKyomuhendo/auth-user-api/internal/server"
	telemetry "github.com/jesseKyomuhendo/auth-user-api/internal/telemetry/otel"
)

const (
	healthInterval  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC server",
		Long: `Start the gRPC server exposing auth.v1.AuthService and grpc.health.v1.
The server stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger.Setup(cfg.Debug))
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx = log.WithContext(ctx)

	providers, err := telemetry.NewProviders(ctx, telemetry.Options{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
	})
	if err != nil {
		return oops.Code("TELEMETRY_FAILED").With("endpoint", cfg.OTLPEndpoint).Wrap(err)
	}
	providers.SetGlobal()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown")
		}
	}()

	events, err := telemetry.NewSessionEvents(providers.LoggerProvider, providers.MeterProvider)
	if err != nil {
		return oops.Code("TELEMETRY_FAILED").Wrap(err)
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	auth, err := newAuthService(cfg, st, service.WithEventRecorder(events))
	if err != nil {
		return err
	}

	policy, err := engine.NewOPAEvaluator(ctx, engine.DefaultAdminPolicy)
	if err != nil {
		return oops.Code("POLICY_INVALID").Wrap(err)
	}

	health := healthhandler.NewServer(st.pinger, policy, authv1.ServiceName)
	health.Update(ctx)

	s := server.NewGRPCServer(server.Deps{
		Auth:   auth,
		Policy: policy,
		Health: health,
		Logger: log,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.GRPCAddr).Wrap(err)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", lis.Addr().String()).Str("store", cfg.StoreDriver).Msg("gRPC server listening")
		serveErr <- s.Serve(lis)
	}()

	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-serveErr:
			if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return oops.Code("SERVE_FAILED").Wrap(err)
			}
			return nil
		case <-ticker.C:
			health.Update(ctx)
		case <-ctx.Done():
			log.Info().Msg("shutting down gRPC server")
			health.Shutdown()
			gracefulStop(s, shutdownTimeout)
			log.Info().Msg("gRPC server stopped")
			return nil
		}
	}
}

// gracefulStop drains in-flight calls, forcing a stop once timeout elapses.
func gracefulStop(s *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.Stop()
	}
}
