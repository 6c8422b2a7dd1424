package interceptors

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	accountdomain "github.com/jesseKyomuhendo/auth-user-api/internal/account/domain"
	identityservice "github.com/jesseKyomuhendo/auth-user-api/internal/identity/service"
)

const bearerPrefix = "bearer "

// Authenticator resolves an access token to an active account.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*accountdomain.Account, error)
}

// AuthUnary returns a unary server interceptor that validates the Bearer (access) token from gRPC
// metadata and sets the caller Identity in context for protected RPCs.
// publicMethods is the set of full method names that do not require a Bearer token
// (e.g. AuthService Register, Login, Refresh, Logout; grpc.health.v1 Check).
func AuthUnary(auth Authenticator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		token := extractBearer(ctx)
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		acc, err := auth.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, identityservice.ErrUnauthenticated) {
				return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
			}
			zerolog.Ctx(ctx).Error().Err(err).Str("method", info.FullMethod).Msg("authenticate access token")
			return nil, status.Error(codes.Internal, "failed to authenticate")
		}

		ctx = WithIdentity(ctx, Identity{UserID: acc.ID, Email: acc.Email, Active: acc.Active, Admin: acc.Admin})
		return handler(ctx, req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
