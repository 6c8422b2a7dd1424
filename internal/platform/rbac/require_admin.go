package rbac

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jesseKyomuhendo/auth-user-api/internal/policy/engine"
	"github.com/jesseKyomuhendo/auth-user-api/internal/server/interceptors"
)

// AdminPolicy decides whether a caller may administer accounts. Implemented by engine.OPAEvaluator.
type AdminPolicy interface {
	AllowAdmin(ctx context.Context, in engine.AdminInput) (bool, error)
}

// RequireAdmin ensures the caller is authenticated and allowed by the admin policy.
// Returns the caller's user id on success; returns a gRPC error (Unauthenticated, PermissionDenied or Internal) on failure.
func RequireAdmin(ctx context.Context, policy AdminPolicy) (userID string, err error) {
	id, ok := interceptors.GetIdentity(ctx)
	if !ok || id.UserID == "" {
		return "", status.Error(codes.Unauthenticated, "user context required")
	}
	allowed, err := policy.AllowAdmin(ctx, engine.AdminInput{UserID: id.UserID, Active: id.Active, Admin: id.Admin})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("account_id", id.UserID).Msg("evaluate admin policy")
		return "", status.Error(codes.Internal, "failed to evaluate policy")
	}
	if !allowed {
		return "", status.Error(codes.PermissionDenied, "admin required")
	}
	return id.UserID, nil
}
