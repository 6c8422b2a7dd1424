package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	authv1 "github.com/jesseKyomuhendo/auth-user-api/api/auth/v1"
	accountdomain "github.com/jesseKyomuhendo/auth-user-api/internal/account/domain"
	"github.com/jesseKyomuhendo/auth-user-api/internal/identity/service"
	"github.com/jesseKyomuhendo/auth-user-api/internal/platform/rbac"
	"github.com/jesseKyomuhendo/auth-user-api/internal/server/interceptors"
)

const tokenTypeBearer = "bearer"

// AuthServer implements auth.v1.AuthService (api/auth/v1/service.go) over the session manager.
type AuthServer struct {
	authv1.UnimplementedAuthServiceServer
	auth   *service.AuthService
	policy rbac.AdminPolicy
}

// NewAuthServer returns a new Auth gRPC server. Pass nil auth for stub (Unimplemented).
// policy gates SetAccountActive and deleting other accounts.
func NewAuthServer(auth *service.AuthService, policy rbac.AdminPolicy) *AuthServer {
	return &AuthServer{auth: auth, policy: policy}
}

// Register creates an account.
func (s *AuthServer) Register(ctx context.Context, req *authv1.RegisterRequest) (*authv1.RegisterResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Register not implemented")
	}
	acc, err := s.auth.Register(ctx, req.GetEmail(), req.GetPassword(), req.GetFullName())
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	return &authv1.RegisterResponse{Account: accountToProto(acc)}, nil
}

// Login authenticates with email and password and opens a session.
func (s *AuthServer) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.TokenResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Login not implemented")
	}
	pair, err := s.auth.Login(ctx, req.GetEmail(), req.GetPassword(), interceptors.RequestAudit(ctx))
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	return tokenResponse(pair, ""), nil
}

// Refresh exchanges a refresh token. Without rotation the presented token is echoed back.
func (s *AuthServer) Refresh(ctx context.Context, req *authv1.RefreshRequest) (*authv1.TokenResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
	}
	pair, err := s.auth.Refresh(ctx, req.GetRefreshToken(), service.RefreshOptions{Rotate: req.Rotate}, interceptors.RequestAudit(ctx))
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	return tokenResponse(pair, req.GetRefreshToken()), nil
}

// Logout revokes the session of the presented refresh token. Always succeeds.
func (s *AuthServer) Logout(ctx context.Context, req *authv1.LogoutRequest) (*emptypb.Empty, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
	}
	s.auth.Logout(ctx, req.GetRefreshToken())
	return &emptypb.Empty{}, nil
}

// LogoutAll revokes every session of the caller.
func (s *AuthServer) LogoutAll(ctx context.Context, _ *authv1.LogoutAllRequest) (*authv1.LogoutAllResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method LogoutAll not implemented")
	}
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "user context required")
	}
	n, err := s.auth.RevokeAllSessions(ctx, userID)
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	return &authv1.LogoutAllResponse{Revoked: n}, nil
}

// Me returns the caller's account.
func (s *AuthServer) Me(ctx context.Context, _ *authv1.MeRequest) (*authv1.Account, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Me not implemented")
	}
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "user context required")
	}
	acc, err := s.auth.GetAccount(ctx, userID)
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	return accountToProto(acc), nil
}

// SetAccountActive enables or disables an account. Admin only.
func (s *AuthServer) SetAccountActive(ctx context.Context, req *authv1.SetAccountActiveRequest) (*authv1.Account, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method SetAccountActive not implemented")
	}
	if _, err := rbac.RequireAdmin(ctx, s.policy); err != nil {
		return nil, err
	}
	if req.GetAccountId() == "" {
		return nil, status.Error(codes.InvalidArgument, "account_id is required")
	}
	acc, err := s.auth.SetAccountActive(ctx, req.GetAccountId(), req.Active)
	if err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	return accountToProto(acc), nil
}

// DeleteAccount deletes the caller's own account, or any account when the caller is an admin.
func (s *AuthServer) DeleteAccount(ctx context.Context, req *authv1.DeleteAccountRequest) (*emptypb.Empty, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method DeleteAccount not implemented")
	}
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "user context required")
	}
	target := req.GetAccountId()
	if target == "" {
		target = userID
	}
	if target != userID {
		if _, err := rbac.RequireAdmin(ctx, s.policy); err != nil {
			return nil, err
		}
	}
	if err := s.auth.DeleteAccount(ctx, target); err != nil {
		return nil, authErrToStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

// authErrToStatus maps session manager errors to gRPC status. Unexpected errors are logged and
// reported as Internal without detail.
func authErrToStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrRefreshTokenInvalid):
		return status.Error(codes.Unauthenticated, service.ErrRefreshTokenInvalid.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, service.ErrUnauthenticated.Error())
	case errors.Is(err, service.ErrInactiveAccount):
		return status.Error(codes.PermissionDenied, service.ErrInactiveAccount.Error())
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		return status.Error(codes.AlreadyExists, service.ErrEmailAlreadyRegistered.Error())
	case errors.Is(err, service.ErrAccountNotFound):
		return status.Error(codes.NotFound, service.ErrAccountNotFound.Error())
	case errors.Is(err, service.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("auth request failed")
		return status.Error(codes.Internal, "internal error")
	}
}

func tokenResponse(pair *service.TokenPair, presentedRefresh string) *authv1.TokenResponse {
	refresh := pair.RefreshToken
	if refresh == "" {
		refresh = presentedRefresh
	}
	return &authv1.TokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     refresh,
		TokenType:        tokenTypeBearer,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		SessionId:        pair.SessionID,
	}
}

func accountToProto(a *accountdomain.Account) *authv1.Account {
	if a == nil {
		return nil
	}
	return &authv1.Account{
		Id:        a.ID,
		Email:     a.Email,
		FullName:  a.FullName,
		Active:    a.Active,
		Admin:     a.Admin,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
