package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jesseKyomuhendo/auth-user-api/internal/session/domain"
)

// ErrTokenHashConflict is returned when a token hash is already held by another session.
var ErrTokenHashConflict = errors.New("session token hash already exists")

// CreateParams describes a new session. The store assigns the id.
type CreateParams struct {
	UserID    string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Audit     domain.Audit
}

// Repository defines persistence for sessions. Lookups return (nil, nil) when no row matches.
type Repository interface {
	Create(ctx context.Context, p CreateParams) (*domain.Session, error)
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetByIDForUpdate is GetByID that also locks the row until the ambient transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Session, error)
	GetByHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// UpdateTokenHash replaces the stored hash and returns the updated session, or nil if missing.
	UpdateTokenHash(ctx context.Context, id, tokenHash string) (*domain.Session, error)
	// Revoke sets revoked_at to at unless it is already set. Revoking twice is a no-op.
	Revoke(ctx context.Context, id string, at time.Time) (*domain.Session, error)
	// RevokeAllByUser revokes every unrevoked session of userID and returns how many changed.
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) (int64, error)
}
