package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jesseKyomuhendo/auth-user-api/internal/account/domain"
)

// ErrEmailTaken is returned by Create when another account already uses the email.
var ErrEmailTaken = errors.New("email already registered")

// Repository defines persistence for accounts. Lookups return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Create persists a new account. The account must have ID set.
	Create(ctx context.Context, a *domain.Account) error
	// SetActive updates the active flag and returns the updated account, or nil if it does not exist.
	SetActive(ctx context.Context, id string, active bool, at time.Time) (*domain.Account, error)
	// Delete removes the account and, by cascade, its sessions. Reports whether a row was deleted.
	Delete(ctx context.Context, id string) (bool, error)
}
