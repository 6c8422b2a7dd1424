package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/jesseKyomuhendo/auth-user-api/internal/account/domain"
	"github.com/jesseKyomuhendo/auth-user-api/internal/db"
)

const emailConstraint = "accounts_email_key"

const accountColumns = `id::text, email, full_name, password_hash, active, admin, created_at, updated_at`

// PostgresRepository stores accounts in the accounts table. Calls run on the transaction carried by
// the context when there is one.
type PostgresRepository struct {
	pool db.Querier
}

// NewPostgresRepository returns an account repository over pool.
func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByID returns the account for id, or nil if not found. Ids that are not UUIDs match nothing.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1::uuid`, id)
	return scanAccount(row, "id", id)
}

// GetByEmail returns the account with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row, "email", email)
}

// Create inserts a. Returns ErrEmailTaken when the email is already registered.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO accounts (id, email, full_name, password_hash, active, admin, created_at, updated_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Email, a.FullName, a.PasswordHash, a.Active, a.Admin, a.CreatedAt, a.UpdatedAt)
	if db.IsUniqueViolation(err, emailConstraint) {
		return ErrEmailTaken
	}
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").With("account_id", a.ID).Wrap(err)
	}
	return nil
}

// SetActive sets the active flag and updated_at, returning the updated account or nil if missing.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE accounts SET active = $2, updated_at = $3
		WHERE id = $1::uuid
		RETURNING `+accountColumns, id, active, at)
	return scanAccount(row, "id", id)
}

// Delete removes the account; sessions go with it through ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM accounts WHERE id = $1::uuid`, id)
	if err != nil {
		return false, oops.Code("ACCOUNT_DELETE_FAILED").With("account_id", id).Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanAccount(row pgx.Row, key, value string) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.FullName, &a.PasswordHash, &a.Active, &a.Admin, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_QUERY_FAILED").With(key, value).Wrap(err)
	}
	return &a, nil
}
