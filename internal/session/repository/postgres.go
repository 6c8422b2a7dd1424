package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/jesseKyomuhendo/auth-user-api/internal/db"
	"github.com/jesseKyomuhendo/auth-user-api/internal/session/domain"
)

const tokenHashConstraint = "sessions_token_hash_key"

const sessionColumns = `id::text, user_id::text, token_hash, issued_at, expires_at, revoked_at, user_agent, ip_address`

// PostgresRepository stores sessions in the sessions table. Calls run on the transaction carried by
// the context when there is one.
type PostgresRepository struct {
	pool db.Querier
}

// NewPostgresRepository returns a session repository over pool.
func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a session with a fresh random id.
func (r *PostgresRepository) Create(ctx context.Context, p CreateParams) (*domain.Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, issued_at, expires_at, revoked_at, user_agent, ip_address)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5, NULL, $6, $7)
		RETURNING `+sessionColumns,
		id.String(), p.UserID, p.TokenHash, p.IssuedAt, p.ExpiresAt, nullIfEmpty(p.Audit.UserAgent), nullIfEmpty(p.Audit.IPAddress))
	s, err := scanSession(row)
	if db.IsUniqueViolation(err, tokenHashConstraint) {
		return nil, ErrTokenHashConflict
	}
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").With("user_id", p.UserID).Wrap(err)
	}
	return s, nil
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.getByID(ctx, id, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1::uuid`)
}

// GetByIDForUpdate returns the session for id and holds a row lock until the transaction ends.
// A concurrent rotation of the same session blocks here and then sees the committed revocation.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Session, error) {
	return r.getByID(ctx, id, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1::uuid FOR UPDATE`)
}

func (r *PostgresRepository) getByID(ctx context.Context, id, query string) (*domain.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	s, err := scanSession(db.Conn(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_QUERY_FAILED").With("session_id", id).Wrap(err)
	}
	return s, nil
}

// GetByHash returns the session holding tokenHash, or nil if none does.
func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	s, err := scanSession(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`, tokenHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_QUERY_FAILED").Wrap(err)
	}
	return s, nil
}

// UpdateTokenHash replaces the session's token hash.
func (r *PostgresRepository) UpdateTokenHash(ctx context.Context, id, tokenHash string) (*domain.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	s, err := scanSession(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE sessions SET token_hash = $2
		WHERE id = $1::uuid
		RETURNING `+sessionColumns, id, tokenHash))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case db.IsUniqueViolation(err, tokenHashConstraint):
		return nil, ErrTokenHashConflict
	case err != nil:
		return nil, oops.Code("SESSION_UPDATE_FAILED").With("session_id", id).Wrap(err)
	}
	return s, nil
}

// Revoke sets revoked_at once; an existing revocation time is kept.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) (*domain.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	s, err := scanSession(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE sessions SET revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1::uuid
		RETURNING `+sessionColumns, id, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_REVOKE_FAILED").With("session_id", id).Wrap(err)
	}
	return s, nil
}

// RevokeAllByUser revokes all unrevoked sessions for userID.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return 0, nil
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE sessions SET revoked_at = $2
		WHERE user_id = $1::uuid AND revoked_at IS NULL`, userID, at)
	if err != nil {
		return 0, oops.Code("SESSION_REVOKE_FAILED").With("user_id", userID).Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		s         domain.Session
		userAgent *string
		ipAddress *string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.IssuedAt, &s.ExpiresAt, &s.RevokedAt, &userAgent, &ipAddress); err != nil {
		return nil, err
	}
	if userAgent != nil {
		s.Audit.UserAgent = *userAgent
	}
	if ipAddress != nil {
		s.Audit.IPAddress = *ipAddress
	}
	return &s, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
