package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesseKyomuhendo/auth-user-api/internal/session/domain"
)

var sessionCols = []string{"id", "user_id", "token_hash", "issued_at", "expires_at", "revoked_at", "user_agent", "ip_address"}

func strPtr(s string) *string { return &s }

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresRepository_Create(t *testing.T) {
	userID := uuid.NewString()
	issued := time.Now().UTC()
	expires := issued.Add(7 * 24 * time.Hour)
	params := CreateParams{
		UserID: userID, TokenHash: "placeholder", IssuedAt: issued, ExpiresAt: expires,
		Audit: domain.Audit{UserAgent: "curl/8.0", IPAddress: "10.0.0.1"},
	}

	t.Run("success", func(t *testing.T) {
		mock := newMock(t)
		sessionID := uuid.NewString()
		mock.ExpectQuery(`INSERT INTO sessions`).
			WithArgs(pgxmock.AnyArg(), userID, "placeholder", issued, expires, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows(sessionCols).
				AddRow(sessionID, userID, "placeholder", issued, expires, (*time.Time)(nil), strPtr("curl/8.0"), strPtr("10.0.0.1")))

		s, err := NewPostgresRepository(mock).Create(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, sessionID, s.ID)
		assert.Equal(t, userID, s.UserID)
		assert.Nil(t, s.RevokedAt)
		assert.Equal(t, domain.Audit{UserAgent: "curl/8.0", IPAddress: "10.0.0.1"}, s.Audit)
		assert.True(t, s.IsActiveAt(issued))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("token hash conflict", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO sessions`).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "sessions_token_hash_key"})

		_, err := NewPostgresRepository(mock).Create(context.Background(), params)
		assert.ErrorIs(t, err, ErrTokenHashConflict)
	})

	t.Run("unknown owner", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO sessions`).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})

		_, err := NewPostgresRepository(mock).Create(context.Background(), params)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrTokenHashConflict)
	})
}

func TestPostgresRepository_GetByID(t *testing.T) {
	id := uuid.NewString()
	userID := uuid.NewString()
	now := time.Now().UTC()
	revoked := now.Add(-time.Minute)

	t.Run("found revoked without audit", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM sessions WHERE id =`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(sessionCols).
				AddRow(id, userID, "hash", now, now.Add(time.Hour), &revoked, (*string)(nil), (*string)(nil)))

		s, err := NewPostgresRepository(mock).GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, s)
		require.NotNil(t, s.RevokedAt)
		assert.True(t, s.RevokedAt.Equal(revoked))
		assert.False(t, s.IsActiveAt(now))
		assert.Empty(t, s.Audit.UserAgent)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM sessions WHERE id =`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(sessionCols))

		s, err := NewPostgresRepository(mock).GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM sessions WHERE id =`).
			WithArgs(id).
			WillReturnError(errors.New("connection refused"))

		_, err := NewPostgresRepository(mock).GetByID(context.Background(), id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("malformed id", func(t *testing.T) {
		mock := newMock(t)
		s, err := NewPostgresRepository(mock).GetByID(context.Background(), "nope")
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_GetByIDForUpdate(t *testing.T) {
	mock := newMock(t)
	id := uuid.NewString()
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM sessions WHERE id = .+ FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(sessionCols).
			AddRow(id, uuid.NewString(), "hash", now, now.Add(time.Hour), (*time.Time)(nil), (*string)(nil), (*string)(nil)))

	s, err := NewPostgresRepository(mock).GetByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByHash(t *testing.T) {
	mock := newMock(t)
	id := uuid.NewString()
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM sessions WHERE token_hash =`).
		WithArgs("abc123").
		WillReturnRows(pgxmock.NewRows(sessionCols).
			AddRow(id, uuid.NewString(), "abc123", now, now.Add(time.Hour), (*time.Time)(nil), (*string)(nil), (*string)(nil)))
	mock.ExpectQuery(`SELECT .+ FROM sessions WHERE token_hash =`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(sessionCols))

	repo := NewPostgresRepository(mock)
	s, err := repo.GetByHash(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, id, s.ID)

	s, err = repo.GetByHash(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateTokenHash(t *testing.T) {
	id := uuid.NewString()
	now := time.Now().UTC()

	t.Run("success", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE sessions SET token_hash`).
			WithArgs(id, "real-hash").
			WillReturnRows(pgxmock.NewRows(sessionCols).
				AddRow(id, uuid.NewString(), "real-hash", now, now.Add(time.Hour), (*time.Time)(nil), (*string)(nil), (*string)(nil)))

		s, err := NewPostgresRepository(mock).UpdateTokenHash(context.Background(), id, "real-hash")
		require.NoError(t, err)
		assert.Equal(t, "real-hash", s.TokenHash)
	})

	t.Run("conflict", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE sessions SET token_hash`).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "sessions_token_hash_key"})

		_, err := NewPostgresRepository(mock).UpdateTokenHash(context.Background(), id, "taken")
		assert.ErrorIs(t, err, ErrTokenHashConflict)
	})
}

func TestPostgresRepository_Revoke(t *testing.T) {
	mock := newMock(t)
	id := uuid.NewString()
	userID := uuid.NewString()
	now := time.Now().UTC()
	first := now
	later := now.Add(time.Minute)

	mock.ExpectQuery(`UPDATE sessions SET revoked_at = COALESCE\(revoked_at, \$2\)`).
		WithArgs(id, first).
		WillReturnRows(pgxmock.NewRows(sessionCols).
			AddRow(id, userID, "hash", now, now.Add(time.Hour), &first, (*string)(nil), (*string)(nil)))
	// Second revoke keeps the original timestamp.
	mock.ExpectQuery(`UPDATE sessions SET revoked_at = COALESCE\(revoked_at, \$2\)`).
		WithArgs(id, later).
		WillReturnRows(pgxmock.NewRows(sessionCols).
			AddRow(id, userID, "hash", now, now.Add(time.Hour), &first, (*string)(nil), (*string)(nil)))

	repo := NewPostgresRepository(mock)
	s, err := repo.Revoke(context.Background(), id, first)
	require.NoError(t, err)
	require.NotNil(t, s.RevokedAt)

	s, err = repo.Revoke(context.Background(), id, later)
	require.NoError(t, err)
	assert.True(t, s.RevokedAt.Equal(first))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RevokeAllByUser(t *testing.T) {
	mock := newMock(t)
	userID := uuid.NewString()
	at := time.Now().UTC()
	mock.ExpectExec(`(?s)UPDATE sessions SET revoked_at = .+ AND revoked_at IS NULL`).
		WithArgs(userID, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := NewPostgresRepository(mock).RevokeAllByUser(context.Background(), userID, at)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
