package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jesseKyomuhendo/auth-user-api/internal/security"
	sessiondomain "github.com/jesseKyomuhendo/auth-user-api/internal/session/domain"
	sessionrepo "github.com/jesseKyomuhendo/auth-user-api/internal/session/repository"
)

// Login verifies email and password and opens a new session. An unknown email and a wrong
// password both return ErrInvalidCredentials; a disabled account returns ErrInactiveAccount.
func (s *AuthService) Login(ctx context.Context, email, password string, audit sessiondomain.Audit) (*TokenPair, error) {
	email = normalizeEmail(email)
	now := s.now()

	var (
		pair   *TokenPair
		userID string
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		acc, err := s.accounts.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if acc == nil {
			return ErrInvalidCredentials
		}
		userID = acc.ID
		if !acc.Active {
			return ErrInactiveAccount
		}
		if !s.hasher.Verify(password, acc.PasswordHash) {
			return ErrInvalidCredentials
		}
		pair, err = s.issueSession(ctx, acc.ID, audit, now)
		return err
	})
	s.record(ctx, EventLogin, userID, sessionIDOf(pair), err, now)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("account_id", userID).Str("session_id", pair.SessionID).Msg("login")
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token. With rotation (the default) the
// presented session is revoked and a new session and refresh token are returned in the same
// transaction; without rotation RefreshToken is empty and the old token stays valid.
//
// Every token or session problem is ErrRefreshTokenInvalid. A missing or disabled owner is
// ErrInactiveAccount.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, opts RefreshOptions, audit sessiondomain.Audit) (*TokenPair, error) {
	now := s.now()
	subject, sessionID, err := s.decodeRefresh(refreshToken, now)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("refresh token rejected")
		s.record(ctx, EventRefresh, "", "", ErrRefreshTokenInvalid, now)
		return nil, ErrRefreshTokenInvalid
	}

	var pair *TokenPair
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// The row lock makes a concurrent refresh of the same session wait here and then see
		// the revocation committed by whichever call got the lock first.
		sess, err := s.sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess == nil || !sess.IsActiveAt(now) {
			return ErrRefreshTokenInvalid
		}
		if !security.TokenHashEqual(refreshToken, sess.TokenHash) || sess.UserID != subject {
			return ErrRefreshTokenInvalid
		}

		acc, err := s.accounts.GetByID(ctx, sess.UserID)
		if err != nil {
			return err
		}
		if acc == nil || !acc.Active {
			return ErrInactiveAccount
		}

		if !opts.rotate() {
			access, accessExp, err := s.tokens.IssueAccess(acc.ID, now)
			if err != nil {
				return err
			}
			pair = &TokenPair{AccessToken: access, AccessExpiresAt: accessExp, SessionID: sess.ID}
			return nil
		}

		if _, err := s.sessions.Revoke(ctx, sess.ID, now); err != nil {
			return err
		}
		pair, err = s.issueSession(ctx, acc.ID, audit, now)
		return err
	})
	s.record(ctx, EventRefresh, subject, sessionID, err, now)
	if err != nil {
		return nil, err
	}
	ev := zerolog.Ctx(ctx).Info().
		Str("account_id", subject).
		Str("session_id", sessionID).
		Bool("rotated", opts.rotate())
	if opts.rotate() {
		ev = ev.Str("new_session_id", pair.SessionID)
	}
	ev.Msg("refresh")
	return pair, nil
}

// Logout revokes the session behind refreshToken if it is still active. It never fails: an
// invalid, expired or already revoked token is treated as already logged out, and store faults
// are logged.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	now := s.now()
	subject, sessionID, err := s.decodeRefresh(refreshToken, now)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("logout with unusable token")
		s.record(ctx, EventLogout, "", "", nil, now)
		return
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		sess, err := s.sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess == nil || !sess.IsActiveAt(now) {
			return nil
		}
		_, err = s.sessions.Revoke(ctx, sess.ID, now)
		return err
	})
	s.record(ctx, EventLogout, subject, sessionID, err, now)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("session_id", sessionID).Msg("logout: revoke session")
		return
	}
	zerolog.Ctx(ctx).Info().Str("account_id", subject).Str("session_id", sessionID).Msg("logout")
}

// RevokeAllSessions revokes every active session of accountID and returns how many were revoked.
func (s *AuthService) RevokeAllSessions(ctx context.Context, accountID string) (int64, error) {
	now := s.now()
	var n int64
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.sessions.RevokeAllByUser(ctx, accountID, now)
		return err
	})
	s.record(ctx, EventRevokeAll, accountID, "", err, now)
	if err != nil {
		return 0, err
	}
	zerolog.Ctx(ctx).Info().Str("account_id", accountID).Int64("revoked", n).Msg("all sessions revoked")
	return n, nil
}

// issueSession creates a session and its refresh token. The session is inserted with a
// placeholder hash to obtain its id, the refresh token is signed with that id, and the stored
// hash is then replaced with the hash of the exact signed string.
func (s *AuthService) issueSession(ctx context.Context, userID string, audit sessiondomain.Audit, now time.Time) (*TokenPair, error) {
	placeholder, err := security.NewPlaceholderHash()
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Create(ctx, sessionrepo.CreateParams{
		UserID:    userID,
		TokenHash: placeholder,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.tokens.RefreshTTL()),
		Audit:     audit,
	})
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := s.tokens.IssueRefresh(userID, sess.ID, now)
	if err != nil {
		return nil, err
	}
	updated, err := s.sessions.UpdateTokenHash(ctx, sess.ID, security.HashToken(refresh))
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, errors.New("session disappeared before its token hash was set")
	}

	access, accessExp, err := s.tokens.IssueAccess(userID, now)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		SessionID:        sess.ID,
	}, nil
}

// decodeRefresh verifies a refresh token and returns its subject and session id.
func (s *AuthService) decodeRefresh(token string, now time.Time) (subject, sessionID string, err error) {
	claims, err := s.tokens.Decode(token, now)
	if err != nil {
		return "", "", err
	}
	if err := security.RequireType(claims, security.TokenTypeRefresh); err != nil {
		return "", "", err
	}
	if subject, err = security.ExtractSubject(claims); err != nil {
		return "", "", err
	}
	if sessionID, err = security.ExtractSessionID(claims); err != nil {
		return "", "", err
	}
	return subject, sessionID, nil
}

func sessionIDOf(p *TokenPair) string {
	if p == nil {
		return ""
	}
	return p.SessionID
}
