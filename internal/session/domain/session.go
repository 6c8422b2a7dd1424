package domain

import "time"

// Audit is optional client metadata captured when a session is created. It is never used for
// authorization decisions.
type Audit struct {
	UserAgent string
	IPAddress string
}

// Session is the server-side half of a refresh token. Only the hash of the token is stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time // nil when not revoked; once set it is never cleared
	Audit     Audit
}

// IsActiveAt reports whether the session is unrevoked and unexpired at now.
func (s *Session) IsActiveAt(now time.Time) bool {
	if s == nil || s.RevokedAt != nil {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// Revoked reports whether the session has been revoked.
func (s *Session) Revoked() bool {
	return s != nil && s.RevokedAt != nil
}
