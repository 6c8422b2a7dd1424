package service

import (
	"context"
	"errors"
	"time"
)

// EventType names a session lifecycle event.
type EventType string

const (
	EventLogin     EventType = "login"
	EventRefresh   EventType = "refresh"
	EventLogout    EventType = "logout"
	EventRevokeAll EventType = "revoke_all"
)

// Outcomes reported with events.
const (
	OutcomeSuccess             = "success"
	OutcomeInvalidCredentials  = "invalid_credentials"
	OutcomeInactiveAccount     = "inactive_account"
	OutcomeRefreshTokenInvalid = "refresh_token_invalid"
	OutcomeError               = "error"
)

// Event is one session lifecycle event. It never carries tokens, hashes or passwords.
type Event struct {
	Type      EventType
	UserID    string
	SessionID string
	Outcome   string
	At        time.Time
}

// EventRecorder receives session lifecycle events. Record must not block on I/O for long; it is
// called synchronously after each operation's transaction ends.
type EventRecorder interface {
	Record(ctx context.Context, e Event)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Event) {}

func (s *AuthService) record(ctx context.Context, typ EventType, userID, sessionID string, err error, at time.Time) {
	s.events.Record(ctx, Event{
		Type:      typ,
		UserID:    userID,
		SessionID: sessionID,
		Outcome:   outcomeOf(err),
		At:        at,
	})
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeInvalidCredentials
	case errors.Is(err, ErrInactiveAccount):
		return OutcomeInactiveAccount
	case errors.Is(err, ErrRefreshTokenInvalid):
		return OutcomeRefreshTokenInvalid
	default:
		return OutcomeError
	}
}
