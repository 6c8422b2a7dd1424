// Package memory is an in-process account and session store with the same semantics as the
// Postgres repositories. Transactions are serialized, which makes them trivially isolated.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	accountdomain "github.com/jesseKyomuhendo/auth-user-api/internal/account/domain"
	accountrepo "github.com/jesseKyomuhendo/auth-user-api/internal/account/repository"
	sessiondomain "github.com/jesseKyomuhendo/auth-user-api/internal/session/domain"
	sessionrepo "github.com/jesseKyomuhendo/auth-user-api/internal/session/repository"
)

// ErrUnknownAccount is returned when a session is created for an account that does not exist.
var ErrUnknownAccount = errors.New("session owner does not exist")

type txKey struct{}

// Store holds accounts and sessions in memory. Use Accounts and Sessions for the repository views.
type Store struct {
	// txMu serializes RunInTx; mu guards the maps for every individual call.
	txMu sync.Mutex
	mu   sync.Mutex

	accounts map[string]accountdomain.Account
	byEmail  map[string]string
	sessions map[string]sessiondomain.Session
	byHash   map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]accountdomain.Account),
		byEmail:  make(map[string]string),
		sessions: make(map[string]sessiondomain.Session),
		byHash:   make(map[string]string),
	}
}

// Accounts returns the account repository backed by s.
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

// Sessions returns the session repository backed by s.
func (s *Store) Sessions() *SessionRepository { return &SessionRepository{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

type snapshot struct {
	accounts map[string]accountdomain.Account
	byEmail  map[string]string
	sessions map[string]sessiondomain.Session
	byHash   map[string]string
}

// RunInTx runs fn with exclusive access to the store. When fn fails or panics every write it made
// is undone. Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		} else if err != nil {
			s.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, struct{}{}))
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		accounts: maps.Clone(s.accounts),
		byEmail:  maps.Clone(s.byEmail),
		sessions: maps.Clone(s.sessions),
		byHash:   maps.Clone(s.byHash),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = snap.accounts
	s.byEmail = snap.byEmail
	s.sessions = snap.sessions
	s.byHash = snap.byHash
}

// AccountRepository is the account view of a Store.
type AccountRepository struct {
	s *Store
}

var _ accountrepo.Repository = (*AccountRepository)(nil)

func (r *AccountRepository) GetByID(_ context.Context, id string) (*accountdomain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*accountdomain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.byEmail[email]
	if !ok {
		return nil, nil
	}
	a := r.s.accounts[id]
	return &a, nil
}

func (r *AccountRepository) Create(_ context.Context, a *accountdomain.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.byEmail[a.Email]; taken {
		return accountrepo.ErrEmailTaken
	}
	r.s.accounts[a.ID] = *a
	r.s.byEmail[a.Email] = a.ID
	return nil
}

func (r *AccountRepository) SetActive(_ context.Context, id string, active bool, at time.Time) (*accountdomain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, nil
	}
	a.Active = active
	a.UpdatedAt = at
	r.s.accounts[id] = a
	return &a, nil
}

// Delete removes the account and its sessions.
func (r *AccountRepository) Delete(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return false, nil
	}
	delete(r.s.accounts, id)
	delete(r.s.byEmail, a.Email)
	for sid, sess := range r.s.sessions {
		if sess.UserID == id {
			delete(r.s.sessions, sid)
			delete(r.s.byHash, sess.TokenHash)
		}
	}
	return true, nil
}

// SessionRepository is the session view of a Store.
type SessionRepository struct {
	s *Store
}

var _ sessionrepo.Repository = (*SessionRepository)(nil)

func (r *SessionRepository) Create(_ context.Context, p sessionrepo.CreateParams) (*sessiondomain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[p.UserID]; !ok {
		return nil, accountNotFound(p.UserID)
	}
	if _, taken := r.s.byHash[p.TokenHash]; taken {
		return nil, sessionrepo.ErrTokenHashConflict
	}
	sess := sessiondomain.Session{
		ID:        uuid.NewString(),
		UserID:    p.UserID,
		TokenHash: p.TokenHash,
		IssuedAt:  p.IssuedAt,
		ExpiresAt: p.ExpiresAt,
		Audit:     p.Audit,
	}
	r.s.sessions[sess.ID] = sess
	r.s.byHash[sess.TokenHash] = sess.ID
	return copySession(sess), nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*sessiondomain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(sess), nil
}

// GetByIDForUpdate is GetByID; transactions are already exclusive.
func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, id string) (*sessiondomain.Session, error) {
	return r.GetByID(ctx, id)
}

func (r *SessionRepository) GetByHash(_ context.Context, tokenHash string) (*sessiondomain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	return copySession(r.s.sessions[id]), nil
}

func (r *SessionRepository) UpdateTokenHash(_ context.Context, id, tokenHash string) (*sessiondomain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, nil
	}
	if owner, taken := r.s.byHash[tokenHash]; taken && owner != id {
		return nil, sessionrepo.ErrTokenHashConflict
	}
	delete(r.s.byHash, sess.TokenHash)
	sess.TokenHash = tokenHash
	r.s.sessions[id] = sess
	r.s.byHash[tokenHash] = id
	return copySession(sess), nil
}

func (r *SessionRepository) Revoke(_ context.Context, id string, at time.Time) (*sessiondomain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, nil
	}
	if sess.RevokedAt == nil {
		t := at
		sess.RevokedAt = &t
		r.s.sessions[id] = sess
	}
	return copySession(sess), nil
}

func (r *SessionRepository) RevokeAllByUser(_ context.Context, userID string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, sess := range r.s.sessions {
		if sess.UserID != userID || sess.RevokedAt != nil {
			continue
		}
		t := at
		sess.RevokedAt = &t
		r.s.sessions[id] = sess
		n++
	}
	return n, nil
}

func accountNotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrUnknownAccount, id)
}

// copySession detaches the RevokedAt pointer from the stored value.
func copySession(sess sessiondomain.Session) *sessiondomain.Session {
	if sess.RevokedAt != nil {
		t := *sess.RevokedAt
		sess.RevokedAt = &t
	}
	return &sess
}
