package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	accountdomain "github.com/jesseKyomuhendo/auth-user-api/internal/account/domain"
	accountrepo "github.com/jesseKyomuhendo/auth-user-api/internal/account/repository"
	"github.com/jesseKyomuhendo/auth-user-api/internal/security"
	sessiondomain "github.com/jesseKyomuhendo/auth-user-api/internal/session/domain"
	sessionrepo "github.com/jesseKyomuhendo/auth-user-api/internal/session/repository"
)

// Sentinel errors for auth service; handler maps them to gRPC codes. Store failures are returned
// as-is and are not one of these.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrInactiveAccount        = errors.New("account is inactive")
	ErrRefreshTokenInvalid    = errors.New("invalid or expired refresh token")
	ErrUnauthenticated        = errors.New("not authenticated")
	ErrAccountNotFound        = errors.New("account not found")
	// ErrInvalidArgument wraps every input validation failure.
	ErrInvalidArgument = errors.New("invalid argument")
)

const (
	minPasswordLen  = 8
	maxPasswordLen  = 72 // bcrypt input limit in bytes
	maxFullNameLen  = 255
	simpleEmailExpr = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
)

var simpleEmail = regexp.MustCompile(simpleEmailExpr)

// AccountRepo is the minimal account repository needed by the auth service.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
	GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error)
	Create(ctx context.Context, a *accountdomain.Account) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) (*accountdomain.Account, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, p sessionrepo.CreateParams) (*sessiondomain.Session, error)
	GetByIDForUpdate(ctx context.Context, id string) (*sessiondomain.Session, error)
	UpdateTokenHash(ctx context.Context, id, tokenHash string) (*sessiondomain.Session, error)
	Revoke(ctx context.Context, id string, at time.Time) (*sessiondomain.Session, error)
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

// TxRunner runs fn as one unit of work: all of its writes commit together or none do.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TokenPair is the result of Login and Refresh. RefreshToken is empty when Refresh did not rotate.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

// RefreshOptions controls Refresh. A nil Rotate means rotate.
type RefreshOptions struct {
	Rotate *bool
}

func (o RefreshOptions) rotate() bool {
	return o.Rotate == nil || *o.Rotate
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// WithEventRecorder sets where session lifecycle events are reported.
func WithEventRecorder(r EventRecorder) Option {
	return func(s *AuthService) { s.events = r }
}

// AuthService implements registration, login, refresh with rotation, logout and access-token
// authentication. Each public operation runs in exactly one transaction.
type AuthService struct {
	accounts AccountRepo
	sessions SessionRepo
	tx       TxRunner
	hasher   *security.Hasher
	tokens   *security.TokenCodec
	now      func() time.Time
	events   EventRecorder
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	accounts AccountRepo,
	sessions SessionRepo,
	tx TxRunner,
	hasher *security.Hasher,
	tokens *security.TokenCodec,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		accounts: accounts,
		sessions: sessions,
		tx:       tx,
		hasher:   hasher,
		tokens:   tokens,
		now:      func() time.Time { return time.Now().UTC() },
		events:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an active, non-admin account. The email is trimmed and lowercased.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*accountdomain.Account, error) {
	return s.CreateAccount(ctx, email, password, fullName, false)
}

// CreateAccount is Register with control over the admin flag. Used to bootstrap administrators.
func (s *AuthService) CreateAccount(ctx context.Context, email, password, fullName string, admin bool) (*accountdomain.Account, error) {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(fullName) > maxFullNameLen {
		return nil, fmt.Errorf("%w: full name must be at most %d characters", ErrInvalidArgument, maxFullNameLen)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	acc := &accountdomain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hashed,
		Active:       true,
		Admin:        admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.accounts.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyRegistered
		}
		if err := s.accounts.Create(ctx, acc); err != nil {
			if errors.Is(err, accountrepo.ErrEmailTaken) {
				return ErrEmailAlreadyRegistered
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("account_id", acc.ID).Bool("admin", admin).Msg("account registered")
	return acc, nil
}

// Authenticate resolves the account behind an access token. Any token problem, an unknown
// account or an inactive account is ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*accountdomain.Account, error) {
	claims, err := s.tokens.Decode(accessToken, s.now())
	if err == nil {
		err = security.RequireType(claims, security.TokenTypeAccess)
	}
	var subject string
	if err == nil {
		subject, err = security.ExtractSubject(claims)
	}
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("access token rejected")
		return nil, ErrUnauthenticated
	}

	var acc *accountdomain.Account
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		acc, err = s.accounts.GetByID(ctx, subject)
		if err != nil {
			return err
		}
		if acc == nil || !acc.Active {
			return ErrUnauthenticated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// GetAccount returns the account with id.
func (s *AuthService) GetAccount(ctx context.Context, id string) (*accountdomain.Account, error) {
	var acc *accountdomain.Account
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		acc, err = s.accounts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if acc == nil {
			return ErrAccountNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// SetAccountActive enables or disables an account. Existing sessions are kept; a disabled account
// fails at its next refresh or login.
func (s *AuthService) SetAccountActive(ctx context.Context, accountID string, active bool) (*accountdomain.Account, error) {
	var acc *accountdomain.Account
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		acc, err = s.accounts.SetActive(ctx, accountID, active, s.now())
		if err != nil {
			return err
		}
		if acc == nil {
			return ErrAccountNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("account_id", accountID).Bool("active", active).Msg("account active flag changed")
	return acc, nil
}

// DeleteAccount removes the account together with all of its sessions.
func (s *AuthService) DeleteAccount(ctx context.Context, accountID string) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		deleted, err := s.accounts.Delete(ctx, accountID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrAccountNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("account_id", accountID).Msg("account deleted")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidArgument)
	}
	if !simpleEmail.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", ErrInvalidArgument)
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidArgument, maxPasswordLen)
	}
	return nil
}
