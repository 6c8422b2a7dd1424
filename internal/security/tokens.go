package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a token is malformed or invalid. Every *TokenError matches it
// under errors.Is.
var ErrInvalidToken = errors.New("invalid token")

// TokenType tags a token with its purpose so one kind cannot be presented where the other is required.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Supported signing algorithms.
const (
	AlgHS256 = "HS256"
	AlgRS256 = "RS256"
	AlgES256 = "ES256"
)

// minSecretLen is the minimum HS256 secret length in bytes.
const minSecretLen = 32

// Claims holds the JWT claims for both token types. SessionID is only set on refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Type      TokenType `json:"typ"`
	SessionID string    `json:"sid,omitempty"`
}

// TokenError describes why a token was rejected. It stays inside the core and is translated by callers.
type TokenError struct {
	Reason string
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid token: %s: %v", e.Reason, e.Err)
	}
	return "invalid token: " + e.Reason
}

func (e *TokenError) Unwrap() error { return e.Err }

// Is reports true for ErrInvalidToken.
func (e *TokenError) Is(target error) bool { return target == ErrInvalidToken }

func tokenError(reason string, err error) error {
	return &TokenError{Reason: reason, Err: err}
}

// CodecConfig configures a TokenCodec. Secret is used for HS256; PrivateKey/PublicKey for RS256 and ES256.
// When PublicKey is nil it is derived from PrivateKey.
type CodecConfig struct {
	Algorithm  string
	Secret     []byte
	PrivateKey crypto.Signer
	PublicKey  crypto.PublicKey
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenCodec issues and decodes signed access and refresh tokens. The algorithm and keys are fixed
// at construction; a TokenCodec is safe for concurrent use.
type TokenCodec struct {
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec validates cfg and returns a TokenCodec.
func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token ttls must be positive")
	}
	c := &TokenCodec{
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
	switch cfg.Algorithm {
	case AlgHS256, "":
		if len(cfg.Secret) < minSecretLen {
			return nil, fmt.Errorf("HS256 secret must be at least %d bytes", minSecretLen)
		}
		c.method = jwt.SigningMethodHS256
		c.signKey = cfg.Secret
		c.verifyKey = cfg.Secret
	case AlgRS256, AlgES256:
		if cfg.PrivateKey == nil {
			return nil, ErrInvalidKey
		}
		pub := cfg.PublicKey
		if pub == nil {
			pub = cfg.PrivateKey.Public()
		}
		if KeyAlg(pub) != cfg.Algorithm || KeyAlg(cfg.PrivateKey.Public()) != cfg.Algorithm {
			return nil, fmt.Errorf("%w: key type does not match %s", ErrInvalidKey, cfg.Algorithm)
		}
		if cfg.Algorithm == AlgRS256 {
			c.method = jwt.SigningMethodRS256
		} else {
			c.method = jwt.SigningMethodES256
		}
		c.signKey = cfg.PrivateKey
		c.verifyKey = pub
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	return c, nil
}

// AccessTTL returns the lifetime of access tokens.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the lifetime of refresh tokens and their session records.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// Algorithm returns the configured signing algorithm name.
func (c *TokenCodec) Algorithm() string { return c.method.Alg() }

// IssueAccess issues a short-lived access token for subject. Expiry is now + access TTL.
func (c *TokenCodec) IssueAccess(subject string, now time.Time) (string, time.Time, error) {
	return c.issue(subject, TokenTypeAccess, "", now, c.accessTTL)
}

// IssueRefresh issues a long-lived refresh token bound to sessionID. Expiry is now + refresh TTL.
func (c *TokenCodec) IssueRefresh(subject, sessionID string, now time.Time) (string, time.Time, error) {
	if sessionID == "" {
		return "", time.Time{}, errors.New("refresh token requires a session id")
	}
	return c.issue(subject, TokenTypeRefresh, sessionID, now, c.refreshTTL)
}

func (c *TokenCodec) issue(subject string, typ TokenType, sessionID string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now = now.UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type:      typ,
		SessionID: sessionID,
	}
	if c.audience != "" {
		claims.Audience = jwt.ClaimStrings{c.audience}
	}
	token, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Decode verifies the signature, algorithm, expiry, issuer and audience of tokenString as of now.
// Only the configured algorithm is accepted. Failures are returned as *TokenError.
func (c *TokenCodec) Decode(tokenString string, now time.Time) (*Claims, error) {
	if tokenString == "" {
		return nil, tokenError("empty token", nil)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}
	claims := &Claims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.verifyKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, tokenError("expired", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, tokenError("signature", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, tokenError("malformed", err)
		default:
			return nil, tokenError("claims", err)
		}
	}
	if !token.Valid {
		return nil, tokenError("not valid", nil)
	}
	return claims, nil
}

// RequireType fails unless claims carry the expected type tag.
func RequireType(claims *Claims, expected TokenType) error {
	if claims == nil {
		return tokenError("missing claims", nil)
	}
	if claims.Type != expected {
		return tokenError(fmt.Sprintf("type %q, want %q", claims.Type, expected), nil)
	}
	return nil
}

// ExtractSubject returns the subject claim in canonical UUID form.
func ExtractSubject(claims *Claims) (string, error) {
	if claims == nil || claims.Subject == "" {
		return "", tokenError("missing subject", nil)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", tokenError("malformed subject", err)
	}
	return id.String(), nil
}

// ExtractSessionID returns the session id of a refresh token in canonical UUID form.
func ExtractSessionID(claims *Claims) (string, error) {
	if claims == nil {
		return "", tokenError("missing claims", nil)
	}
	if claims.Type != TokenTypeRefresh {
		return "", tokenError("session id on non-refresh token", nil)
	}
	if claims.SessionID == "" {
		return "", tokenError("missing session id", nil)
	}
	id, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return "", tokenError("malformed session id", err)
	}
	return id.String(), nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
