// Package authv1 is the wire contract of auth.v1.AuthService. Messages are plain structs carried by the
// JSON codec registered in codec.go.
package authv1

import "time"

// Account is the public view of an account. It never carries the password digest.
type Account struct {
	Id        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Active    bool      `json:"active"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

func (r *RegisterRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

func (r *RegisterRequest) GetPassword() string {
	if r == nil {
		return ""
	}
	return r.Password
}

func (r *RegisterRequest) GetFullName() string {
	if r == nil {
		return ""
	}
	return r.FullName
}

type RegisterResponse struct {
	Account *Account `json:"account"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

func (r *LoginRequest) GetPassword() string {
	if r == nil {
		return ""
	}
	return r.Password
}

// TokenResponse is returned by Login and Refresh. TokenType is always "bearer".
type TokenResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitzero"`
	SessionId        string    `json:"session_id"`
}

// RefreshRequest exchanges a refresh token. A nil Rotate means rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Rotate       *bool  `json:"rotate,omitempty"`
}

func (r *RefreshRequest) GetRefreshToken() string {
	if r == nil {
		return ""
	}
	return r.RefreshToken
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *LogoutRequest) GetRefreshToken() string {
	if r == nil {
		return ""
	}
	return r.RefreshToken
}

type LogoutAllRequest struct{}

type LogoutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

type MeRequest struct{}

type SetAccountActiveRequest struct {
	AccountId string `json:"account_id"`
	Active    bool   `json:"active"`
}

func (r *SetAccountActiveRequest) GetAccountId() string {
	if r == nil {
		return ""
	}
	return r.AccountId
}

// DeleteAccountRequest deletes AccountId, or the caller's own account when it is empty.
type DeleteAccountRequest struct {
	AccountId string `json:"account_id,omitempty"`
}

func (r *DeleteAccountRequest) GetAccountId() string {
	if r == nil {
		return ""
	}
	return r.AccountId
}
