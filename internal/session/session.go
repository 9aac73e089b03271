// Package session stores the OAuth state and tokens of relay sessions.
package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

type UserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// AuthData is what the relay keeps after a successful Google sign-in.
type AuthData struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserInfo     UserInfo  `json:"user_info"`
}

// Expired reports whether the access token is past its expiry. A zero
// expiry never expires.
func (a AuthData) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt)
}

// Data is one session. State is the pending OAuth state parameter.
type Data struct {
	State string    `json:"state,omitempty"`
	Auth  *AuthData `json:"auth,omitempty"`
}

// Store persists sessions by id. Load returns ErrNotFound for unknown or
// expired ids.
type Store interface {
	Load(ctx context.Context, id string) (Data, error)
	Save(ctx context.Context, id string, data Data) error
	Delete(ctx context.Context, id string) error
}
