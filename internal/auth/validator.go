// Package auth resolves session tokens to user identities. Tokens are
// issued by the account system; this subsystem only validates them.
package auth

import (
	"context"

	"chatrelay/internal/errors"
	"chatrelay/internal/validation"
)

// SessionTypeLogin is the session class accepted for realtime connections
// and polling requests.
const SessionTypeLogin = "login"

// TokenValidator resolves a session token to a user ID.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (int64, error)
}

// SessionStore is the subset of the database used for token lookups.
type SessionStore interface {
	GetSessionUserID(ctx context.Context, token, sessionType string) (int64, bool, error)
}

// Validator validates tokens against the sessions store.
type Validator struct {
	store SessionStore
}

// NewValidator creates a store-backed token validator.
func NewValidator(store SessionStore) *Validator {
	return &Validator{store: store}
}

// ValidateToken resolves token to a user ID. Expired and unknown tokens
// fail identically so probing reveals nothing.
func (v *Validator) ValidateToken(ctx context.Context, token string) (int64, error) {
	if err := validation.ValidateToken(token); err != nil {
		return 0, errors.NewAuthError("malformed token")
	}

	userID, ok, err := v.store.GetSessionUserID(ctx, token, SessionTypeLogin)
	if err != nil {
		return 0, errors.NewDatabaseError("session lookup", err)
	}
	if !ok {
		return 0, errors.NewAuthError("unknown or expired token")
	}

	return userID, nil
}
