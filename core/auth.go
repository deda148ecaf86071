package core

import (
	"context"
	"time"
)

// Challenge represents a one-time verification code issued to a caller
type Challenge struct {
	ID        string    // Opaque challenge identifier
	Code      string    // Code the caller must echo back
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge stops being verifiable
}

// Expired reports whether the challenge can no longer be verified at now
func (c *Challenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Identity is the authenticated principal carried by a credential
type Identity struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// AvatarInfo is supplementary display data for a user
type AvatarInfo struct {
	UserID    int64  `json:"userId"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// User is a registered account known to the user directory
type User struct {
	ID          int64
	Username    string // Phone number
	DisplayName string
	Avatar      *AvatarInfo
}

// Identity returns the stable identity fields of the user
func (u *User) Identity() Identity {
	return Identity{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
	}
}

// Profile is the identity enriched with display data
type Profile struct {
	ID          int64       `json:"id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"displayName"`
	AvatarInfo  *AvatarInfo `json:"avatarInfo,omitempty"`
}

// Profile builds the profile view of the user
func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarInfo:  u.Avatar,
	}
}

// Credential is an issued bearer token and its validity window
type Credential struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the verified identity
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext extracts the identity stored by WithIdentity
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
