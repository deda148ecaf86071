package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := &Challenge{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, c.Expired(now))
	assert.True(t, c.Expired(now.Add(time.Minute)), "expiry instant is already expired")
	assert.True(t, c.Expired(now.Add(2*time.Minute)))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	want := Identity{ID: 1, Username: "18218162327"}
	got, ok := IdentityFromContext(WithIdentity(context.Background(), want))
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := Missing("username")

	assert.True(t, errors.Is(err, ErrValidation))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "username", verr.Field)
}

func TestUserViews(t *testing.T) {
	u := &User{ID: 1, Username: "18218162327", DisplayName: "测试用户", Avatar: &AvatarInfo{UserID: 1, AvatarURL: "https://example.com/a.png"}}

	assert.Equal(t, Identity{ID: 1, Username: "18218162327", DisplayName: "测试用户"}, u.Identity())
	p := u.Profile()
	assert.Equal(t, u.Avatar, p.AvatarInfo)
	assert.Equal(t, "测试用户", p.DisplayName)
}
