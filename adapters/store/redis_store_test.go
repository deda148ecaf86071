package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/layer-3/phoneauth/core"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client).(*RedisStore), mr
}

func TestRedisStoreVerifyConsumes(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	c := &core.Challenge{ID: "abc", Code: "123456", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(5 * time.Minute)}
	require.NoError(t, s.Save(ctx, c))
	assert.True(t, mr.Exists("phoneauth:challenge:abc"))

	assert.ErrorIs(t, s.Verify(ctx, "abc", "999999"), core.ErrChallengeMismatch)
	require.NoError(t, s.Verify(ctx, "abc", "123456"))
	assert.ErrorIs(t, s.Verify(ctx, "abc", "123456"), core.ErrChallengeExpiredOrMissing)
	assert.False(t, mr.Exists("phoneauth:challenge:abc"))
}

func TestRedisStoreUppercasesSuppliedCode(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	c := &core.Challenge{ID: "abc", Code: "XY12ZW", ExpiresAt: time.Now().Add(5 * time.Minute)}
	require.NoError(t, s.Save(ctx, c))
	assert.NoError(t, s.Verify(ctx, "abc", "xy12zw"))
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	c := &core.Challenge{ID: "abc", Code: "123456", ExpiresAt: time.Now().Add(5 * time.Minute)}
	require.NoError(t, s.Save(ctx, c))

	mr.FastForward(5*time.Minute + time.Second)
	assert.ErrorIs(t, s.Verify(ctx, "abc", "123456"), core.ErrChallengeExpiredOrMissing)
}

func TestRedisStoreSkipsExpiredChallenge(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	c := &core.Challenge{ID: "gone", Code: "123456", ExpiresAt: time.Now().Add(-time.Second)}
	require.NoError(t, s.Save(ctx, c))
	assert.False(t, mr.Exists("phoneauth:challenge:gone"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	mr.Close()

	err := s.Verify(ctx, "abc", "123456")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrChallengeMismatch)
}
