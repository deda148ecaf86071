package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/phoneauth/core"
	"github.com/layer-3/phoneauth/ports"
	"github.com/redis/go-redis/v9"
)

// verifyScript consumes the key only when the stored code matches.
// Returns 1 on match, 0 on mismatch and -1 when the key is absent.
var verifyScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return -1
end
if v == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

// RedisStore is a Redis implementation of the ChallengeStore interface.
// Expiry is delegated to key TTLs, so no sweeping is needed on Save.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a new Redis challenge store
func NewRedisStore(client *redis.Client) ports.ChallengeStore {
	return &RedisStore{
		client: client,
		prefix: "phoneauth:challenge:",
		now:    time.Now,
	}
}

// Save stores the challenge code with a TTL matching its expiry
func (s *RedisStore) Save(ctx context.Context, challenge *core.Challenge) error {
	ttl := challenge.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, s.prefix+challenge.ID, challenge.Code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}

	return nil
}

// Verify compares code with the stored challenge and consumes it on match
func (s *RedisStore) Verify(ctx context.Context, id, code string) error {
	res, err := verifyScript.Run(ctx, s.client, []string{s.prefix + id}, strings.ToUpper(code)).Int()
	if err != nil {
		return fmt.Errorf("failed to verify challenge: %w", err)
	}

	switch res {
	case 1:
		return nil
	case 0:
		return core.ErrChallengeMismatch
	default:
		return core.ErrChallengeExpiredOrMissing
	}
}
