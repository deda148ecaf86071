package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/layer-3/phoneauth/adapters/store"
	"github.com/layer-3/phoneauth/adapters/tokenizer"
	"github.com/layer-3/phoneauth/adapters/users"
	"github.com/layer-3/phoneauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	logins  []core.Identity
	logouts []core.Identity
	err     error
}

func (p *recordingPublisher) PublishLogin(ctx context.Context, identity core.Identity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, identity)
	return p.err
}

func (p *recordingPublisher) PublishLogout(ctx context.Context, identity core.Identity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, identity)
	return p.err
}

func newTestService(t *testing.T, opts ...Option) (*AuthService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	svc := NewAuthService(
		store.NewMemoryStore(),
		tokenizer.NewJWTTokenizer("test-secret"),
		users.NewDevelopmentRepository(),
		pub,
		append([]Option{WithCodeGenerator(FixedCode("123456"))}, opts...)...,
	)
	return svc, pub
}

func TestRandomDigits(t *testing.T) {
	code, err := RandomDigits()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), code)
}

func TestIssueChallenge(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, WithClock(func() time.Time { return now }))

	c1, err := svc.IssueChallenge(context.Background())
	require.NoError(t, err)
	c2, err := svc.IssueChallenge(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, c1.ID, c2.ID)
	assert.Equal(t, "123456", c1.Code)
	assert.Equal(t, now.Add(5*time.Minute), c1.ExpiresAt)
}

func TestIssueChallengeGeneratorFailure(t *testing.T) {
	svc, _ := newTestService(t, WithCodeGenerator(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))

	_, err := svc.IssueChallenge(context.Background())
	assert.Error(t, err)
}

func TestLoginSuccess(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)

	c, err := svc.IssueChallenge(ctx)
	require.NoError(t, err)

	res, err := svc.Login(ctx, "18218162327", "123456", c.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Credential.Token)
	assert.Equal(t, core.Identity{ID: 1, Username: "18218162327", DisplayName: "测试用户"}, res.Identity)

	identity, err := svc.ValidateAccessToken(ctx, res.Credential.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), identity.ID)

	require.Len(t, pub.logins, 1)
	assert.Equal(t, int64(1), pub.logins[0].ID)
}

func TestLoginValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	cases := []struct {
		username, code, challengeID, field string
	}{
		{"", "123456", "abc", "username"},
		{"18218162327", "", "abc", "code"},
		{"18218162327", "123456", "", "challengeId"},
	}
	for _, tc := range cases {
		_, err := svc.Login(ctx, tc.username, tc.code, tc.challengeID)
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, tc.field, verr.Field)
	}
}

func TestLoginChallengeFailures(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)

	_, err := svc.Login(ctx, "18218162327", "123456", "missing")
	assert.ErrorIs(t, err, core.ErrChallengeExpiredOrMissing)

	c, err := svc.IssueChallenge(ctx)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "18218162327", "000000", c.ID)
	assert.ErrorIs(t, err, core.ErrChallengeMismatch)

	// A mismatch leaves the challenge usable
	_, err = svc.Login(ctx, "18218162327", "123456", c.ID)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "18218162327", "123456", c.ID)
	assert.ErrorIs(t, err, core.ErrChallengeExpiredOrMissing)
	assert.Len(t, pub.logins, 1)
}

func TestLoginUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)

	c, err := svc.IssueChallenge(ctx)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "13800000000", "123456", c.ID)
	assert.ErrorIs(t, err, core.ErrUnknownUser)
	assert.Empty(t, pub.logins)
}

func TestLoginPublishFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)
	pub.err = errors.New("broker down")

	c, err := svc.IssueChallenge(ctx)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "18218162327", "123456", c.ID)
	assert.NoError(t, err)
}

func TestLogoutPublishesOnlyForValidToken(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)

	svc.Logout(ctx, "")
	svc.Logout(ctx, "garbage")
	assert.Empty(t, pub.logouts)

	c, err := svc.IssueChallenge(ctx)
	require.NoError(t, err)
	res, err := svc.Login(ctx, "18218162327", "123456", c.ID)
	require.NoError(t, err)

	svc.Logout(ctx, res.Credential.Token)
	require.Len(t, pub.logouts, 1)
	assert.Equal(t, "18218162327", pub.logouts[0].Username)
}

func TestValidateAccessToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.ValidateAccessToken(ctx, "")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = svc.ValidateAccessToken(ctx, "bad.token.value")
	assert.ErrorIs(t, err, core.ErrInvalidCredential)
}

func TestCurrentProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	p, err := svc.CurrentProfile(ctx, core.Identity{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, "测试用户", p.DisplayName)
	require.NotNil(t, p.AvatarInfo)
	assert.Equal(t, int64(1), p.AvatarInfo.UserID)

	_, err = svc.CurrentProfile(ctx, core.Identity{ID: 99})
	assert.ErrorIs(t, err, core.ErrUserNotFound)
}
