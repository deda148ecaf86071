package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/phoneauth/core"
	"github.com/layer-3/phoneauth/ports"
)

const (
	// DefaultChallengeTTL is how long an issued code stays verifiable
	DefaultChallengeTTL = 5 * time.Minute

	codeLength = 6
)

// CodeGenerator produces the one-time code for a new challenge
type CodeGenerator func() (string, error)

// RandomDigits generates a 6 digit numeric code from crypto/rand
func RandomDigits() (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// FixedCode always returns code. It is meant for development deployments
// where the code is read back from the captcha response.
func FixedCode(code string) CodeGenerator {
	return func() (string, error) {
		return code, nil
	}
}

// LoginResult is returned by a successful Login
type LoginResult struct {
	Credential core.Credential
	Identity   core.Identity
}

// AuthService handles authentication business logic
type AuthService struct {
	challenges ports.ChallengeStore
	tokenizer  ports.Tokenizer
	users      ports.UserRepository
	eventPub   ports.EventPublisher
	logger     *slog.Logger

	generateCode CodeGenerator
	challengeTTL time.Duration
	now          func() time.Time
}

// Option configures an AuthService
type Option func(*AuthService)

// WithCodeGenerator overrides how challenge codes are produced
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *AuthService) {
		s.generateCode = gen
	}
}

// WithChallengeTTL overrides the challenge lifetime
func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *AuthService) {
		if ttl > 0 {
			s.challengeTTL = ttl
		}
	}
}

// WithClock overrides the time source used when stamping challenges
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *AuthService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAuthService creates a new authentication service. eventPub may be nil.
func NewAuthService(
	challenges ports.ChallengeStore,
	tokenizer ports.Tokenizer,
	users ports.UserRepository,
	eventPub ports.EventPublisher,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		challenges:   challenges,
		tokenizer:    tokenizer,
		users:        users,
		eventPub:     eventPub,
		logger:       slog.Default(),
		generateCode: RandomDigits,
		challengeTTL: DefaultChallengeTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueChallenge creates and stores a new challenge
func (s *AuthService) IssueChallenge(ctx context.Context) (*core.Challenge, error) {
	code, err := s.generateCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	if err := s.challenges.Save(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	return challenge, nil
}

// Login verifies the challenge and issues a credential for username
func (s *AuthService) Login(ctx context.Context, username, code, challengeID string) (*LoginResult, error) {
	switch {
	case username == "":
		return nil, core.Missing("username")
	case code == "":
		return nil, core.Missing("code")
	case challengeID == "":
		return nil, core.Missing("challengeId")
	}

	if err := s.challenges.Verify(ctx, challengeID, code); err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, core.ErrUserNotFound) {
		return nil, core.ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	identity := user.Identity()
	cred, err := s.tokenizer.Issue(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to issue credential: %w", err)
	}

	s.publish(ctx, identity, true)

	return &LoginResult{Credential: cred, Identity: identity}, nil
}

// Logout records a logout. There is nothing to revoke server side; a valid
// token only identifies who logged out.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}

	identity, err := s.tokenizer.Verify(token)
	if err != nil {
		return
	}

	s.publish(ctx, identity, false)
}

// ValidateAccessToken returns the identity carried by token
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (core.Identity, error) {
	if token == "" {
		return core.Identity{}, core.ErrUnauthenticated
	}
	return s.tokenizer.Verify(token)
}

// CurrentProfile loads the profile of the authenticated identity
func (s *AuthService) CurrentProfile(ctx context.Context, identity core.Identity) (core.Profile, error) {
	user, err := s.users.FindByID(ctx, identity.ID)
	if err != nil {
		return core.Profile{}, err
	}
	return user.Profile(), nil
}

func (s *AuthService) publish(ctx context.Context, identity core.Identity, login bool) {
	if s.eventPub == nil {
		return
	}

	var err error
	if login {
		err = s.eventPub.PublishLogin(ctx, identity)
	} else {
		err = s.eventPub.PublishLogout(ctx, identity)
	}

	// Publication never fails the request
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish auth event",
			slog.Bool("login", login),
			slog.Int64("user_id", identity.ID),
			slog.Any("error", err))
	}
}
