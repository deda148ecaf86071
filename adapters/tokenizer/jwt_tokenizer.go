package tokenizer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/phoneauth/core"
	"github.com/layer-3/phoneauth/ports"
)

const (
	// DevelopmentSecret signs tokens when no secret is configured.
	// Anyone who knows it can forge credentials.
	DevelopmentSecret = "fallback-secret"

	// DefaultTokenTTL is the validity window of issued credentials
	DefaultTokenTTL = 7 * 24 * time.Hour

	AudienceAccess = "phoneauth:access"
)

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs
type JWTTokenizer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a JWTTokenizer
type Option func(*JWTTokenizer)

// WithTTL overrides the credential validity window
func WithTTL(ttl time.Duration) Option {
	return func(j *JWTTokenizer) {
		if ttl > 0 {
			j.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for issuing and verifying
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) {
		j.now = now
	}
}

// NewJWTTokenizer creates a new JWT tokenizer. An empty secret selects
// DevelopmentSecret.
func NewJWTTokenizer(secret string, opts ...Option) ports.Tokenizer {
	if secret == "" {
		secret = DevelopmentSecret
	}

	j := &JWTTokenizer{
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Issue signs a credential for identity valid for the configured TTL
func (j *JWTTokenizer) Issue(identity core.Identity) (core.Credential, error) {
	now := j.now()
	expiresAt := now.Add(j.ttl)

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		UserID:   identity.ID,
		Username: identity.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(j.secret)
	if err != nil {
		return core.Credential{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return core.Credential{
		Token:     signedToken,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks signature and expiry. Every failure collapses into
// core.ErrInvalidCredential so callers cannot tell expired from forged.
func (j *JWTTokenizer) Verify(tokenStr string) (core.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(AudienceAccess),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !token.Valid {
		return core.Identity{}, core.ErrInvalidCredential
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || claims.Username == "" {
		return core.Identity{}, core.ErrInvalidCredential
	}

	return core.Identity{
		ID:       claims.UserID,
		Username: claims.Username,
	}, nil
}
