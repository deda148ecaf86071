package ports

import (
	"context"

	"github.com/layer-3/phoneauth/core"
)

// ChallengeStore keeps issued challenges until they are consumed or expire
type ChallengeStore interface {
	// Save stores a freshly issued challenge
	Save(ctx context.Context, challenge *core.Challenge) error

	// Verify checks code against the challenge stored under id.
	// A match consumes the challenge; a mismatch leaves it in place.
	Verify(ctx context.Context, id, code string) error
}
