package ports

import (
	"context"

	"github.com/layer-3/phoneauth/core"
)

// UserRepository looks up registered users
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*core.User, error)
	FindByID(ctx context.Context, id int64) (*core.User, error)
}
