package ports

import (
	"context"

	"github.com/layer-3/phoneauth/core"
)

// EventPublisher publishes authentication audit events
type EventPublisher interface {
	PublishLogin(ctx context.Context, identity core.Identity) error
	PublishLogout(ctx context.Context, identity core.Identity) error
}
