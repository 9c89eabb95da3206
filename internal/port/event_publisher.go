package port

import (
	"context"

	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}
