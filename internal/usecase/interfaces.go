package usecase

import (
	"context"

	"marketchat/internal/infrastructure/events"
)

// SequenceGenerator orders messages that share a timestamp.
type SequenceGenerator interface {
	Generate() int64
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.MessageEvent) error
}
