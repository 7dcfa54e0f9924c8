package ports

import (
	"context"

	"github.com/samirrijal/gridveil/internal/core/domain"
)

// EventPublisher publishes job lifecycle events to a message broker.
type EventPublisher interface {
	PublishJobCompleted(ctx context.Context, event *domain.JobEvent) error
	PublishJobFailed(ctx context.Context, event *domain.JobEvent) error
}

// EventSubscriber subscribes to job lifecycle events from a message broker.
type EventSubscriber interface {
	SubscribeJobEvents(ctx context.Context, handler func(ctx context.Context, event *domain.JobEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
