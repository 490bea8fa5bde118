// Package redis provides the Redis-backed processed-event marker.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lorrc/identity-sync-backend/internal/core/ports"
)

// keyPrefix namespaces marker keys so the cache can be shared.
const keyPrefix = "identity-sync:event:"

// EventMarker remembers applied lifecycle event IDs with a TTL so
// redelivered events can be skipped without a store round trip. It is only
// written after a successful apply: a failed sync leaves no marker, so the
// provider's redelivery still lands.
type EventMarker struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.EventMarker = (*EventMarker)(nil)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*EventMarker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &EventMarker{client: client, ttl: ttl}, nil
}

// Key returns the cache key for an event ID.
func Key(eventID string) string {
	return keyPrefix + eventID
}

// Seen reports whether the event ID was marked as applied.
func (m *EventMarker) Seen(ctx context.Context, eventID string) (bool, error) {
	err := m.client.Get(ctx, Key(eventID)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Mark records the event ID as applied for the configured TTL.
func (m *EventMarker) Mark(ctx context.Context, eventID string) error {
	return m.client.Set(ctx, Key(eventID), "1", m.ttl).Err()
}

// Ping checks Redis connectivity.
func (m *EventMarker) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (m *EventMarker) Close() error {
	return m.client.Close()
}
