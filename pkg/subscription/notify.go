package subscription

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bizflow/bizgate/pkg/async"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/go-redis/redis/v8"
)

// DefaultChannel is the Redis channel change notifications travel on
const DefaultChannel = "bizgate:subscription:changes"

// ChangeKind says what changed
type ChangeKind string

const (
	// ChangeSubscription is a plan change, cancellation or expiry of one user
	ChangeSubscription ChangeKind = "subscription"
	// ChangeCredits is a balance change of one user made outside this process
	ChangeCredits ChangeKind = "credits"
	// ChangePlans is an edit of the plan catalog and concerns every user
	ChangePlans ChangeKind = "plans"
)

// Change asks holders of subscription state to reload
type Change struct {
	UserID string     `json:"user_id,omitempty"`
	Kind   ChangeKind `json:"kind"`
}

// AllUsers reports whether c concerns every user
func (c Change) AllUsers() bool {
	return c.Kind == ChangePlans
}

// Notifier publishes changes
type Notifier interface {
	Publish(ctx context.Context, c Change) error
}

// RedisNotifier publishes and receives changes over Redis pub/sub
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *observability.Logger
}

// NewRedisNotifier creates a notifier on channel, or DefaultChannel when empty
func NewRedisNotifier(client *redis.Client, channel string, logger *observability.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

// Publish sends c to every subscriber
func (n *RedisNotifier) Publish(ctx context.Context, c Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Subscribe returns decoded changes until ctx is done. The subscription is
// confirmed before Subscribe returns. Malformed messages are logged and
// skipped.
func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan Change, error) {
	pubsub := n.client.Subscribe(ctx, n.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}

	out := make(chan Change, 64)
	async.Go(n.logger, "subscription change listener", func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil || c.Kind == "" {
					n.logger.WithField("payload", msg.Payload).Warn("ignoring malformed subscription change")
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	})
	return out, nil
}

// NopNotifier drops every change
type NopNotifier struct{}

// Publish implements Notifier
func (NopNotifier) Publish(context.Context, Change) error { return nil }
