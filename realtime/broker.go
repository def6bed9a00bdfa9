package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lostfound/notification"
)

const channelPrefix = "lostfound:notify:"

// anonymousChannel receives events that could not be attributed to a user.
const anonymousChannel = channelPrefix + "anonymous"

// UserChannel returns the pub/sub channel name carrying events for userID.
// An empty identity maps to the shared anonymous channel.
func UserChannel(userID string) string {
	if userID == "" {
		return anonymousChannel
	}
	return channelPrefix + userID
}

// Broker fans notification events out over Redis pub/sub. Subscribers that
// are offline simply miss the event; the persisted notification row remains
// the source of truth.
type Broker struct {
	client *redis.Client
}

// NewBroker connects to Redis at redisURL and verifies the connection.
// Returns nil, nil if the URL is empty, so realtime delivery stays optional.
func NewBroker(ctx context.Context, redisURL string) (*Broker, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("realtime: parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("realtime: redis ping failed: %w", err)
	}

	return &Broker{client: client}, nil
}

// Publish sends the event to the recipient's channel as JSON.
func (b *Broker) Publish(ctx context.Context, userID string, event notification.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime: marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, UserChannel(userID), payload).Err(); err != nil {
		return fmt.Errorf("realtime: publish: %w", err)
	}
	return nil
}

// Subscribe opens a channel of decoded events for userID. Cancel the context
// to stop; the returned channel closes once the subscription is drained.
func (b *Broker) Subscribe(ctx context.Context, userID string) (<-chan notification.Event, error) {
	sub := b.client.Subscribe(ctx, UserChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("realtime: subscribe: %w", err)
	}

	out := make(chan notification.Event)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event notification.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Health checks the Redis connection.
func (b *Broker) Health(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close tears down the Redis connection.
func (b *Broker) Close() error {
	return b.client.Close()
}
