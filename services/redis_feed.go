package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"crm_dashboard_go/models"

	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "crm:changes:"

// RedisChangeFeed carries change events between server instances over Redis
// pub/sub. Events are JSON encoded on one channel per table.
type RedisChangeFeed struct {
	client  *redis.Client
	mailbox int
}

func NewRedisChangeFeed(client *redis.Client) *RedisChangeFeed {
	return &RedisChangeFeed{client: client, mailbox: defaultMailboxSize}
}

// ChangeChannel returns the pub/sub channel carrying a table's events
func ChangeChannel(table string) string {
	return redisChannelPrefix + table
}

func (f *RedisChangeFeed) Publish(ctx context.Context, ev models.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	if err := f.client.Publish(ctx, ChangeChannel(ev.Table), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Close releases the Redis connection
func (f *RedisChangeFeed) Close() error {
	return f.client.Close()
}

func (f *RedisChangeFeed) Subscribe(ctx context.Context, table string) (Subscription, error) {
	pubsub := f.client.Subscribe(ctx, ChangeChannel(table))

	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", table, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan models.ChangeEvent, f.mailbox),
		done:   make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan models.ChangeEvent
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *redisSubscription) Events() <-chan models.ChangeEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.pubsub.Close()
	})
	return s.err
}

// pump decodes messages into the events channel until the pubsub closes
func (s *redisSubscription) pump() {
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		ev, err := DecodeChangeEvent([]byte(msg.Payload))
		if err != nil {
			log.Printf("[REALTIME] Ignoring malformed event on %s: %v", msg.Channel, err)
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// DecodeChangeEvent parses a JSON encoded change event
func DecodeChangeEvent(payload []byte) (models.ChangeEvent, error) {
	var ev models.ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return models.ChangeEvent{}, err
	}
	switch ev.Type {
	case models.ChangeInsert, models.ChangeUpdate, models.ChangeDelete:
	default:
		return models.ChangeEvent{}, fmt.Errorf("unknown change type %q", ev.Type)
	}
	return ev, nil
}
