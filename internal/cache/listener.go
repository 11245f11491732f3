package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/config"
)

const defaultInvalidationChannel = "inventory:changes"

// ChangeEvent is published by writers whenever a sale or stock level changes.
type ChangeEvent struct {
	Kind  string    `json:"kind"`
	SKU   string    `json:"sku,omitempty"`
	Store string    `json:"store,omitempty"`
	At    time.Time `json:"at"`
}

// Listener drops cached decisions whenever a change event arrives on the
// invalidation channel.
type Listener struct {
	client  *redis.Client
	channel string
	cache   DecisionCache
}

func NewListener(cfg config.CacheConfig, cache DecisionCache) (*Listener, error) {
	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	channel := cfg.InvalidationChannel
	if channel == "" {
		channel = defaultInvalidationChannel
	}

	return &Listener{client: client, channel: channel, cache: cache}, nil
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	sub := l.client.Subscribe(ctx, l.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", l.channel, err)
	}
	log.Info().Str("channel", l.channel).Msg("listening for inventory changes")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			l.handle(ctx, msg.Payload)
		}
	}
}

// Publish announces a change to every listener, this process included.
func (l *Listener) Publish(ctx context.Context, ev ChangeEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := l.client.Publish(ctx, l.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

func (l *Listener) Close() error {
	return l.client.Close()
}

func (l *Listener) handle(ctx context.Context, payload string) {
	var ev ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		// unknown payloads still mean something changed
		ev.Kind = "unknown"
	}

	if err := l.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Str("kind", ev.Kind).Msg("decision cache invalidation failed")
		return
	}
	log.Debug().Str("kind", ev.Kind).Str("sku", ev.SKU).Str("store", ev.Store).Msg("decision cache invalidated")
}
