package notifier

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBridge publishes through a Redis channel so every instance's hub sees
// every event.
type RedisBridge struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
	log     logrus.FieldLogger
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisBridge(rdb *redis.Client, channel string, hub *Hub, log logrus.FieldLogger) *RedisBridge {
	return &RedisBridge{rdb: rdb, channel: channel, hub: hub, log: log.WithField("bridge", "redis")}
}

var _ Publisher = (*RedisBridge)(nil)

func (b *RedisBridge) Publish(ctx context.Context, ev Event) error {
	frame, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, frame).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.Name, err)
	}
	return nil
}

// Run relays the channel into the local hub until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	b.log.WithField("channel", b.channel).Info("relaying order events")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			b.hub.Broadcast([]byte(msg.Payload))
		}
	}
}
