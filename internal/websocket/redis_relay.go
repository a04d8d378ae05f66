package chatws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Misikirayu/mate-finder/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultRelayChannel = "mate-finder:realtime"

type relayEnvelope struct {
	Origin  string       `json:"origin"`
	UserIDs []int64      `json:"userIds"`
	Event   models.Event `json:"event"`
}

// RedisRelay fans events out to every instance over Redis pub/sub. Each
// instance, the publisher included, delivers to its own rooms from the
// subscription. The relay is attached to the hub only while subscribed.
type RedisRelay struct {
	client     *redis.Client
	channel    string
	instanceID string
	hub        *Hub
	logger     *zap.Logger
}

func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		hub:        hub,
		logger:     logger,
	}
}

func (r *RedisRelay) Publish(ctx context.Context, event models.Event, userIDs ...int64) error {
	payload, err := json.Marshal(relayEnvelope{
		Origin:  r.instanceID,
		UserIDs: userIDs,
		Event:   event,
	})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Run subscribes to the relay channel and delivers every envelope to the
// local hub until ctx is cancelled. Publish goes through the relay only
// between a successful subscribe and the return of Run; otherwise the hub
// delivers locally.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.hub.SetRelay(r)
	defer r.hub.detachRelay(r)
	r.logger.Info("realtime relay subscribed", zap.String("channel", r.channel), zap.String("instance", r.instanceID))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				r.logger.Warn("realtime relay subscription closed")
				return nil
			}
			var envelope relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				r.logger.Warn("discarding malformed relay payload", zap.Error(err))
				continue
			}
			r.logger.Debug("relayed event",
				zap.String("type", envelope.Event.Type),
				zap.String("origin", envelope.Origin),
				zap.Bool("local_origin", envelope.Origin == r.instanceID),
			)
			if err := r.hub.Deliver(ctx, envelope.Event, envelope.UserIDs...); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Warn("deliver relayed event", zap.String("type", envelope.Event.Type), zap.Error(err))
			}
		}
	}
}
