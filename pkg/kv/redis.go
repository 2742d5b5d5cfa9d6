package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix     = "feedbackhub:slot:"
	channelPrefix = "feedbackhub:changed:"
	publishTTL    = 5 * time.Second
)

// changeSignal is published after every write.
type changeSignal struct {
	Origin string `json:"origin"`
	At     int64  `json:"at"`
}

// Redis stores slots as plain string keys and signals writes over pub/sub.
type Redis struct {
	client *redis.Client
	origin string
	logger *zap.Logger
}

// NewRedis creates a redis-backed Store.
func NewRedis(client *redis.Client, origin string, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, origin: origin, logger: logger}
}

// Origin implements Watcher.
func (r *Redis) Origin() string { return r.origin }

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Set implements Store. The change signal is best effort; a failed publish is logged only.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	body, err := json.Marshal(changeSignal{Origin: r.origin, At: time.Now().Unix()})
	if err != nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(context.Background(), publishTTL)
	defer cancel()
	if err := r.client.Publish(pubCtx, channelPrefix+key, body).Err(); err != nil {
		r.logger.Warn("publish slot change", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Watch implements Watcher. It returns once the subscription is confirmed.
func (r *Redis) Watch(ctx context.Context, key string, fn ChangeHandler) (func(), error) {
	subCtx, cancelCtx := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(subCtx, channelPrefix+key)
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var sig changeSignal
				if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
					continue
				}
				fn(sig.Origin)
			}
		}
	}()
	return cancelCtx, nil
}
