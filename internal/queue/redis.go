package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-forum-app/internal/config"

	"github.com/redis/go-redis/v9"
)

// pollTimeout bounds each blocking pop so that Dequeue notices a closed queue.
const pollTimeout = time.Second

// Redis is a queue stored in a Redis list: producers LPUSH, consumers BRPOP.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects to the Redis server named in cfg.
func NewRedis(cfg config.QueueConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisWithClient(client, cfg.Key), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, key string) *Redis {
	if key == "" {
		key = "forum:tasks"
	}
	return &Redis{client: client, key: key}
}

// Enqueue pushes a task onto the list.
func (r *Redis) Enqueue(ctx context.Context, name string, payload interface{}) error {
	task, err := NewTask(name, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	if err := r.client.LPush(ctx, r.key, raw).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", name, err)
	}
	return nil
}

// Dequeue pops the oldest task, waiting until one arrives or ctx is done.
func (r *Redis) Dequeue(ctx context.Context) (*Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := r.client.BRPop(ctx, pollTimeout, r.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if errors.Is(err, redis.ErrClosed) {
			return nil, ErrClosed
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to dequeue task: %w", err)
		}
		// res is [key, value].
		var task Task
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		return &task, nil
	}
}

// Len returns the number of pending tasks.
func (r *Redis) Len(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key).Result()
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
