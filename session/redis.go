package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/config"
)

const keyPrefix = "optiflow:session:"

// Connect opens a Redis client and pings it until it answers or attempts run
// out.
func Connect(cfg config.RedisConfig, attempts int, wait time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var lastErr error
	for i := 0; i < attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return client, nil
		}
		log.Printf("redis ping attempt %d/%d failed: %v", i+1, attempts, lastErr)
		if i < attempts-1 {
			time.Sleep(wait)
		}
	}

	client.Close()
	return nil, fmt.Errorf("redis ping failed after %d attempts: %w", attempts, lastErr)
}

// RedisKV stores a session's keys under optiflow:session:<id>:<key> and
// announces every write on the optiflow:session:<id> channel.
type RedisKV struct {
	client  *redis.Client
	prefix  string
	channel string
	ttl     time.Duration
}

func NewRedisKV(client *redis.Client, sessionID string, ttl time.Duration) *RedisKV {
	return &RedisKV{
		client:  client,
		prefix:  keyPrefix + sessionID + ":",
		channel: keyPrefix + sessionID,
		ttl:     ttl,
	}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		if isOutOfMemory(err) {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return err
	}
	r.publish(ctx, Change{Key: key, At: time.Now()})
	return nil
}

func (r *RedisKV) Remove(ctx context.Context, key string) error {
	n, err := r.client.Del(ctx, r.prefix+key).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		r.publish(ctx, Change{Key: key, Removed: true, At: time.Now()})
	}
	return nil
}

// Watch subscribes to the session channel. The subscription is confirmed
// before Watch returns so no change published afterwards is lost.
func (r *RedisKV) Watch(ctx context.Context) (<-chan Change, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	out := make(chan Change, watchBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					log.Printf("session change decode failed channel=%s: %v", r.channel, err)
					continue
				}
				select {
				case out <- c:
				default:
				}
			}
		}
	}()
	return out, nil
}

// publish is best effort: pollers still see last_updated when it fails.
func (r *RedisKV) publish(ctx context.Context, c Change) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		log.Printf("session change publish failed channel=%s: %v", r.channel, err)
	}
}

func isOutOfMemory(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM ")
}

// RedisProvider scopes a shared client per session.
type RedisProvider struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProvider(client *redis.Client, ttl time.Duration) *RedisProvider {
	return &RedisProvider{client: client, ttl: ttl}
}

func (p *RedisProvider) Scope(sessionID string) KV {
	return NewRedisKV(p.client, sessionID, p.ttl)
}
