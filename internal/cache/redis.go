package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 10 * time.Minute

var _ ProfileCache = (*Redis)(nil)

// Redis stores profiles as JSON under "linkify:profile:<pseudo>".
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func profileKey(pseudo string) string {
	return "linkify:profile:" + pseudo
}

func (r *Redis) Get(ctx context.Context, pseudo string) (*Profile, error) {
	data, err := r.client.Get(ctx, profileKey(pseudo)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: getting profile %s: %w", pseudo, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("cache: decoding profile %s: %w", pseudo, err)
	}
	return &p, nil
}

func (r *Redis) Set(ctx context.Context, p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache: encoding profile %s: %w", p.Pseudo, err)
	}
	if err := r.client.Set(ctx, profileKey(p.Pseudo), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: setting profile %s: %w", p.Pseudo, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, pseudo string) error {
	if err := r.client.Del(ctx, profileKey(pseudo)).Err(); err != nil {
		return fmt.Errorf("cache: deleting profile %s: %w", pseudo, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
