package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is an Admitter shared by every API instance.  An admission is a
// SET NX with the window as expiry, so the key's remaining TTL doubles as
// the wait hint.
type Redis struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedis returns a Redis admitter namespacing its keys under prefix.
func NewRedis(rdb redis.Cmdable, prefix string) *Redis {
	if prefix == "" {
		prefix = "admit"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) Admit(ctx context.Context, key string, window time.Duration) (Decision, error) {
	k := r.prefix + ":" + key
	ok, err := r.rdb.SetNX(ctx, k, time.Now().UnixMilli(), window).Result()
	if err != nil {
		return Decision{}, err
	}
	if ok {
		return Decision{Allowed: true}, nil
	}
	ttl, err := r.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return Decision{}, err
	}
	// TTL <= 0 means the key expired between the two commands.
	return Decision{RetryAfter: retryAfter(ttl)}, nil
}
