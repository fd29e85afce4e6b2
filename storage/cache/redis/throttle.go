package rediscache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/security"
)

const keyPrefix = "portal:throttle:"

// Open connects to the Redis server and makes sure it answers.
func Open(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", conf.Address)
	}
	return rdb, nil
}

// Throttle counts failures in Redis over a fixed window.
// Every counter expires `window` after its first hit.
type Throttle struct {
	rdb    *redis.Client
	window time.Duration
}

var _ security.Throttle = (*Throttle)(nil)

func NewThrottle(rdb *redis.Client, window time.Duration) *Throttle {
	return &Throttle{rdb: rdb, window: window}
}

func (t *Throttle) Hit(ctx context.Context, key string) (int, error) {
	key = keyPrefix + key
	n, err := t.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "incrementing throttle counter")
	}
	if n == 1 {
		if err = t.rdb.Expire(ctx, key, t.window).Err(); err != nil {
			return int(n), errors.Wrap(err, "setting throttle window")
		}
	}
	return int(n), nil
}

func (t *Throttle) Count(ctx context.Context, key string) (int, error) {
	n, err := t.rdb.Get(ctx, keyPrefix+key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "reading throttle counter")
	}
	return n, nil
}

func (t *Throttle) Reset(ctx context.Context, key string) error {
	return errors.Wrap(t.rdb.Del(ctx, keyPrefix+key).Err(), "resetting throttle counter")
}
