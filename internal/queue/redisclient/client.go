package redisclient

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// nudgeKey is the list the API pushes to after committing an outbox job so a
// sleeping worker wakes up immediately instead of on its next poll tick.
const nudgeKey = "membersite:worker:nudge"

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Nudge signals the worker that new work was committed. Best effort: a lost
// nudge costs one poll interval, never a job.
func (c *Client) Nudge(ctx context.Context) error {
	pipe := c.redisdb.Pipeline()

	pipe.LPush(ctx, nudgeKey, "1")
	// One pending nudge is enough; cap the list so bursts do not pile up.
	pipe.LTrim(ctx, nudgeKey, 0, 0)
	pipe.Expire(ctx, nudgeKey, time.Minute)

	_, err := pipe.Exec(ctx)
	return err
}

// WaitNudge blocks up to timeout for a nudge. The worker uses the read
// timeout of the blocking pop as its poll interval, so BRPOP needs its own
// client side deadline headroom.
func (c *Client) WaitNudge(ctx context.Context, timeout time.Duration) (bool, error) {
	_, err := c.redisdb.BRPop(ctx, timeout, nudgeKey).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
