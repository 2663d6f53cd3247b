package stats

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "xq:stats:"

// RedisRecorder keeps one hash per player
type RedisRecorder struct {
	rdb *redis.Client
}

// NewRedisRecorder wraps an existing client
func NewRedisRecorder(rdb *redis.Client) *RedisRecorder {
	return &RedisRecorder{rdb: rdb}
}

// DialRedis parses a redis:// URL, pings the server and returns a recorder
func DialRedis(ctx context.Context, url string) (*RedisRecorder, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisRecorder{rdb: rdb}, nil
}

// Close releases the client
func (r *RedisRecorder) Close() error {
	return r.rdb.Close()
}

func (r *RedisRecorder) key(player string) string { return keyPrefix + normalize(player) }

// Record increments both players' hashes in one transaction
func (r *RedisRecorder) Record(ctx context.Context, o Outcome) error {
	if err := o.validate(); err != nil {
		return err
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range o.deltas() {
			k := r.key(d.player)
			pipe.HIncrBy(ctx, k, "games", 1)
			incrIf(ctx, pipe, k, "wins", d.wins)
			incrIf(ctx, pipe, k, "losses", d.losses)
			incrIf(ctx, pipe, k, "draws", d.draws)
			incrIf(ctx, pipe, k, "aborted", d.aborted)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

func incrIf(ctx context.Context, pipe redis.Pipeliner, key, field string, n int) {
	if n != 0 {
		pipe.HIncrBy(ctx, key, field, int64(n))
	}
}

// Get reads a player's hash; a missing hash means zero totals
func (r *RedisRecorder) Get(ctx context.Context, player string) (Summary, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key(player)).Result()
	if err != nil {
		return Summary{}, fmt.Errorf("load stats for %s: %w", player, err)
	}
	s := Summary{Rating: DefaultRating}
	for name, dst := range map[string]*int{
		"games":   &s.Games,
		"wins":    &s.Wins,
		"losses":  &s.Losses,
		"draws":   &s.Draws,
		"aborted": &s.Aborted,
	} {
		v, ok := fields[name]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return Summary{}, fmt.Errorf("stats field %s for %s: %w", name, player, err)
		}
		*dst = n
	}
	return s, nil
}
