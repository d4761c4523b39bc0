package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/shapedrop/internal/game"
)

// RedisStore keeps each session field under its own key. Update runs as an
// optimistic transaction: the session keys are WATCHed while fn runs and the
// write is a MULTI/EXEC that fails if any of them changed.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

type getter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func readRecord(ctx context.Context, c getter, sessionID string) (record, error) {
	vals, err := c.MGet(ctx, Keys(sessionID)...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", sessionID, err)
	}
	rec := make(record, len(fields))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			rec[fields[i]] = s
		}
	}
	return rec, nil
}

func writeRecord(ctx context.Context, p redis.Pipeliner, sessionID string, rec record) {
	for _, f := range fields {
		k := Key(sessionID, f)
		if v, ok := rec[f]; ok {
			p.Set(ctx, k, v, 0)
		} else {
			p.Del(ctx, k)
		}
	}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (game.State, error) {
	rec, err := readRecord(ctx, s.rdb, sessionID)
	if err != nil {
		return game.State{}, err
	}
	return decode(rec)
}

func (s *RedisStore) Create(ctx context.Context, sessionID string, st game.State) error {
	rec, err := encode(st)
	if err != nil {
		return err
	}

	roundKey := Key(sessionID, fieldRound)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, roundKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrExists
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			writeRecord(ctx, p, sessionID, rec)
			return nil
		})
		return err
	}, roundKey)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrExists
	}
	return err
}

func (s *RedisStore) Update(ctx context.Context, sessionID string, fn UpdateFunc) (game.State, error) {
	var st game.State
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := readRecord(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		st, err = decode(rec)
		if err != nil {
			return err
		}
		if err := fn(&st); err != nil {
			return err
		}
		next, err := encode(st)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			writeRecord(ctx, p, sessionID, next)
			return nil
		})
		return err
	}, Keys(sessionID)...)
	if errors.Is(err, redis.TxFailedErr) {
		return st, ErrConflict
	}
	return st, err
}

func (s *RedisStore) Check(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
