package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/envidicy/insights/internal/models"
)

const keyPrefix = "insights:session:"

// RedisStore shares datasets between server replicas. Session keys expire
// after ttl of inactivity.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) genKey(session string) string     { return keyPrefix + session + ":gen" }
func (s *RedisStore) datasetKey(session string) string { return keyPrefix + session + ":dataset" }

func (s *RedisStore) Begin(ctx context.Context, session string) (uint64, error) {
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, s.genKey(session))
	pipe.Expire(ctx, s.genKey(session), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("reserve generation: %w", err)
	}
	return uint64(incr.Val()), nil
}

func (s *RedisStore) Commit(ctx context.Context, session string, gen uint64, ds *models.Dataset) error {
	var payload []byte
	if ds != nil {
		b, err := json.Marshal(ds)
		if err != nil {
			return fmt.Errorf("encode dataset: %w", err)
		}
		payload = b
	}

	gk, dk := s.genKey(session), s.datasetKey(session)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Result()
		if errors.Is(err, redis.Nil) {
			return ErrStale
		}
		if err != nil {
			return err
		}
		latest, err := strconv.ParseUint(cur, 10, 64)
		if err != nil || latest != gen {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if payload == nil {
				pipe.Del(ctx, dk)
			} else {
				pipe.Set(ctx, dk, payload, s.ttl)
			}
			pipe.Expire(ctx, gk, s.ttl)
			return nil
		})
		return err
	}, gk)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStale
	}
	if err != nil && !errors.Is(err, ErrStale) {
		return fmt.Errorf("commit dataset: %w", err)
	}
	return err
}

func (s *RedisStore) Current(ctx context.Context, session string) (*models.Dataset, error) {
	b, err := s.rdb.Get(ctx, s.datasetKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	var ds models.Dataset
	if err := json.Unmarshal(b, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &ds, nil
}
