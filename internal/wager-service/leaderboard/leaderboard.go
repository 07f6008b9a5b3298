// Package leaderboard serve o ranking de lucro com cache Redis.
// O cache expira por TTL e também é invalidado a cada wager_settled.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/prop-parlay-platform/internal/wager-service/repo"
)

const keyPrefix = "leaderboard:top:"

type Source interface {
	Leaderboard(ctx context.Context, limit int) ([]repo.LeaderboardRow, error)
}

// Cache é o subconjunto do Redis que usamos
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error) // redis.Nil quando ausente
	Set(ctx context.Context, key string, v []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type Service struct {
	log   *zap.Logger
	src   Source
	cache Cache
	ttl   time.Duration
}

func New(log *zap.Logger, src Source, cache Cache, ttl time.Duration) *Service {
	return &Service{log: log, src: src, cache: cache, ttl: ttl}
}

// Top devolve o ranking; falha do cache nunca impede a leitura do banco
func (s *Service) Top(ctx context.Context, limit int) ([]repo.LeaderboardRow, error) {
	key := keyPrefix + strconv.Itoa(limit)

	b, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var rows []repo.LeaderboardRow
		if jerr := json.Unmarshal(b, &rows); jerr == nil {
			return rows, nil
		}
	case !errors.Is(err, redis.Nil):
		s.log.Warn("leaderboard cache get failed", zap.Error(err))
	}

	rows, err := s.src.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []repo.LeaderboardRow{}
	}
	b, _ = json.Marshal(rows)
	if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
		s.log.Warn("leaderboard cache set failed", zap.Error(err))
	}
	return rows, nil
}

func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.DeletePrefix(ctx, keyPrefix)
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// RunInvalidator consome wager_settled e derruba o cache a cada liquidação
func (s *Service) RunInvalidator(ctx context.Context, r MessageReader) error {
	for {
		if _, err := r.ReadMessage(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("kafka read failed", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if err := s.Invalidate(ctx); err != nil {
			s.log.Warn("leaderboard invalidate failed", zap.Error(err))
		}
	}
}

// RedisCache adapta o go-redis para Cache
type RedisCache struct{ R redis.UniversalClient }

func NewRedisCache(r redis.UniversalClient) *RedisCache { return &RedisCache{R: r} }

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.R.Get(ctx, key).Bytes()
}

func (c *RedisCache) Set(ctx context.Context, key string, v []byte, ttl time.Duration) error {
	return c.R.Set(ctx, key, v, ttl).Err()
}

func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.R.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.R.Del(ctx, keys...).Err()
}
