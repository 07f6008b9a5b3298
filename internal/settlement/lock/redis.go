package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// só apaga a chave se o token ainda for nosso (o lock pode ter expirado e sido pego por outro)
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker é o lock entre réplicas do settlement-worker (SET NX PX + token)
type RedisLocker struct {
	log   *zap.Logger
	rdb   redis.UniversalClient
	ttl   time.Duration
	retry time.Duration
}

func NewRedisLocker(log *zap.Logger, rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{log: log, rdb: rdb, ttl: ttl, retry: 50 * time.Millisecond}
}

func redisKey(key string) string { return "settlement:lock:" + key }

// Lock tenta até conseguir ou ctx expirar
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	k := redisKey(key)

	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	return r.unlocker(k, token), nil
}

func (r *RedisLocker) unlocker(k, token string) func() {
	return func() {
		// contexto próprio: o do chamador pode já ter sido cancelado
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.rdb, []string{k}, token).Err(); err != nil {
			// a chave só some quando o TTL expirar
			r.log.Warn("redis lock release failed",
				zap.String("key", k), zap.Duration("ttl", r.ttl), zap.Error(err))
		}
	}
}
