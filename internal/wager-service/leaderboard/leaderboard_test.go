package leaderboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/prop-parlay-platform/internal/wager-service/repo"
)

type memCache struct {
	data   map[string][]byte
	getErr error
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return b, nil
}

func (m *memCache) Set(_ context.Context, key string, v []byte, _ time.Duration) error {
	m.data[key] = v
	return nil
}

func (m *memCache) DeletePrefix(_ context.Context, prefix string) error {
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

type countingSource struct {
	calls int
	rows  []repo.LeaderboardRow
}

func (c *countingSource) Leaderboard(_ context.Context, _ int) ([]repo.LeaderboardRow, error) {
	c.calls++
	return c.rows, nil
}

func TestTop_CachesUntilInvalidated(t *testing.T) {
	src := &countingSource{rows: []repo.LeaderboardRow{{UserID: "u-1", Username: "ana", ProfitCents: 500}}}
	s := New(zap.NewNop(), src, newMemCache(), time.Minute)
	ctx := context.Background()

	first, err := s.Top(ctx, 10)
	require.NoError(t, err)
	second, err := s.Top(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls)

	require.NoError(t, s.Invalidate(ctx))
	_, err = s.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestTop_CacheFailureFallsBackToSource(t *testing.T) {
	src := &countingSource{}
	c := newMemCache()
	c.getErr = errors.New("connection refused")
	s := New(zap.NewNop(), src, c, time.Minute)

	rows, err := s.Top(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
	assert.Equal(t, 1, src.calls)
}

type oneShotReader struct{ sent bool }

func (r *oneShotReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if !r.sent {
		r.sent = true
		return kafka.Message{Value: []byte(`{"wager_id":"w-1"}`)}, nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func TestRunInvalidator(t *testing.T) {
	c := newMemCache()
	c.data[keyPrefix+"10"] = []byte("[]")
	s := New(zap.NewNop(), &countingSource{}, c, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := s.RunInvalidator(ctx, &oneShotReader{})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, c.data)
}
