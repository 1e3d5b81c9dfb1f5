// internal/cache/cache_test.go
package cache

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/jason-s-yu/gridclash/internal/historian"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memList is an in-process Redis list: RPush on one end, BLPop on the other.
type memList struct {
	mu      sync.Mutex
	keys    []string
	items   []string
	onEmpty func()
}

func (l *memList) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range values {
		switch v := v.(type) {
		case []byte:
			l.items = append(l.items, string(v))
		case string:
			l.items = append(l.items, v)
		}
		l.keys = append(l.keys, key)
	}
	return redis.NewIntResult(int64(len(l.items)), nil)
}

func (l *memList) BLPop(_ context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		if l.onEmpty != nil {
			l.onEmpty()
		}
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
	item := l.items[0]
	l.items = l.items[1:]
	return redis.NewStringSliceResult([]string{keys[0], item}, nil)
}

func TestActionQueueFeedsHistorian(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	list := &memList{onEmpty: cancel}
	q := NewActionQueue(list, "")
	rec := models.NewActionRecord(uuid.New(), uuid.New(), models.ActionCellClaimed, map[string]interface{}{
		"square": 12,
		"side":   models.SideA,
	})
	require.NoError(t, q.Record(ctx, rec))
	require.NoError(t, q.Record(ctx, models.NewActionRecord(rec.GameID, uuid.Nil, models.ActionGameEnded, map[string]interface{}{})))
	assert.Equal(t, []string{DefaultQueueName, DefaultQueueName}, list.keys)

	var written []models.ActionRecord
	write := func(_ context.Context, records []models.ActionRecord) error {
		written = append(written, records...)
		return nil
	}
	historian.NewService(list, DefaultQueueName, write, 10, time.Hour, logrus.New()).Run(ctx)

	require.Len(t, written, 2)
	got := written[0]
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.GameID, got.GameID)
	assert.Equal(t, rec.ActorPlayerID, got.ActorPlayerID)
	assert.Equal(t, rec.ActionType, got.ActionType)
	assert.Equal(t, rec.Timestamp, got.Timestamp)
	assert.EqualValues(t, 12, got.ActionPayload["square"])
	assert.Equal(t, "A", got.ActionPayload["side"])
	assert.False(t, written[1].ActorPlayerID.Valid, "system actions carry no actor")
}

func TestDecodeChange(t *testing.T) {
	c := feed.NewChange(feed.ScopeGame, uuid.New(), "game_updated")
	data, err := json.Marshal(c)
	require.NoError(t, err)

	got, err := decodeChange(data)
	require.NoError(t, err)
	assert.Equal(t, c.Key(), got.Key())
	assert.Equal(t, c.Kind, got.Kind)
	assert.True(t, c.At.Equal(got.At))

	_, err = decodeChange([]byte("{oops"))
	assert.Error(t, err)
	_, err = decodeChange([]byte(`{"scope":"board","id":"` + uuid.NewString() + `"}`))
	assert.Error(t, err)
}

// TestFeedRelay needs a live server; it skips unless REDIS_ADDR is set.
func TestFeedRelay(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, ConnectRedis(ctx, addr, 0))
	t.Cleanup(func() { Rdb.Close() })

	hub := feed.NewHub()
	change := feed.NewChange(feed.ScopeRoom, uuid.New(), "room_updated")
	var got atomic.Int32
	hub.Subscribe(change.Key(), func(c feed.Change) {
		if c.Kind == change.Kind {
			got.Add(1)
		}
	})

	f := NewFeed(Rdb, "gridclash_test_"+uuid.NewString(), logrus.New())
	relayCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- f.Relay(relayCtx, hub) }()

	// the relay subscribes asynchronously, so publish until a copy comes back
	require.Eventually(t, func() bool {
		if err := f.Publish(ctx, change); err != nil {
			return false
		}
		return got.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	stop()
	assert.NoError(t, <-done)

	queue := "gridclash_test_" + uuid.NewString()
	t.Cleanup(func() { Rdb.Del(context.Background(), queue) })
	rec := models.NewActionRecord(uuid.New(), uuid.New(), models.ActionGameStarted, map[string]interface{}{})
	require.NoError(t, NewActionQueue(Rdb, queue).Record(ctx, rec))
	res, err := Rdb.BLPop(ctx, time.Second, queue).Result()
	require.NoError(t, err)
	var back models.ActionRecord
	require.NoError(t, json.Unmarshal([]byte(res[1]), &back))
	assert.Equal(t, rec.ID, back.ID)
}
