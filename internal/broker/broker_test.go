// internal/broker/broker_test.go
package broker

import (
	"context"
	"encoding/json"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChange(t *testing.T) {
	c := feed.NewChange(feed.ScopeMatch, uuid.New(), "match_updated")
	data, err := encode(c)
	require.NoError(t, err)

	got, err := decodeChange(data)
	require.NoError(t, err)
	assert.Equal(t, c.Key(), got.Key())
	assert.Equal(t, c.Kind, got.Kind)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "match", raw["scope"])
	assert.Equal(t, c.ID.String(), raw["id"])

	_, err = decodeChange([]byte("not json"))
	assert.Error(t, err)
	_, err = decodeChange([]byte(`{"scope":""}`))
	assert.Error(t, err)
}

// TestFeedRelay needs a live server; it skips unless NATS_URL is set.
func TestFeedRelay(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	logger := logrus.New()
	nc, err := Connect(url, os.Getenv("NATS_TOKEN"), logger)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	hub := feed.NewHub()
	change := feed.NewChange(feed.ScopePlayer, uuid.New(), "player_updated")
	var got atomic.Int32
	hub.Subscribe(change.Key(), func(feed.Change) { got.Add(1) })

	f := NewFeed(nc, "gridclash.test."+uuid.NewString(), logger)
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Relay(ctx, hub) }()

	require.Eventually(t, func() bool {
		if err := f.Publish(ctx, change); err != nil {
			return false
		}
		return got.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	stop()
	assert.NoError(t, <-done)
}
