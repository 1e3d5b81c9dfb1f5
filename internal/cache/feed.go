// internal/cache/feed.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Feed publishes changes on a Redis pub/sub channel. Every server instance runs Relay so that
// a change written by one instance reaches websocket clients connected to any of them.
type Feed struct {
	rdb     *redis.Client
	channel string
	log     logrus.FieldLogger
}

func NewFeed(rdb *redis.Client, channel string, logger logrus.FieldLogger) *Feed {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Feed{rdb: rdb, channel: channel, log: logger}
}

func (f *Feed) Publish(ctx context.Context, c feed.Change) error {
	data, err := marshal(c)
	if err != nil {
		return err
	}
	if err := f.rdb.Publish(ctx, f.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", f.channel, err)
	}
	return nil
}

// Relay forwards channel messages into hub until ctx is cancelled.
func (f *Feed) Relay(ctx context.Context, hub *feed.Hub) error {
	sub := f.rdb.Subscribe(ctx, f.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", f.channel, err)
	}
	f.log.WithField("channel", f.channel).Info("relaying changes from redis")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c, err := decodeChange([]byte(msg.Payload))
			if err != nil {
				f.log.WithError(err).Warn("dropping malformed change")
				continue
			}
			hub.Deliver(c)
		}
	}
}

func decodeChange(payload []byte) (feed.Change, error) {
	var c feed.Change
	if err := json.Unmarshal(payload, &c); err != nil {
		return feed.Change{}, fmt.Errorf("decode change: %w", err)
	}
	if !c.Scope.Valid() {
		return feed.Change{}, fmt.Errorf("decode change: unknown scope %q", c.Scope)
	}
	return c, nil
}

var _ feed.Publisher = (*Feed)(nil)
