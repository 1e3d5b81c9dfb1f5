// internal/broker/feed.go
package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/gridclash/internal/feed"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Feed carries change notifications over NATS core pub/sub.
type Feed struct {
	nc      *nats.Conn
	subject string
	log     logrus.FieldLogger
}

func NewFeed(nc *nats.Conn, subject string, logger logrus.FieldLogger) *Feed {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Feed{nc: nc, subject: subject, log: logger}
}

func (f *Feed) Publish(_ context.Context, c feed.Change) error {
	data, err := encode(c)
	if err != nil {
		return err
	}
	if err := f.nc.Publish(f.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", f.subject, err)
	}
	return nil
}

// Relay delivers every message on the subject to hub until ctx is cancelled.
// A plain subscription is used: each instance needs its own copy of every change.
func (f *Feed) Relay(ctx context.Context, hub *feed.Hub) error {
	sub, err := f.nc.Subscribe(f.subject, func(msg *nats.Msg) {
		c, err := decodeChange(msg.Data)
		if err != nil {
			f.log.WithError(err).Warn("dropping malformed change")
			return
		}
		hub.Deliver(c)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", f.subject, err)
	}
	f.log.WithField("subject", f.subject).Info("relaying changes from nats")

	<-ctx.Done()
	return sub.Unsubscribe()
}

func decodeChange(data []byte) (feed.Change, error) {
	var c feed.Change
	if err := json.Unmarshal(data, &c); err != nil {
		return feed.Change{}, fmt.Errorf("decode change: %w", err)
	}
	if !c.Scope.Valid() {
		return feed.Change{}, fmt.Errorf("decode change: unknown scope %q", c.Scope)
	}
	return c, nil
}

var _ feed.Publisher = (*Feed)(nil)
