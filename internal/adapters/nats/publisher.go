package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/plaza/internal/core/domain"
)

// FixPublisher is the device side of the location subjects: it publishes fix
// batches and listens for the requests consumers announce.
type FixPublisher struct {
	conn   *nats.Conn
	prefix string
	subs   []*nats.Subscription
}

// NewFixPublisher connects to NATS.
func NewFixPublisher(url, prefix string) (*FixPublisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &FixPublisher{conn: conn, prefix: prefix}, nil
}

// PublishFixes sends one batch for source. Fixes must be ordered oldest first.
func (p *FixPublisher) PublishFixes(ctx context.Context, source string, batch []domain.Fix) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validSource(source) {
		return fmt.Errorf("%w: invalid source %q", domain.ErrInvalidInput, source)
	}
	if batch == nil {
		batch = []domain.Fix{}
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	return p.conn.Publish(FixSubject(p.prefix, source), data)
}

// OnRequest calls fn for every location request announced for source.
// Use "*" to receive requests for all sources.
func (p *FixPublisher) OnRequest(source string, fn func(RequestMessage)) error {
	sub, err := p.conn.Subscribe(RequestSubject(p.prefix, source), func(msg *nats.Msg) {
		var req RequestMessage
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return
		}
		fn(req)
	})
	if err != nil {
		return err
	}
	p.subs = append(p.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (p *FixPublisher) Close() {
	for _, sub := range p.subs {
		_ = sub.Unsubscribe()
	}
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
