package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/core/ports"
)

// ErrUnknownHandle is returned by Unregister for a handle that was never
// issued by this provider or has already been released.
var ErrUnknownHandle = errors.New("nats: unknown subscription handle")

const (
	maxReconnects    = 30
	pendingMsgLimit  = 1024
	pendingByteLimit = 8 << 20
)

type subscription struct {
	source string
	cb     ports.FixCallback
	gate   *fixGate
	sub    *nats.Subscription
	failed atomic.Bool
}

// LocationProvider implements ports.LocationProvider over NATS. Devices
// publish fix batches on <prefix>.fix.<source>; every registration gets its
// own core NATS subscription.
type LocationProvider struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

// NewLocationProvider connects to NATS. When the connection is closed for
// good, every live registration is told through OnError.
func NewLocationProvider(url, prefix string) (*LocationProvider, error) {
	p := &LocationProvider{
		prefix: prefix,
		logger: slog.Default().With("component", "nats_location_provider"),
		now:    time.Now,
		subs:   make(map[*subscription]struct{}),
	}

	conn, err := nats.Connect(url,
		nats.Name("plaza-location"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			p.failAll(errors.New("nats connection closed"))
		}),
		nats.ErrorHandler(p.asyncError),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	p.conn = conn
	return p, nil
}

// Register subscribes cb to fixes for req.Source and announces the request.
func (p *LocationProvider) Register(ctx context.Context, req domain.LocationRequest, cb ports.FixCallback) (ports.SubscriptionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.conn.IsClosed() {
		return nil, fmt.Errorf("%w: nats connection closed", domain.ErrProviderUnavailable)
	}
	if req.Source == "" {
		req.Source = DefaultSource
	}
	if !validSource(req.Source) {
		return nil, fmt.Errorf("%w: invalid source %q", domain.ErrProviderUnavailable, req.Source)
	}

	s := &subscription{source: req.Source, cb: cb, gate: newFixGate(req)}
	p.mu.Lock()
	p.subs[s] = struct{}{}
	p.mu.Unlock()

	sub, err := p.conn.Subscribe(FixSubject(p.prefix, req.Source), func(msg *nats.Msg) {
		p.deliver(s, msg)
	})
	if err != nil {
		p.forget(s)
		return nil, fmt.Errorf("%w: subscribe: %v", domain.ErrProviderUnavailable, err)
	}
	if err := sub.SetPendingLimits(pendingMsgLimit, pendingByteLimit); err != nil {
		p.logger.Warn("set pending limits", "error", err)
	}
	p.mu.Lock()
	s.sub = sub
	p.mu.Unlock()

	data, err := json.Marshal(newRequestMessage(req))
	if err == nil {
		err = p.conn.Publish(RequestSubject(p.prefix, req.Source), data)
	}
	if err != nil {
		// Devices fall back to their own sampling; the subscription stays useful.
		p.logger.Warn("announce location request", "source", req.Source, "error", err)
	}
	return s, nil
}

// Unregister removes the subscription behind h.
func (p *LocationProvider) Unregister(h ports.SubscriptionHandle) error {
	s, ok := h.(*subscription)
	if !ok || !p.forget(s) {
		return ErrUnknownHandle
	}

	p.mu.Lock()
	sub := s.sub
	p.mu.Unlock()
	if sub == nil {
		return nil
	}
	if err := sub.Unsubscribe(); err != nil &&
		!errors.Is(err, nats.ErrConnectionClosed) &&
		!errors.Is(err, nats.ErrBadSubscription) {
		return fmt.Errorf("unsubscribe %s: %w", s.source, err)
	}
	return nil
}

// IsConnected reports whether the underlying connection is up.
func (p *LocationProvider) IsConnected() bool {
	return p.conn.IsConnected()
}

// Live returns the number of registrations not yet released.
func (p *LocationProvider) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Close drains the connection. Registrations still live are failed by the
// closed handler.
func (p *LocationProvider) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

func (p *LocationProvider) forget(s *subscription) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subs[s]; !ok {
		return false
	}
	delete(p.subs, s)
	return true
}

func (p *LocationProvider) live(s *subscription) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.subs[s]
	return ok
}

func (p *LocationProvider) deliver(s *subscription, msg *nats.Msg) {
	if s.failed.Load() || !p.live(s) {
		return
	}
	batch, err := decodeBatch(msg.Data)
	if err != nil {
		p.logger.Warn("skipping malformed fix batch", "subject", msg.Subject, "error", err)
		return
	}
	if !s.gate.admit(batch, p.now()) {
		return
	}
	s.cb.OnFixes(batch)
}

// fail reports err to one registration. Callbacks run without p.mu held
// because they may call Unregister.
func (p *LocationProvider) fail(s *subscription, err error) {
	if !s.failed.CompareAndSwap(false, true) {
		return
	}
	s.cb.OnError(fmt.Errorf("%w: %v", domain.ErrProviderDisconnected, err))
}

func (p *LocationProvider) failAll(err error) {
	p.mu.Lock()
	live := make([]*subscription, 0, len(p.subs))
	for s := range p.subs {
		live = append(live, s)
	}
	p.mu.Unlock()

	if len(live) > 0 {
		p.logger.Warn("failing live location registrations", "count", len(live), "error", err)
	}
	for _, s := range live {
		p.fail(s, err)
	}
}

func (p *LocationProvider) asyncError(_ *nats.Conn, sub *nats.Subscription, err error) {
	if sub == nil || !errors.Is(err, nats.ErrSlowConsumer) {
		p.logger.Error("nats async error", "error", err)
		return
	}

	p.mu.Lock()
	var target *subscription
	for s := range p.subs {
		if s.sub == sub {
			target = s
			break
		}
	}
	p.mu.Unlock()

	if target != nil {
		p.logger.Warn("location consumer too slow", "source", target.source)
		p.fail(target, err)
	}
}
