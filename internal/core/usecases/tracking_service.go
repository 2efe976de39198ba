package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/core/locstream"
	"github.com/samirrijal/plaza/internal/core/ports"
	"github.com/samirrijal/plaza/internal/pkg/metrics"
)

const defaultLastKnownTTL = 300

// TrackingService opens location streams and applies consumer-side policy on
// top of them: remembering the last position and reopening after a disconnect.
type TrackingService struct {
	provider     ports.LocationProvider
	cache        ports.CacheService
	streamOpts   []locstream.Option
	retryDelay   time.Duration
	maxRetries   int
	lastKnownTTL int
}

// TrackingOption configures a TrackingService.
type TrackingOption func(*TrackingService)

// WithRetry sets how Follow reacts to a disconnect: wait delay, then reopen,
// at most maxRetries times in a row.
func WithRetry(delay time.Duration, maxRetries int) TrackingOption {
	return func(s *TrackingService) {
		s.retryDelay = delay
		s.maxRetries = maxRetries
	}
}

// WithStreamOptions passes options to every stream the service opens.
func WithStreamOptions(opts ...locstream.Option) TrackingOption {
	return func(s *TrackingService) {
		s.streamOpts = append(s.streamOpts, opts...)
	}
}

// WithLastKnownTTL sets how long the last position stays cached, in seconds.
func WithLastKnownTTL(seconds int) TrackingOption {
	return func(s *TrackingService) {
		if seconds > 0 {
			s.lastKnownTTL = seconds
		}
	}
}

// NewTrackingService creates a new TrackingService. cache may be nil.
func NewTrackingService(provider ports.LocationProvider, cache ports.CacheService, opts ...TrackingOption) *TrackingService {
	s := &TrackingService{
		provider:     provider,
		cache:        cache,
		retryDelay:   time.Second,
		maxRetries:   3,
		lastKnownTTL: defaultLastKnownTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a cold stream for cfg.
func (s *TrackingService) Open(cfg domain.UpdateRequestConfig) *locstream.Stream {
	return locstream.Open(s.provider, cfg, s.streamOpts...)
}

// Follow calls fn for each position from cfg's source until ctx is cancelled
// or fn returns an error. Every position is remembered as the source's last
// known location.
//
// A provider disconnect opens a new stream after the retry delay; the retry
// budget is restored once a reopened stream delivers. Registration failure is
// returned immediately. Cancelling ctx returns nil.
func (s *TrackingService) Follow(ctx context.Context, cfg domain.UpdateRequestConfig, fn func(domain.GeoPoint) error) error {
	source := domain.NewLocationRequest(cfg).Source
	logger := slog.Default().With("source", source)
	retries := 0

	for {
		a, err := s.Open(cfg).Observe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		delivered, err := s.consume(ctx, a, source, fn)
		a.Cancel()

		switch {
		case ctx.Err() != nil:
			return nil
		case err == nil:
			return nil
		case !errors.Is(err, domain.ErrProviderDisconnected):
			return err
		}

		if delivered {
			retries = 0
		}
		if retries >= s.maxRetries {
			return fmt.Errorf("giving up after %d reconnects: %w", retries, err)
		}
		retries++
		metrics.LocationReconnects.WithLabelValues(source).Inc()
		logger.Warn("location stream dropped, reopening", "attempt", retries, "error", err)

		t := time.NewTimer(s.retryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// Warm follows every source in sources until ctx is cancelled so that
// LastKnown stays fresh without a client connected. It returns the first
// error of a follower that gave up, after all followers have stopped.
func (s *TrackingService) Warm(ctx context.Context, base domain.UpdateRequestConfig, sources []string) error {
	var g errgroup.Group
	for _, source := range sources {
		cfg := base
		cfg.Source = source
		g.Go(func() error {
			err := s.Follow(ctx, cfg, func(domain.GeoPoint) error { return nil })
			if err != nil {
				slog.Default().Warn("stopped following location source", "source", source, "error", err)
			}
			return err
		})
	}
	return g.Wait()
}

func (s *TrackingService) consume(ctx context.Context, a *locstream.Activation, source string, fn func(domain.GeoPoint) error) (bool, error) {
	delivered := false
	for {
		p, ok, err := a.Next(ctx)
		if err != nil {
			return delivered, err
		}
		if !ok {
			return delivered, nil
		}
		delivered = true
		s.Remember(ctx, source, p)
		if err := fn(p); err != nil {
			return delivered, err
		}
	}
}

func lastKnownKey(source string) string {
	return "location:last:" + source
}

// Remember stores p as the last known position of source.
func (s *TrackingService) Remember(ctx context.Context, source string, p domain.GeoPoint) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, lastKnownKey(source), data, s.lastKnownTTL); err != nil {
		slog.Default().Debug("cache last known location", "source", source, "error", err)
	}
}

// LastKnown returns the most recent position seen for source by any Follow
// call, or domain.ErrNotFound.
func (s *TrackingService) LastKnown(ctx context.Context, source string) (*domain.GeoPoint, error) {
	if s.cache == nil {
		return nil, domain.ErrNotFound
	}
	if source == "" {
		source = domain.DefaultLocationSource
	}
	data, err := s.cache.Get(ctx, lastKnownKey(source))
	if errors.Is(err, domain.ErrNotFound) {
		metrics.CacheMisses.WithLabelValues("location_last").Inc()
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("last known location: %w", err)
	}
	var p domain.GeoPoint
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode last known location: %w", err)
	}
	metrics.CacheHits.WithLabelValues("location_last").Inc()
	return &p, nil
}
