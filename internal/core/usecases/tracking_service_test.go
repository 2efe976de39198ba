package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/core/ports"
	"github.com/samirrijal/plaza/internal/core/usecases"
)

var errStop = errors.New("stop following")

func deliverOne(lat, lon float64) func(cb ports.FixCallback) {
	return func(cb ports.FixCallback) {
		cb.OnFixes([]domain.Fix{{Lat: lat, Lon: lon, Time: time.Now()}})
	}
}

func disconnectAfter(script func(cb ports.FixCallback)) func(cb ports.FixCallback) {
	return func(cb ports.FixCallback) {
		if script != nil {
			script(cb)
		}
		cb.OnError(errors.New("feed closed"))
	}
}

func followWithTimeout(t *testing.T, svc *usecases.TrackingService, ctx context.Context, cfg domain.UpdateRequestConfig, fn func(domain.GeoPoint) error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- svc.Follow(ctx, cfg, fn) }()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Follow did not return")
		return nil
	}
}

func TestTrackingService_FollowRemembersLastKnown(t *testing.T) {
	provider := &scriptedProvider{scripts: []func(ports.FixCallback){deliverOne(5, 6)}}
	cache := newMemCache()
	svc := usecases.NewTrackingService(provider, cache)

	cfg := domain.UpdateRequestConfig{Source: "bus-7"}
	var got []domain.GeoPoint
	err := followWithTimeout(t, svc, context.Background(), cfg, func(p domain.GeoPoint) error {
		got = append(got, p)
		return errStop
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("expected errStop, got %v", err)
	}
	if len(got) != 1 || got[0] != (domain.GeoPoint{Lat: 5, Lon: 6}) {
		t.Fatalf("unexpected positions %v", got)
	}

	last, err := svc.LastKnown(context.Background(), "bus-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *last != (domain.GeoPoint{Lat: 5, Lon: 6}) {
		t.Errorf("unexpected last known %+v", last)
	}

	if reg, unreg := provider.counts(); reg != 1 || unreg != 1 {
		t.Errorf("expected 1 register and 1 unregister, got %d/%d", reg, unreg)
	}
}

func TestTrackingService_FollowReopensAfterDisconnect(t *testing.T) {
	provider := &scriptedProvider{scripts: []func(ports.FixCallback){
		disconnectAfter(nil),
		deliverOne(2, 2),
	}}
	svc := usecases.NewTrackingService(provider, nil, usecases.WithRetry(time.Millisecond, 3))

	var got domain.GeoPoint
	err := followWithTimeout(t, svc, context.Background(), domain.DefaultUpdateRequestConfig(), func(p domain.GeoPoint) error {
		got = p
		return errStop
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("expected errStop, got %v", err)
	}
	if got != (domain.GeoPoint{Lat: 2, Lon: 2}) {
		t.Errorf("expected position from reopened stream, got %+v", got)
	}
	if reg, unreg := provider.counts(); reg != 2 || unreg != 2 {
		t.Errorf("expected 2 registers and 2 unregisters, got %d/%d", reg, unreg)
	}
}

func TestTrackingService_FollowGivesUp(t *testing.T) {
	provider := &scriptedProvider{scripts: []func(ports.FixCallback){
		disconnectAfter(nil),
		disconnectAfter(nil),
		disconnectAfter(nil),
	}}
	svc := usecases.NewTrackingService(provider, nil, usecases.WithRetry(0, 2))

	err := followWithTimeout(t, svc, context.Background(), domain.DefaultUpdateRequestConfig(), func(domain.GeoPoint) error {
		t.Error("no position expected")
		return nil
	})
	if !errors.Is(err, domain.ErrProviderDisconnected) {
		t.Fatalf("expected ErrProviderDisconnected, got %v", err)
	}
	if reg, unreg := provider.counts(); reg != 3 || unreg != 3 {
		t.Errorf("expected 3 registers and 3 unregisters, got %d/%d", reg, unreg)
	}
}

func TestTrackingService_FollowUnavailableIsImmediate(t *testing.T) {
	provider := &scriptedProvider{registerErr: errors.New("no permission")}
	svc := usecases.NewTrackingService(provider, nil, usecases.WithRetry(0, 5))

	err := followWithTimeout(t, svc, context.Background(), domain.DefaultUpdateRequestConfig(), func(domain.GeoPoint) error { return nil })
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if _, unreg := provider.counts(); unreg != 0 {
		t.Errorf("expected no unregister, got %d", unreg)
	}
}

func TestTrackingService_FollowStopsOnContextCancel(t *testing.T) {
	provider := &scriptedProvider{}
	svc := usecases.NewTrackingService(provider, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := followWithTimeout(t, svc, ctx, domain.DefaultUpdateRequestConfig(), func(domain.GeoPoint) error { return nil })
	if err != nil {
		t.Fatalf("expected nil on cancellation, got %v", err)
	}
	if reg, unreg := provider.counts(); reg != 1 || unreg != 1 {
		t.Errorf("expected 1 register and 1 unregister, got %d/%d", reg, unreg)
	}
}

func TestTrackingService_LastKnownMissing(t *testing.T) {
	svc := usecases.NewTrackingService(&scriptedProvider{}, newMemCache())
	if _, err := svc.LastKnown(context.Background(), "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	noCache := usecases.NewTrackingService(&scriptedProvider{}, nil)
	if _, err := noCache.LastKnown(context.Background(), "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without cache, got %v", err)
	}
}

func TestTrackingService_OpenIsCold(t *testing.T) {
	provider := &scriptedProvider{}
	svc := usecases.NewTrackingService(provider, nil)

	s := svc.Open(domain.UpdateRequestConfig{MinInterval: time.Second, Source: "x"})
	if reg, _ := provider.counts(); reg != 0 {
		t.Fatalf("expected no registration before observe, got %d", reg)
	}

	a, err := s.Observe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Cancel()

	provider.mu.Lock()
	req := provider.requests[0]
	provider.mu.Unlock()
	if req.Source != "x" || req.Interval != time.Second {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestTrackingService_WarmKeepsLastKnownFresh(t *testing.T) {
	provider := &scriptedProvider{scripts: []func(ports.FixCallback){deliverOne(4, 2), deliverOne(4, 2)}}
	cache := newMemCache()
	svc := usecases.NewTrackingService(provider, cache)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Warm(ctx, domain.DefaultUpdateRequestConfig(), []string{"tram-1", "tram-2"}) }()

	deadline := time.Now().Add(2 * time.Second)
	for _, source := range []string{"tram-1", "tram-2"} {
		for {
			p, err := svc.LastKnown(context.Background(), source)
			if err == nil {
				if *p != (domain.GeoPoint{Lat: 4, Lon: 2}) {
					t.Fatalf("unexpected last known for %s: %+v", source, p)
				}
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("no last known location for %s", source)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil after cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Warm did not return")
	}
	if reg, unreg := provider.counts(); reg != 2 || unreg != 2 {
		t.Errorf("expected 2 registers and 2 unregisters, got %d/%d", reg, unreg)
	}
}

func TestTrackingService_WarmReportsGiveUp(t *testing.T) {
	provider := &scriptedProvider{registerErr: errors.New("feed offline")}
	svc := usecases.NewTrackingService(provider, newMemCache())

	err := svc.Warm(context.Background(), domain.DefaultUpdateRequestConfig(), []string{"tram-1", "tram-2"})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
