package domain

import (
	"testing"
	"time"
)

func TestNewLocationRequest_Defaults(t *testing.T) {
	req := NewLocationRequest(DefaultUpdateRequestConfig())

	if req.Interval != 2000*time.Millisecond {
		t.Errorf("expected 2000ms interval, got %s", req.Interval)
	}
	if req.Priority != PriorityBalanced {
		t.Errorf("expected balanced priority, got %s", req.Priority)
	}
	if req.WaitForAccurateLocation {
		t.Error("expected wait-for-accurate off by default")
	}
	if req.Source != DefaultLocationSource {
		t.Errorf("expected default source, got %q", req.Source)
	}
}

func TestNewLocationRequest_HighAccuracy(t *testing.T) {
	req := NewLocationRequest(UpdateRequestConfig{
		MinInterval:        500 * time.Millisecond,
		HighAccuracy:       true,
		WaitForAccurateFix: true,
		Source:             "bus-3",
	})

	if req.Priority != PriorityHighAccuracy || req.Priority.String() != "high_accuracy" {
		t.Errorf("expected high accuracy, got %s", req.Priority)
	}
	if req.Interval != 500*time.Millisecond || !req.WaitForAccurateLocation || req.Source != "bus-3" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestNewLocationRequest_NegativeInterval(t *testing.T) {
	req := NewLocationRequest(UpdateRequestConfig{MinInterval: -time.Second})
	if req.Interval != DefaultMinInterval {
		t.Errorf("expected fallback to default interval, got %s", req.Interval)
	}
}

func TestNewLocationRequest_ZeroIntervalKept(t *testing.T) {
	req := NewLocationRequest(UpdateRequestConfig{})
	if req.Interval != 0 {
		t.Errorf("expected zero interval to be passed through, got %s", req.Interval)
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Minute)}
	if s.Expired(now) {
		t.Error("session should still be valid")
	}
	if !s.Expired(now.Add(time.Minute)) {
		t.Error("session should be expired at its expiry instant")
	}
}

func TestBounds_Contains(t *testing.T) {
	b := Bounds{MinLat: 0, MinLon: 0, MaxLat: 1, MaxLon: 1}
	if !b.Contains(GeoPoint{Lat: 1, Lon: 0}) {
		t.Error("edge point should be contained")
	}
	if b.Contains(GeoPoint{Lat: 1.01, Lon: 0.5}) {
		t.Error("outside point should not be contained")
	}
}
