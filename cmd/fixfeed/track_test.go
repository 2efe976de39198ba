package main

import (
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/pkg/geospatial"
)

func TestReadTrack(t *testing.T) {
	in := "lat,lon,accuracy\n43.26,-2.93,8\n\n43.27, -2.94\n"
	track, err := readTrack(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(track) != 2 {
		t.Fatalf("expected 2 fixes, got %d", len(track))
	}
	if track[0].Accuracy != 8 || track[1].Accuracy != 0 {
		t.Errorf("unexpected accuracies %v, %v", track[0].Accuracy, track[1].Accuracy)
	}
	if track[1].Lon != -2.94 {
		t.Errorf("expected trimmed lon, got %v", track[1].Lon)
	}
}

func TestReadTrack_Errors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":        "lat,lon\n",
		"short row":    "43.26\n",
		"bad number":   "north,-2.93\n",
		"out of range": "91,0\n",
	} {
		if _, err := readTrack(strings.NewReader(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCircleTrack_StaysOnRadius(t *testing.T) {
	center := domain.GeoPoint{Lat: 43.263, Lon: -2.935}
	for i, f := range circleTrack(center, 300, 12) {
		d := geospatial.Distance(center, f.Point())
		if d < 295 || d > 305 {
			t.Errorf("point %d is %.1fm from center", i, d)
		}
	}
}

func TestPlayer_LoopsAndOrdersBatch(t *testing.T) {
	track := []domain.Fix{{Lat: 1}, {Lat: 2}, {Lat: 3}}
	p := &player{track: track}
	now := time.Unix(1000, 0)

	b := p.next(2, now, time.Second)
	if b[0].Lat != 1 || b[1].Lat != 2 {
		t.Fatalf("unexpected first batch %+v", b)
	}
	if !b[0].Time.Before(b[1].Time) || !b[1].Time.Equal(now) {
		t.Errorf("batch must be oldest first ending at now: %v %v", b[0].Time, b[1].Time)
	}

	b = p.next(2, now, time.Second)
	if b[0].Lat != 3 || b[1].Lat != 1 {
		t.Errorf("expected wrap-around, got %+v", b)
	}
}
