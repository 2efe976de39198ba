package geospatial

import (
	"math"
	"testing"

	"github.com/samirrijal/plaza/internal/core/domain"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// Bilbao (Moyua) to Donostia (Boulevard), roughly 80 km.
	d := Haversine(43.2630, -2.9350, 43.3220, -1.9840)
	if d < 76000 || d > 80000 {
		t.Errorf("expected about 77.5 km, got %.0f m", d)
	}
}

func TestHaversine_SamePoint(t *testing.T) {
	if d := Haversine(10, 20, 10, 20); d != 0 {
		t.Errorf("expected 0, got %v", d)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := domain.GeoPoint{Lat: 40.4168, Lon: -3.7038}
	b := domain.GeoPoint{Lat: 41.3874, Lon: 2.1686}
	if math.Abs(Distance(a, b)-Distance(b, a)) > 1e-6 {
		t.Error("distance must be symmetric")
	}
}

func TestBoundingBox_ContainsRadius(t *testing.T) {
	center := domain.GeoPoint{Lat: 43.26, Lon: -2.93}
	b := BoundingBox(center, 1000)

	if !b.Contains(center) {
		t.Fatal("box must contain its center")
	}
	north := domain.GeoPoint{Lat: center.Lat + 999.0/metersPerDegreeLat, Lon: center.Lon}
	if !b.Contains(north) {
		t.Error("box must contain a point 999 m north")
	}
	far := domain.GeoPoint{Lat: center.Lat + 0.1, Lon: center.Lon}
	if b.Contains(far) {
		t.Error("box must not contain a point ~11 km away")
	}
}

func TestBoundingBox_ClampsAtPole(t *testing.T) {
	b := BoundingBox(domain.GeoPoint{Lat: 89.999, Lon: 10}, 5000)
	if b.MaxLat != 90 {
		t.Errorf("expected max lat clamped to 90, got %v", b.MaxLat)
	}
	if b.MinLon != -180 || b.MaxLon != 180 {
		t.Errorf("expected full longitude span near the pole, got %v..%v", b.MinLon, b.MaxLon)
	}
}
