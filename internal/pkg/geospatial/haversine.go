package geospatial

import (
	"math"

	"github.com/samirrijal/plaza/internal/core/domain"
)

const earthRadiusKm = 6371.0

// metersPerDegreeLat is the length of one degree of latitude.
const metersPerDegreeLat = 111320.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine over two GeoPoints.
func Distance(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// BoundingBox returns a box that contains every point within radiusMeters of
// center. Latitude is clamped to the poles; near them the box spans all
// longitudes.
func BoundingBox(center domain.GeoPoint, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / metersPerDegreeLat
	b := domain.Bounds{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MinLon: -180,
		MaxLon: 180,
	}

	cos := math.Cos(toRad(center.Lat))
	if cos < 1e-6 {
		return b
	}
	lonDelta := radiusMeters / (metersPerDegreeLat * cos)
	if lonDelta < 180 {
		b.MinLon = math.Max(center.Lon-lonDelta, -180)
		b.MaxLon = math.Min(center.Lon+lonDelta, 180)
	}
	return b
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
