package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/plaza/internal/core/domain"
)

// readTrack parses a CSV track of lat,lon[,accuracy] rows. A header row and
// blank lines are skipped.
func readTrack(r io.Reader) ([]domain.Fix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var track []domain.Fix
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "lat") {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: want lat,lon[,accuracy], got %d fields", line, len(rec))
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: lat: %w", line, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: lon: %w", line, err)
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("line %d: coordinate out of range (%v, %v)", line, lat, lon)
		}
		f := domain.Fix{Lat: lat, Lon: lon}
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			if f.Accuracy, err = strconv.ParseFloat(strings.TrimSpace(rec[2]), 64); err != nil {
				return nil, fmt.Errorf("line %d: accuracy: %w", line, err)
			}
		}
		track = append(track, f)
	}
	if len(track) == 0 {
		return nil, fmt.Errorf("track is empty")
	}
	return track, nil
}

// circleTrack is the built-in track: n points on a circle of radius meters.
func circleTrack(center domain.GeoPoint, radius float64, n int) []domain.Fix {
	const metersPerDegree = 111320.0
	track := make([]domain.Fix, n)
	for i := range track {
		a := 2 * math.Pi * float64(i) / float64(n)
		track[i] = domain.Fix{
			Lat:      center.Lat + radius*math.Sin(a)/metersPerDegree,
			Lon:      center.Lon + radius*math.Cos(a)/(metersPerDegree*math.Cos(center.Lat*math.Pi/180)),
			Accuracy: 10,
		}
	}
	return track
}

// player walks a track in a loop, emitting batches of consecutive fixes.
type player struct {
	track []domain.Fix
	pos   int
}

func (p *player) next(size int, now time.Time, spacing time.Duration) []domain.Fix {
	batch := make([]domain.Fix, size)
	for i := range batch {
		f := p.track[p.pos]
		f.Time = now.Add(-time.Duration(size-1-i) * spacing)
		batch[i] = f
		p.pos = (p.pos + 1) % len(p.track)
	}
	return batch
}
