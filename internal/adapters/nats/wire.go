package natsadapter

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samirrijal/plaza/internal/core/domain"
)

// DefaultSource is used for requests that do not name a source.
const DefaultSource = domain.DefaultLocationSource

// AccurateFixMeters is the accuracy a fix must reach before a request that
// waits for an accurate location starts delivering.
const AccurateFixMeters = 25.0

// FixSubject is where devices publish fix batches for source.
func FixSubject(prefix, source string) string {
	return prefix + ".fix." + source
}

// RequestSubject is where location requests for source are announced.
func RequestSubject(prefix, source string) string {
	return prefix + ".request." + source
}

// RequestMessage is published when a consumer registers for a source.
type RequestMessage struct {
	Source       string `json:"source"`
	IntervalMS   int64  `json:"interval_ms"`
	Priority     string `json:"priority"`
	WaitAccurate bool   `json:"wait_accurate"`
}

func newRequestMessage(req domain.LocationRequest) RequestMessage {
	return RequestMessage{
		Source:       req.Source,
		IntervalMS:   req.Interval.Milliseconds(),
		Priority:     req.Priority.String(),
		WaitAccurate: req.WaitForAccurateLocation,
	}
}

// validSource reports whether s can be used as a single subject token.
func validSource(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	return !strings.ContainsAny(s, ".*> \t\r\n")
}

// decodeBatch parses a fix batch. Only the JSON shape is checked; coordinates
// are passed on as published. A negative accuracy is treated as unknown. When
// every fix carries a timestamp the batch is put in oldest to newest order.
func decodeBatch(data []byte) ([]domain.Fix, error) {
	var batch []domain.Fix
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("decode fix batch: %w", err)
	}
	timed := true
	for i := range batch {
		if batch[i].Accuracy < 0 {
			batch[i].Accuracy = 0
		}
		if batch[i].Time.IsZero() {
			timed = false
		}
	}
	if timed {
		slices.SortStableFunc(batch, func(a, b domain.Fix) int {
			return a.Time.Compare(b.Time)
		})
	}
	return batch, nil
}

// fixGate applies a LocationRequest to incoming batches. It is only touched
// from the subscription's delivery goroutine.
type fixGate struct {
	interval     time.Duration
	waitAccurate bool

	accurate bool
	last     time.Time
}

func newFixGate(req domain.LocationRequest) *fixGate {
	return &fixGate{interval: req.Interval, waitAccurate: req.WaitForAccurateLocation}
}

// admit reports whether batch should be delivered at now. Empty batches are
// passed through untouched and do not count as a delivery.
func (g *fixGate) admit(batch []domain.Fix, now time.Time) bool {
	if len(batch) == 0 {
		return true
	}
	if g.waitAccurate && !g.accurate {
		for _, f := range batch {
			if f.Accuracy > 0 && f.Accuracy <= AccurateFixMeters {
				g.accurate = true
				break
			}
		}
		if !g.accurate {
			return false
		}
	}
	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		return false
	}
	g.last = now
	return true
}
