package domain

import "time"

// DefaultMinInterval is used when a caller does not ask for a sampling interval.
const DefaultMinInterval = 2000 * time.Millisecond

// DefaultLocationSource names the source used when a request leaves it empty.
const DefaultLocationSource = "default"

// UpdateRequestConfig describes the sampling behaviour a consumer wants from a
// location stream. It is a value; build one per activation.
type UpdateRequestConfig struct {
	MinInterval        time.Duration `json:"min_interval"`
	HighAccuracy       bool          `json:"high_accuracy"`
	WaitForAccurateFix bool          `json:"wait_for_accurate_fix"`
	// Source selects the device or feed to follow. Empty means DefaultLocationSource.
	Source string `json:"source,omitempty"`
}

// DefaultUpdateRequestConfig returns the config used when nothing is specified.
func DefaultUpdateRequestConfig() UpdateRequestConfig {
	return UpdateRequestConfig{MinInterval: DefaultMinInterval}
}

// Priority is the accuracy/power trade-off requested from the provider.
type Priority int

const (
	PriorityBalanced Priority = iota
	PriorityHighAccuracy
)

func (p Priority) String() string {
	if p == PriorityHighAccuracy {
		return "high_accuracy"
	}
	return "balanced"
}

// LocationRequest is the provider-facing form of an UpdateRequestConfig.
type LocationRequest struct {
	Source                  string        `json:"source"`
	Interval                time.Duration `json:"interval"`
	Priority                Priority      `json:"priority"`
	WaitForAccurateLocation bool          `json:"wait_for_accurate_location"`
}

// NewLocationRequest builds the provider request for cfg. A negative interval
// falls back to DefaultMinInterval.
func NewLocationRequest(cfg UpdateRequestConfig) LocationRequest {
	interval := cfg.MinInterval
	if interval < 0 {
		interval = DefaultMinInterval
	}
	source := cfg.Source
	if source == "" {
		source = DefaultLocationSource
	}
	prio := PriorityBalanced
	if cfg.HighAccuracy {
		prio = PriorityHighAccuracy
	}
	return LocationRequest{
		Source:                  source,
		Interval:                interval,
		Priority:                prio,
		WaitForAccurateLocation: cfg.WaitForAccurateFix,
	}
}
