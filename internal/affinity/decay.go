package affinity

import (
	"fmt"
	"math"
	"time"
)

// TraceRecord is one decaying memory unit. IsScar never reverts once set.
type TraceRecord struct {
	Accumulated float64   `json:"accumulated"`
	LastUpdated time.Time `json:"last_updated"`
	EventCount  int       `json:"event_count"`
	IsScar      bool      `json:"is_scar"`
}

// DecayedValue returns the present value of rec at now using a half-life
// given in seconds. Scars are exempt from decay.
func DecayedValue(rec TraceRecord, halfLifeSeconds float64, now time.Time) (float64, error) {
	if !(halfLifeSeconds > 0) || math.IsInf(halfLifeSeconds, 0) {
		return 0, fmt.Errorf("%w: half-life must be positive and finite, got %v", ErrConfiguration, halfLifeSeconds)
	}
	if rec.IsScar {
		return rec.Accumulated, nil
	}
	elapsed := now.Sub(rec.LastUpdated).Seconds()
	if elapsed <= 0 {
		return rec.Accumulated, nil
	}
	v := rec.Accumulated * math.Exp2(-elapsed/halfLifeSeconds)
	if v < 0 || math.IsNaN(v) {
		return 0, nil
	}
	return v, nil
}

// HalfLifeSeconds converts a half-life in days to seconds.
func HalfLifeSeconds(days float64) float64 {
	return days * 86400
}
