package world

import (
	"fmt"

	"evenflow/internal/affinity"
)

type TickReport struct {
	Locations int `json:"locations"`
	Pruned    int `json:"pruned"`
}

// Tick advances every location to now: faded traces are pruned, saturation
// usage is recomputed and the tick time recorded. Locations are visited one
// at a time.
func (w *World) Tick() (TickReport, error) {
	var report TickReport
	for _, id := range w.ListLocations() {
		err := w.write(id, func(loc *affinity.Location) error {
			now := w.now()
			n, err := loc.Prune(w.params, w.cfg.PruneBelow, now)
			if err != nil {
				return err
			}
			if err := loc.Refresh(w.params, now); err != nil {
				return err
			}
			loc.LastTick = now
			report.Pruned += n
			return nil
		})
		if err != nil {
			return report, fmt.Errorf("ticking %s: %w", id, err)
		}
		report.Locations++
	}
	return report, nil
}
