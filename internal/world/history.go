package world

import (
	"evenflow/internal/affinity"
)

const DefaultHistoryWindowDays = 30

func (w *World) History(locationID string, windowDays int) (*affinity.HistorySummary, error) {
	var out *affinity.HistorySummary
	err := w.read(locationID, func(loc *affinity.Location) error {
		s, err := affinity.Summarize(loc, windowDays, w.now())
		if err != nil {
			return err
		}
		out = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (w *World) ExplainValuation(locationID, eventType string) (affinity.Valuation, error) {
	var v affinity.Valuation
	err := w.read(locationID, func(loc *affinity.Location) error {
		v = loc.Valuation.Resolve(eventType)
		return nil
	})
	return v, err
}
