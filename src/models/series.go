package models

import (
	"math"
	"time"
)

// MPricePoint is one daily close returned by a history provider.
type MPricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// -----------------------------------------------------------------------------

// MCachedSeries is one load of an instrument's history with both indicators.
// EMA and MA are index-aligned with Points. MA holds NaN until its window fills.
// Never mutate a series after it has been handed to the cache.
type MCachedSeries struct {
	Instrument string        `json:"instrument"`
	Points     []MPricePoint `json:"points"`
	EMA        []float64     `json:"ema"`
	MA         []float64     `json:"ma"`
	LoadedAt   time.Time     `json:"loaded_at"`
}

// Len returns the number of points.
func (s *MCachedSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Latest returns the most recent close and both indicators.
// ok is false for an empty series.
func (s *MCachedSeries) Latest() (close, ema, ma float64, ok bool) {
	n := s.Len()
	if n == 0 {
		return 0, 0, 0, false
	}
	return s.Points[n-1].Close, s.EMA[n-1], s.MA[n-1], true
}

// Indicator returns the indicator sequence the strategy reads.
func (s *MCachedSeries) Indicator(strategy Strategy) []float64 {
	if strategy == StrategyMA {
		return s.MA
	}
	return s.EMA
}

// -----------------------------------------------------------------------------

// MSummary describes where the latest close sits relative to recent history.
type MSummary struct {
	LastClose     float64 `json:"last_close"`
	ChangePercent float64 `json:"change_percent"`
	Mean          float64 `json:"mean"`
	Std           float64 `json:"std"`
	ZScore        float64 `json:"z_score"`
	Window        int     `json:"window"`
}

// MChartPoint is what the viewer renders per date.
type MChartPoint struct {
	Date      string   `json:"date"`
	Close     float64  `json:"close"`
	Indicator *float64 `json:"indicator"` // nil while undefined
}

// MChartSnapshot is the read-only view of the current instrument and strategy.
type MChartSnapshot struct {
	Instrument     string        `json:"instrument"`
	Strategy       Strategy      `json:"strategy"`
	IndicatorLabel string        `json:"indicator_label"`
	Balance        float64       `json:"balance"`
	Points         []MChartPoint `json:"points"`
	Summary        *MSummary     `json:"summary,omitempty"`
	LoadedAt       int64         `json:"loaded_at"`
	Timestamp      int64         `json:"timestamp"`
}

// NewChartSnapshot projects a series onto the selected indicator.
// series may be nil when nothing is cached yet.
func NewChartSnapshot(state MStateSnapshot, series *MCachedSeries, now time.Time) *MChartSnapshot {
	snap := &MChartSnapshot{
		Instrument:     state.Instrument,
		Strategy:       state.Strategy,
		IndicatorLabel: state.Strategy.IndicatorLabel(),
		Balance:        state.Balance,
		Points:         []MChartPoint{},
		Timestamp:      now.Unix(),
	}
	if series == nil {
		return snap
	}

	indicator := series.Indicator(state.Strategy)
	snap.Points = make([]MChartPoint, 0, series.Len())
	for i, p := range series.Points {
		cp := MChartPoint{Date: p.Date.Format("2006-01-02"), Close: p.Close}
		if v := indicator[i]; !math.IsNaN(v) {
			cp.Indicator = &v
		}
		snap.Points = append(snap.Points, cp)
	}
	snap.LoadedAt = series.LoadedAt.Unix()
	return snap
}
