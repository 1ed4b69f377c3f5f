package analysis

import (
	"sort"
	"time"

	"signal-monitor/src/analysis/core"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
)

// AnalysisFacade turns raw provider history into cached series and viewer
// summaries.
type AnalysisFacade struct {
	EMASpan  int
	MAWindow int
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, log *logger.Logger) *AnalysisFacade {
	if log == nil {
		log = logger.NewLogger(cfg, "Analysis")
	}
	return &AnalysisFacade{
		EMASpan:  cfg.DataSource.EMASpan,
		MAWindow: cfg.DataSource.MAWindow,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

// BuildSeries sorts points by date, drops non-positive closes and computes
// both indicators from the same close sequence.
func (a *AnalysisFacade) BuildSeries(instrument string, points []models.MPricePoint, now time.Time) *models.MCachedSeries {
	return BuildSeries(instrument, points, a.EMASpan, a.MAWindow, now)
}

// BuildSeries is the configuration-free form of AnalysisFacade.BuildSeries.
func BuildSeries(instrument string, points []models.MPricePoint, emaSpan, maWindow int, now time.Time) *models.MCachedSeries {
	clean := make([]models.MPricePoint, 0, len(points))
	for _, p := range points {
		if p.Close > 0 {
			clean = append(clean, p)
		}
	}
	sort.SliceStable(clean, func(i, j int) bool {
		return clean[i].Date.Before(clean[j].Date)
	})

	closes := make([]float64, len(clean))
	for i, p := range clean {
		closes[i] = p.Close
	}

	return &models.MCachedSeries{
		Instrument: instrument,
		Points:     clean,
		EMA:        core.EMA(closes, emaSpan),
		MA:         core.SMA(closes, maWindow),
		LoadedAt:   now,
	}
}

// -----------------------------------------------------------------------------

// Summarize compares the latest close against the trailing window of closes.
// Returns nil for an empty series.
func (a *AnalysisFacade) Summarize(series *models.MCachedSeries) *models.MSummary {
	n := series.Len()
	if n == 0 {
		return nil
	}

	closes := make([]float64, n)
	for i, p := range series.Points {
		closes[i] = p.Close
	}
	last := closes[n-1]

	window := core.Tail(closes, a.MAWindow)
	mean, std := core.CalculateMeanStd(window)

	change := 0.0
	if n > 1 {
		change = core.CalculateChangePercent(last, closes[n-2])
	}

	return &models.MSummary{
		LastClose:     last,
		ChangePercent: change,
		Mean:          mean,
		Std:           std,
		ZScore:        core.CalculateZScore(last, mean, std),
		Window:        len(window),
	}
}

// -----------------------------------------------------------------------------

// ChartSnapshot builds the viewer payload for the given state and series.
func (a *AnalysisFacade) ChartSnapshot(state models.MStateSnapshot, series *models.MCachedSeries, now time.Time) *models.MChartSnapshot {
	snap := models.NewChartSnapshot(state, series, now)
	snap.Summary = a.Summarize(series)
	return snap
}
