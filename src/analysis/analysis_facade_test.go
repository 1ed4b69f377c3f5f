package analysis

import (
	"math"
	"testing"
	"time"

	"signal-monitor/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestBuildSeriesSortsAndFilters(t *testing.T) {
	points := []models.MPricePoint{
		{Date: day(2), Close: 30},
		{Date: day(0), Close: 10},
		{Date: day(1), Close: 0},
		{Date: day(1), Close: 20},
	}

	s := BuildSeries("AAPL", points, 3, 2, day(5))
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{10, 20, 30}, []float64{s.Points[0].Close, s.Points[1].Close, s.Points[2].Close})
	assert.Len(t, s.EMA, 3)
	assert.Len(t, s.MA, 3)
	assert.True(t, math.IsNaN(s.MA[0]))
	assert.InDelta(t, 25.0, s.MA[2], 1e-12)
	assert.InDelta(t, 22.5, s.EMA[2], 1e-12)
	assert.Equal(t, day(5), s.LoadedAt)
}

func TestSummarize(t *testing.T) {
	cfg := &models.MConfig{DataSource: models.MDataSourceConfig{EMASpan: 20, MAWindow: 4}}
	a := NewAnalysisFacade(cfg, nil)

	assert.Nil(t, a.Summarize(nil))

	points := []models.MPricePoint{
		{Date: day(0), Close: 100},
		{Date: day(1), Close: 2},
		{Date: day(2), Close: 4},
		{Date: day(3), Close: 4},
		{Date: day(4), Close: 6},
	}
	sum := a.Summarize(a.BuildSeries("X", points, day(5)))
	require.NotNil(t, sum)

	assert.Equal(t, 6.0, sum.LastClose)
	assert.Equal(t, 4, sum.Window)
	assert.InDelta(t, 4.0, sum.Mean, 1e-12)
	assert.InDelta(t, 0.5, sum.ChangePercent, 1e-12)
	assert.Greater(t, sum.ZScore, 0.0)
}

func TestChartSnapshotUsesSelectedIndicator(t *testing.T) {
	cfg := &models.MConfig{DataSource: models.MDataSourceConfig{EMASpan: 3, MAWindow: 2}}
	a := NewAnalysisFacade(cfg, nil)
	series := a.BuildSeries("MSFT", []models.MPricePoint{{Date: day(0), Close: 10}, {Date: day(1), Close: 20}}, day(2))

	state := models.MStateSnapshot{Instrument: "MSFT", Strategy: models.StrategyMA, Balance: 10000}
	snap := a.ChartSnapshot(state, series, day(3))

	assert.Equal(t, "20 Day MA", snap.IndicatorLabel)
	require.Len(t, snap.Points, 2)
	assert.Nil(t, snap.Points[0].Indicator)
	require.NotNil(t, snap.Points[1].Indicator)
	assert.InDelta(t, 15.0, *snap.Points[1].Indicator, 1e-12)
	assert.Equal(t, "2024-01-02", snap.Points[1].Date)
	assert.NotNil(t, snap.Summary)

	empty := a.ChartSnapshot(state, nil, day(3))
	assert.Empty(t, empty.Points)
	assert.Nil(t, empty.Summary)
}
