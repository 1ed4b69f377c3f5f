package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMICForSymbol(t *testing.T) {
	assert.Equal(t, "xnys", MICForSymbol("AAPL"))
	assert.Equal(t, "xlon", MICForSymbol("vod.l"))
	assert.Equal(t, "xtks", MICForSymbol("7203.T"))
	assert.Equal(t, "xnys", MICForSymbol("BRK.B"))
}

func TestFallbackCalendarHours(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	tc := &TradingCalendar{Fallback: true, Timezone: ny}

	monday := time.Date(2024, 6, 3, 10, 0, 0, 0, ny)
	assert.True(t, tc.IsOpenOnMinute(monday))
	assert.False(t, tc.IsOpenOnMinute(monday.Add(-31*time.Minute)))
	assert.False(t, tc.IsOpenOnMinute(time.Date(2024, 6, 3, 16, 0, 0, 0, ny)))
	assert.False(t, tc.IsOpenOnMinute(time.Date(2024, 6, 8, 12, 0, 0, 0, ny)))
}

func TestMarketSchedulerNYSE(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	ms := NewMarketScheduler(nil)

	ms.Now = func() time.Time { return time.Date(2024, 6, 4, 11, 0, 0, 0, ny) }
	assert.True(t, ms.IsOpen("AAPL"))

	// Saturday
	ms.Now = func() time.Time { return time.Date(2024, 6, 8, 11, 0, 0, 0, ny) }
	assert.False(t, ms.IsOpen("AAPL"))

	// Independence Day
	ms.Now = func() time.Time { return time.Date(2024, 7, 4, 11, 0, 0, 0, ny) }
	assert.False(t, ms.IsOpen("MSFT"))

	assert.Same(t, ms.CalendarFor("AAPL"), ms.CalendarFor("MSFT"))
}
