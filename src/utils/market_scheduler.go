package utils

import (
	"sync"
	"time"

	"signal-monitor/src/logger"
)

// MarketScheduler answers whether an instrument's exchange is in session.
// Calendars are loaded once per exchange on first use.
type MarketScheduler struct {
	Logger *logger.Logger
	Now    func() time.Time

	mu        sync.Mutex
	calendars map[string]*TradingCalendar
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(l *logger.Logger) *MarketScheduler {
	if l == nil {
		l = logger.NewLogger(nil, "MarketScheduler")
	}
	return &MarketScheduler{
		Logger:    l,
		Now:       time.Now,
		calendars: make(map[string]*TradingCalendar),
	}
}

// -----------------------------------------------------------------------------

// CalendarFor returns the calendar of the instrument's exchange.
func (ms *MarketScheduler) CalendarFor(instrument string) *TradingCalendar {
	mic := MICForSymbol(instrument)

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if cal, ok := ms.calendars[mic]; ok {
		return cal
	}
	cal := NewTradingCalendar(mic)
	if cal.Fallback {
		ms.Logger.Warning("No calendar for %s; using Mon-Fri 09:30-16:00 New York", mic)
	}
	ms.calendars[mic] = cal
	return cal
}

// IsOpen reports whether the instrument's market is open now.
func (ms *MarketScheduler) IsOpen(instrument string) bool {
	return ms.CalendarFor(instrument).IsOpenOnMinute(ms.Now().UTC())
}
