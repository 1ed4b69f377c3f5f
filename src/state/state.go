package state

import (
	"fmt"
	"strings"
	"sync"

	"signal-monitor/src/helpers"
	"signal-monitor/src/models"

	"github.com/shopspring/decimal"
)

// SharedState holds the monitored instrument, the active strategy and the
// running balance. Every accessor takes the lock for a single field read or
// write and never performs I/O while holding it.
type SharedState struct {
	mu         sync.RWMutex
	instrument string
	strategy   models.Strategy
	balance    decimal.Decimal
}

// -----------------------------------------------------------------------------

// NewSharedState seeds the state. The instrument is normalised the same way
// SetInstrument does it.
func NewSharedState(instrument string, strategy models.Strategy, balance float64) (*SharedState, error) {
	sym, err := NormalizeInstrument(instrument)
	if err != nil {
		return nil, err
	}
	parsed, err := models.ParseStrategy(string(strategy))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", helpers.ErrRejectedStrategy, err)
	}
	return &SharedState{
		instrument: sym,
		strategy:   parsed,
		balance:    decimal.NewFromFloat(balance),
	}, nil
}

// NormalizeInstrument trims and upper-cases a symbol.
func NormalizeInstrument(v string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(v))
	if sym == "" {
		return "", helpers.ErrEmptyInstrument
	}
	return sym, nil
}

// -----------------------------------------------------------------------------

func (s *SharedState) GetInstrument() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instrument
}

// SetInstrument replaces the monitored instrument and returns the stored form.
func (s *SharedState) SetInstrument(v string) (string, error) {
	sym, err := NormalizeInstrument(v)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.instrument = sym
	s.mu.Unlock()
	return sym, nil
}

func (s *SharedState) GetStrategy() models.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strategy
}

// SetStrategy parses v and stores it. An unknown value leaves the state
// untouched and returns an error wrapping helpers.ErrRejectedStrategy.
func (s *SharedState) SetStrategy(v string) (models.Strategy, error) {
	strategy, err := models.ParseStrategy(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", helpers.ErrRejectedStrategy, err)
	}
	s.mu.Lock()
	s.strategy = strategy
	s.mu.Unlock()
	return strategy, nil
}

// -----------------------------------------------------------------------------

func (s *SharedState) GetBalance() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance.InexactFloat64()
}

// AdjustBalance adds delta and returns the balance as it was before.
// Read and write happen under one lock so concurrent callers each see a
// distinct prior value.
func (s *SharedState) AdjustBalance(delta float64) float64 {
	d := decimal.NewFromFloat(delta)
	s.mu.Lock()
	before := s.balance
	s.balance = before.Add(d)
	s.mu.Unlock()
	return before.InexactFloat64()
}

// Snapshot reads all three fields under one lock.
func (s *SharedState) Snapshot() models.MStateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.MStateSnapshot{
		Instrument: s.instrument,
		Strategy:   s.strategy,
		Balance:    s.balance.InexactFloat64(),
	}
}
