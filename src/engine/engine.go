package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"signal-monitor/src/helpers"
	"signal-monitor/src/interfaces"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
	"signal-monitor/src/state"
)

// ISeriesWaiter blocks until market data for an instrument is available.
type ISeriesWaiter interface {
	WaitFor(ctx context.Context, instrument string, timeout time.Duration) (*models.MCachedSeries, error)
}

// ITradeSink receives every trade decision.
type ITradeSink interface {
	Dispatch(ctx context.Context, result models.MTradeResult)
}

// Options tune the engine. Zero values fall back to defaults.
type Options struct {
	TickInterval    time.Duration
	WaitTimeout     time.Duration
	TradeAmount     float64
	MarketHoursOnly bool
	Now             func() time.Time
}

// -----------------------------------------------------------------------------

// Engine evaluates the active strategy on a fixed period and books the
// resulting trade against the shared balance.
type Engine struct {
	State  *state.SharedState
	Cache  ISeriesWaiter
	Sink   ITradeSink
	Clock  interfaces.IMarketClock
	Logger *logger.Logger

	opts       Options
	errHandler *helpers.ErrorHandler
}

func NewEngine(st *state.SharedState, cache ISeriesWaiter, sink ITradeSink, clock interfaces.IMarketClock, opts Options, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewLogger(nil, "StrategyEngine")
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 10 * time.Second
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 30 * time.Second
	}
	if opts.TradeAmount <= 0 {
		opts.TradeAmount = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		State:      st,
		Cache:      cache,
		Sink:       sink,
		Clock:      clock,
		Logger:     log,
		opts:       opts,
		errHandler: helpers.NewErrorHandler(log),
	}
}

// -----------------------------------------------------------------------------

// Decide is the signal rule: buy when the close is above the indicator the
// strategy reads, sell otherwise.
func Decide(close, ema, ma float64, strategy models.Strategy) models.Action {
	if close > SelectIndicator(ema, ma, strategy) {
		return models.ActionBuy
	}
	return models.ActionSell
}

// SelectIndicator picks the indicator value for strategy.
func SelectIndicator(ema, ma float64, strategy models.Strategy) float64 {
	if strategy == models.StrategyMA {
		return ma
	}
	return ema
}

// -----------------------------------------------------------------------------

// Run ticks immediately and then every TickInterval until ctx ends.
func (e *Engine) Run(ctx context.Context) {
	e.Logger.Info("Strategy engine started (every %s, wait %s)", e.opts.TickInterval, e.opts.WaitTimeout)

	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	for {
		e.safeTick(ctx)

		select {
		case <-ctx.Done():
			e.Logger.Info("Strategy engine stopped")
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) safeTick(ctx context.Context) {
	defer e.errHandler.Recover("strategy tick")

	if _, err := e.Tick(ctx); err != nil && ctx.Err() == nil {
		e.errHandler.Handle(err, "strategy tick")
	}
}

// -----------------------------------------------------------------------------

// Tick runs one evaluation. It returns the trade that was booked, or an
// error explaining why the tick was skipped. A skipped tick leaves the
// balance untouched.
func (e *Engine) Tick(ctx context.Context) (*models.MTradeResult, error) {
	snap := e.State.Snapshot()

	if e.opts.MarketHoursOnly && e.Clock != nil && !e.Clock.IsOpen(snap.Instrument) {
		return nil, fmt.Errorf("%s: %w", snap.Instrument, helpers.ErrMarketClosed)
	}

	series, err := e.Cache.WaitFor(ctx, snap.Instrument, e.opts.WaitTimeout)
	if err != nil {
		return nil, err
	}

	closePrice, ema, ma, ok := series.Latest()
	if !ok {
		return nil, fmt.Errorf("%s: %w", snap.Instrument, helpers.ErrProviderEmpty)
	}
	if math.IsNaN(SelectIndicator(ema, ma, snap.Strategy)) {
		return nil, fmt.Errorf("%s %s after %d points: %w",
			snap.Instrument, snap.Strategy, series.Len(), helpers.ErrIndicatorUnavailable)
	}

	result := models.MTradeResult{
		Instrument: snap.Instrument,
		Action:     Decide(closePrice, ema, ma, snap.Strategy),
		Price:      closePrice,
		Amount:     e.opts.TradeAmount,
		Timestamp:  e.opts.Now(),
	}
	result.Balance = e.State.AdjustBalance(result.Delta())

	e.Logger.Info("%s", result)
	if e.Sink != nil {
		e.Sink.Dispatch(ctx, result)
	}
	return &result, nil
}
