package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"signal-monitor/src/helpers"
	"signal-monitor/src/interfaces"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
	"signal-monitor/src/state"

	"golang.org/x/sync/singleflight"
)

// Options tune a MarketDataCache. Zero values fall back to sane defaults.
type Options struct {
	// MaxEntries bounds the number of cached instruments. 0 means unbounded.
	MaxEntries int
	// LoadTimeout bounds a single provider fetch.
	LoadTimeout time.Duration
	// HistoryRange resolves the provider window for a load started at now.
	HistoryRange func(now time.Time) (time.Time, time.Time, error)
	Now          func() time.Time
}

// MarketDataCache maps an instrument to the series of its latest successful
// load. Loads for the same instrument are coalesced. Readers can block until
// an entry appears; every install wakes all waiters.
type MarketDataCache struct {
	provider interfaces.IHistoryProvider
	builder  interfaces.ISeriesBuilder
	opts     Options
	Logger   *logger.Logger

	mu      sync.RWMutex
	entries map[string]*models.MCachedSeries
	changed chan struct{}

	group singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lifeMu sync.Mutex
	closed bool
}

// -----------------------------------------------------------------------------

func NewMarketDataCache(provider interfaces.IHistoryProvider, builder interfaces.ISeriesBuilder, opts Options, log *logger.Logger) *MarketDataCache {
	if log == nil {
		log = logger.NewLogger(nil, "MarketDataCache")
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HistoryRange == nil {
		opts.HistoryRange = func(now time.Time) (time.Time, time.Time, error) {
			return now.AddDate(-2, 0, 0), now, nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &MarketDataCache{
		provider: provider,
		builder:  builder,
		opts:     opts,
		Logger:   log,
		entries:  make(map[string]*models.MCachedSeries),
		changed:  make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// -----------------------------------------------------------------------------

// TriggerLoad starts a background load and returns immediately. A load
// already in flight for the same instrument absorbs the trigger.
func (c *MarketDataCache) TriggerLoad(instrument string) {
	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return
	}
	c.wg.Add(1)
	c.lifeMu.Unlock()

	go func() {
		defer c.wg.Done()
		if _, err := c.Load(c.ctx, instrument); err != nil {
			c.Logger.Warning("Background load of %s failed: %v", instrument, err)
		}
	}()
}

// -----------------------------------------------------------------------------

// Load fetches and installs the instrument, waiting for the result.
// Cancelling ctx abandons the wait but not a load shared with other callers.
func (c *MarketDataCache) Load(ctx context.Context, instrument string) (*models.MCachedSeries, error) {
	sym, err := state.NormalizeInstrument(instrument)
	if err != nil {
		return nil, err
	}

	ch := c.group.DoChan(sym, func() (interface{}, error) {
		return c.fetch(sym)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.MCachedSeries), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetch runs under the singleflight key for sym.
func (c *MarketDataCache) fetch(sym string) (*models.MCachedSeries, error) {
	start, end, err := c.opts.HistoryRange(c.opts.Now())
	if err != nil {
		return nil, helpers.NewDataSourceError(sym, err)
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.opts.LoadTimeout)
	defer cancel()

	c.Logger.Info("Loading %s from %s (%s to %s)", sym, c.provider.Name(),
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	points, err := c.provider.GetHistory(ctx, sym, start, end)
	if err != nil {
		return nil, helpers.NewDataSourceError(sym, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", sym, helpers.ErrProviderEmpty)
	}

	series := c.builder.BuildSeries(sym, points, c.opts.Now())
	if series.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", sym, helpers.ErrProviderEmpty)
	}

	c.install(series)
	c.Logger.Info("Cached %s: %d points", sym, series.Len())
	return series, nil
}

// install replaces the entry, applies the size bound and wakes waiters.
func (c *MarketDataCache) install(series *models.MCachedSeries) {
	var evicted []string

	c.mu.Lock()
	c.entries[series.Instrument] = series
	for c.opts.MaxEntries > 0 && len(c.entries) > c.opts.MaxEntries {
		victim := ""
		var oldest time.Time
		for sym, s := range c.entries {
			if sym == series.Instrument {
				continue
			}
			if victim == "" || s.LoadedAt.Before(oldest) {
				victim, oldest = sym, s.LoadedAt
			}
		}
		if victim == "" {
			break
		}
		delete(c.entries, victim)
		evicted = append(evicted, victim)
	}
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()

	for _, sym := range evicted {
		c.Logger.Debug("Evicted %s", sym)
	}
}

// -----------------------------------------------------------------------------

// WaitFor returns the cached series for instrument, blocking up to timeout
// for one to be installed. It fails with helpers.ErrTimeout when the deadline
// passes, ctx.Err() when ctx ends and helpers.ErrClosed after Close.
func (c *MarketDataCache) WaitFor(ctx context.Context, instrument string, timeout time.Duration) (*models.MCachedSeries, error) {
	sym, err := state.NormalizeInstrument(instrument)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		c.mu.RLock()
		series, ok := c.entries[sym]
		changed := c.changed
		c.mu.RUnlock()

		if ok {
			return series, nil
		}

		select {
		case <-changed:
		case <-timer.C:
			return nil, fmt.Errorf("%s after %s: %w", sym, timeout, helpers.ErrTimeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.ctx.Done():
			return nil, helpers.ErrClosed
		}
	}
}

// -----------------------------------------------------------------------------

// Get returns the cached series without blocking.
func (c *MarketDataCache) Get(instrument string) (*models.MCachedSeries, bool) {
	sym, err := state.NormalizeInstrument(instrument)
	if err != nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[sym]
	return s, ok
}

// Instruments lists cached symbols in sorted order.
func (c *MarketDataCache) Instruments() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.entries))
	for sym := range c.entries {
		out = append(out, sym)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------

// Close cancels in-flight loads, releases waiters and waits for background
// loads to exit.
func (c *MarketDataCache) Close() {
	c.lifeMu.Lock()
	c.closed = true
	c.lifeMu.Unlock()

	c.cancel()
	c.wg.Wait()
}
