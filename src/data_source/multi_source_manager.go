package datasource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"signal-monitor/src/interfaces"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
)

// MultiSourceManager is an IHistoryProvider that asks its sources in
// registration order and returns the first non-empty history.
type MultiSourceManager struct {
	Logger  *logger.Logger
	mu      sync.RWMutex
	order   []string
	sources map[string]interfaces.IHistoryProvider
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IHistoryProvider, log *logger.Logger) *MultiSourceManager {
	if log == nil {
		log = logger.NewLogger(nil, "MultiSourceManager")
	}
	m := &MultiSourceManager{
		Logger:  log,
		sources: make(map[string]interfaces.IHistoryProvider),
	}
	for _, s := range sources {
		if err := m.AddSource(s); err != nil {
			log.Warning("%v", err)
		}
	}
	return m
}

// -----------------------------------------------------------------------------

// AddSource appends a source at the lowest priority.
func (m *MultiSourceManager) AddSource(source interfaces.IHistoryProvider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.sources[name] = source
	m.order = append(m.order, name)
	m.Logger.Info("Added source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSource drops a source by name.
func (m *MultiSourceManager) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sources[name]; !exists {
		return fmt.Errorf("source %s not found", name)
	}
	delete(m.sources, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	m.Logger.Info("Removed source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) GetSource(name string) (interfaces.IHistoryProvider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sources[name]
	if !ok {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return s, nil
}

// -----------------------------------------------------------------------------

// GetAllSources returns sources in priority order.
func (m *MultiSourceManager) GetAllSources() []interfaces.IHistoryProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]interfaces.IHistoryProvider, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.sources[name])
	}
	return out
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return "multi(" + strings.Join(m.order, ",") + ")"
}

// -----------------------------------------------------------------------------

// GetHistory falls through the sources until one returns data. When every
// source fails, the first error is returned. When some succeeded with no
// data, the result is empty and the error nil.
func (m *MultiSourceManager) GetHistory(ctx context.Context, instrument string, start, end time.Time) ([]models.MPricePoint, error) {
	var firstErr error
	anyOK := false

	for _, s := range m.GetAllSources() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		points, err := s.GetHistory(ctx, instrument, start, end)
		if err != nil {
			m.Logger.Info("Source %s failed for %s: %v", s.Name(), instrument, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		anyOK = true
		if len(points) > 0 {
			return points, nil
		}
	}

	if !anyOK && firstErr != nil {
		return nil, fmt.Errorf("all sources failed: %w", firstErr)
	}
	return []models.MPricePoint{}, nil
}
