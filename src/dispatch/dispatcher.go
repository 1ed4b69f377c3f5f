package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"signal-monitor/src/helpers"
	"signal-monitor/src/interfaces"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
)

// IDeliverer sends a trade result to the controller.
type IDeliverer interface {
	Deliver(ctx context.Context, result models.MTradeResult) error
}

// Dispatcher persists and forwards every trade result. The two sinks fail
// independently; neither failure is returned to the caller.
type Dispatcher struct {
	Store     interfaces.ITradeStore
	Deliverer IDeliverer
	Logger    *logger.Logger
	// StoreTimeout bounds the persistence attempt.
	StoreTimeout time.Duration

	errHandler *helpers.ErrorHandler

	dispatched       atomic.Uint64
	persisted        atomic.Uint64
	persistFailures  atomic.Uint64
	delivered        atomic.Uint64
	deliveryFailures atomic.Uint64
	noPeerSkips      atomic.Uint64
}

// -----------------------------------------------------------------------------

// NewDispatcher accepts a nil store or deliverer; that side is then skipped.
func NewDispatcher(store interfaces.ITradeStore, deliverer IDeliverer, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewLogger(nil, "ResultDispatcher")
	}
	return &Dispatcher{
		Store:        store,
		Deliverer:    deliverer,
		Logger:       log,
		StoreTimeout: 5 * time.Second,
		errHandler:   helpers.NewErrorHandler(log),
	}
}

// -----------------------------------------------------------------------------

// Dispatch makes one persistence attempt and one delivery attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, result models.MTradeResult) {
	d.dispatched.Add(1)
	d.persist(ctx, result)
	d.deliver(ctx, result)
}

func (d *Dispatcher) persist(ctx context.Context, result models.MTradeResult) {
	if d.Store == nil {
		return
	}
	defer d.errHandler.Recover("persist trade")

	ctx, cancel := context.WithTimeout(ctx, d.StoreTimeout)
	defer cancel()

	err := d.Store.EnsureConnection(ctx)
	if err == nil {
		err = d.Store.SaveTrade(ctx, result)
	}
	if err != nil {
		d.persistFailures.Add(1)
		d.errHandler.Handle(err, "persist trade")
		return
	}
	d.persisted.Add(1)
}

func (d *Dispatcher) deliver(ctx context.Context, result models.MTradeResult) {
	if d.Deliverer == nil {
		return
	}
	defer d.errHandler.Recover("deliver trade")

	err := d.Deliverer.Deliver(ctx, result)
	switch {
	case err == nil:
		d.delivered.Add(1)
	case errors.Is(err, helpers.ErrNoActivePeer):
		d.noPeerSkips.Add(1)
		d.Logger.Debug("No controller connected; trade not forwarded")
	default:
		d.deliveryFailures.Add(1)
		d.errHandler.Handle(err, "deliver trade")
	}
}

// -----------------------------------------------------------------------------

// Stats returns the counters since startup.
func (d *Dispatcher) Stats() models.MDispatchStats {
	return models.MDispatchStats{
		Dispatched:       d.dispatched.Load(),
		Persisted:        d.persisted.Load(),
		PersistFailures:  d.persistFailures.Load(),
		Delivered:        d.delivered.Load(),
		DeliveryFailures: d.deliveryFailures.Load(),
		NoPeerSkips:      d.noPeerSkips.Load(),
	}
}
