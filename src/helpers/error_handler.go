package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signal-monitor/src/logger"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrTimeout: no cache entry appeared before the deadline.
	ErrTimeout = errors.New("timed out waiting for market data")
	// ErrMalformedControlMessage: a control line could not be decoded.
	ErrMalformedControlMessage = errors.New("malformed control message")
	// ErrRejectedStrategy: the strategy value is outside the closed set.
	ErrRejectedStrategy = errors.New("rejected strategy value")
	// ErrEmptyInstrument: an instrument update carried no symbol.
	ErrEmptyInstrument = errors.New("empty instrument")
	// ErrProviderEmpty: the provider returned no usable points.
	ErrProviderEmpty = errors.New("provider returned no data")
	// ErrNoActivePeer: there is no control connection to deliver to.
	ErrNoActivePeer = errors.New("no active control peer")
	// ErrIndicatorUnavailable: the selected indicator is not defined yet.
	ErrIndicatorUnavailable = errors.New("indicator not available")
	// ErrMarketClosed: the instrument's exchange is not in session.
	ErrMarketClosed = errors.New("market closed")
	// ErrClosed: the component was shut down.
	ErrClosed = errors.New("closed")
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type SignalMonitorError struct {
	Message string
	Cause   error
}

func (e *SignalMonitorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SignalMonitorError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As
type ConfigurationError struct{ SignalMonitorError }
type NetworkError struct{ SignalMonitorError }
type DataSourceError struct{ SignalMonitorError }
type PersistenceError struct{ SignalMonitorError }
type DeliveryError struct{ SignalMonitorError }

// NewPersistenceError wraps a store failure.
func NewPersistenceError(op string, cause error) error {
	return &PersistenceError{SignalMonitorError{Message: op, Cause: cause}}
}

// NewDeliveryError wraps a peer send failure.
func NewDeliveryError(peerID string, cause error) error {
	return &DeliveryError{SignalMonitorError{Message: "deliver to peer " + peerID, Cause: cause}}
}

// NewDataSourceError wraps a provider failure for an instrument.
func NewDataSourceError(instrument string, cause error) error {
	return &DataSourceError{SignalMonitorError{Message: "load " + instrument, Cause: cause}}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(op string, cause error) error {
	return &NetworkError{SignalMonitorError{Message: op, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxRetries+1 times. The wait before attempt n
// is baseDelay*n^2. Cancelling ctx stops the loop between attempts.
func RetryWithBackoff(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(attempt int) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(attempt*attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so RetryWithBackoff returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs errors from a steady-state context and keeps going.
type ErrorHandler struct {
	Logger *logger.Logger
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

// Handle logs err with context. Expected conditions are logged as warnings.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, ErrMarketClosed):
		e.Logger.Debug("%s: %v", context, err)
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrNoActivePeer),
		errors.Is(err, ErrRejectedStrategy),
		errors.Is(err, ErrMalformedControlMessage),
		errors.Is(err, ErrIndicatorUnavailable),
		errors.Is(err, ErrProviderEmpty):
		e.Logger.Warning("%s: %v", context, err)
	default:
		e.Logger.Error("Error in %s: %v", context, err)
	}
}

// -----------------------------------------------------------------------------

// Recover turns a panic in a long-lived loop into a logged error.
// Use as: defer handler.Recover("engine tick")
func (e *ErrorHandler) Recover(context string) {
	if r := recover(); r != nil {
		e.Logger.Error("Recovered panic in %s: %v", context, r)
	}
}
