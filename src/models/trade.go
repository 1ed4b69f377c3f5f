package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the wire and log format for trade timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// MTradeResult is one decision produced by a tick. Balance is the ledger value
// before this trade's delta was applied.
type MTradeResult struct {
	Instrument string
	Action     Action
	Price      float64
	Amount     float64
	Balance    float64
	Timestamp  time.Time
}

// Delta is the signed balance change for this trade.
func (t MTradeResult) Delta() float64 {
	if t.Action == ActionBuy {
		return -t.Price * t.Amount
	}
	return t.Price * t.Amount
}

func (t MTradeResult) String() string {
	return fmt.Sprintf("%s %s %.0f @ %.4f (balance before %.2f) at %s",
		t.Instrument, t.Action, t.Amount, t.Price, t.Balance, t.Timestamp.Format(TimestampLayout))
}

// -----------------------------------------------------------------------------

type tradeWire struct {
	Action     Action  `json:"action"`
	Price      float64 `json:"price"`
	Amount     float64 `json:"amount"`
	Balance    float64 `json:"balance"`
	Timestamp  string  `json:"timestamp"`
	Instrument string  `json:"instrument,omitempty"`
}

// MarshalJSON writes the record shape the controller reads.
func (t MTradeResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(tradeWire{
		Action:     t.Action,
		Price:      t.Price,
		Amount:     t.Amount,
		Balance:    t.Balance,
		Timestamp:  t.Timestamp.Format(TimestampLayout),
		Instrument: t.Instrument,
	})
}

// UnmarshalJSON reads the controller-facing record back.
func (t *MTradeResult) UnmarshalJSON(data []byte) error {
	var w tradeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := time.ParseInLocation(TimestampLayout, w.Timestamp, time.Local)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", w.Timestamp, err)
	}
	*t = MTradeResult{
		Instrument: w.Instrument,
		Action:     w.Action,
		Price:      w.Price,
		Amount:     w.Amount,
		Balance:    w.Balance,
		Timestamp:  ts,
	}
	return nil
}
