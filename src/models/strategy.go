package models

import (
	"fmt"
	"strings"
)

// Strategy is the closed set of signal rules the engine knows about.
type Strategy string

const (
	StrategyEMA Strategy = "EMA"
	StrategyMA  Strategy = "MA"
)

// ParseStrategy normalises controller input. "Moving Average" is what the
// desktop controller sends for MA.
func ParseStrategy(v string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "EMA":
		return StrategyEMA, nil
	case "MA", "SMA", "MOVING AVERAGE":
		return StrategyMA, nil
	}
	return "", fmt.Errorf("unknown strategy %q", v)
}

// IndicatorLabel is the chart legend for the indicator the strategy reads.
func (s Strategy) IndicatorLabel() string {
	if s == StrategyMA {
		return "20 Day MA"
	}
	return "20 Day EMA"
}

// -----------------------------------------------------------------------------

// Action is the side of a trade decision.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)
