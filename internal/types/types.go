package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the comparison side of an alert rule.
type Direction int

const (
	Above Direction = iota
	Below
)

func (d Direction) String() string {
	if d == Below {
		return "BELOW"
	}
	return "ABOVE"
}

// Operator returns the comparison operator as the user typed it.
func (d Direction) Operator() string {
	if d == Below {
		return "<"
	}
	return ">"
}

// AlertRule is a user-registered price threshold condition.
type AlertRule struct {
	UserID    string          `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Threshold decimal.Decimal `json:"threshold"`
	Direction Direction       `json:"direction"`
	CreatedAt time.Time       `json:"created_at"`
}

// Triggered reports whether the given price crosses the rule threshold.
// Comparison is strict on both sides.
func (r AlertRule) Triggered(price decimal.Decimal) bool {
	switch r.Direction {
	case Above:
		return price.GreaterThan(r.Threshold)
	case Below:
		return price.LessThan(r.Threshold)
	default:
		return false
	}
}

// Quote is the latest known price for a symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	At     time.Time       `json:"at"`
}

// PricePoint is one trading day of a series.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is the daily closing-price history of a symbol, oldest first.
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Name   string       `json:"name"`
	Points []PricePoint `json:"points"`
}
