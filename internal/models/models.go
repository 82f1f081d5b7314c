// Package models provides domain models for the paper trading application.
package models

import (
	"time"
)

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
)

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen    MarketStatus = "OPEN"
	MarketPreOpen MarketStatus = "PRE_OPEN"
	MarketClosed  MarketStatus = "CLOSED"
)

// Quote represents a market quote for a symbol.
//
// Low/High describe the observed price range for the most recent interval.
// A degraded feed that only knows the last traded price reports
// Low == High == LTP.
type Quote struct {
	Symbol    string
	LTP       float64
	Low       float64
	High      float64
	Timestamp time.Time
}

// HasRange reports whether the quote carries a real low/high interval
// rather than a single last-traded price.
func (q *Quote) HasRange() bool {
	return q.Low > 0 && q.High > q.Low
}
