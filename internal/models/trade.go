package models

import "time"

// ExitReason represents why a position was closed.
type ExitReason string

const (
	ExitReasonStopLoss ExitReason = "STOP_LOSS"
	ExitReasonTarget   ExitReason = "TARGET"
)

// TradeRecord represents one completed round-trip trade in the ledger.
//
// Records are append-only: they are written exactly once when a position
// closes and never updated or deleted afterwards.
type TradeRecord struct {
	ID           string
	Owner        string
	Symbol       string
	Quantity     int
	EntryPrice   float64
	ExitPrice    float64
	PnL          float64
	Reason       ExitReason
	EntryTime    time.Time
	ExitTime     time.Time
	BalanceAfter float64
}

// PnLPercent returns the realized P&L as a percentage of the invested
// amount. Returns 0 when the invested amount is zero.
func (t *TradeRecord) PnLPercent() float64 {
	invested := t.EntryPrice * float64(t.Quantity)
	if invested == 0 {
		return 0
	}
	return t.PnL / invested * 100
}
