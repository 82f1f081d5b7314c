package engine

import "paper-trader/internal/models"

// entryTriggered reports whether a quote shows the entry price was
// touched. With a day range the entry only needs to fall inside it; a
// bare LTP quote falls back to a simple limit-style check.
func entryTriggered(pos *models.TrackedPosition, q *models.Quote) bool {
	if q.HasRange() {
		return q.Low <= pos.EntryPrice && pos.EntryPrice <= q.High
	}
	return q.LTP <= pos.EntryPrice
}

// exitTriggered returns the exit reason and price for a holding position.
// Stop-loss wins when both levels are breached in the same cycle. The
// exit executes at the threshold price, not the observed LTP.
func exitTriggered(pos *models.TrackedPosition, q *models.Quote) (models.ExitReason, float64, bool) {
	low, high := q.LTP, q.LTP
	if q.HasRange() {
		low, high = q.Low, q.High
	}
	if low <= pos.StopLoss {
		return models.ExitReasonStopLoss, pos.StopLoss, true
	}
	if pos.Target > 0 && high >= pos.Target {
		return models.ExitReasonTarget, pos.Target, true
	}
	return "", 0, false
}
