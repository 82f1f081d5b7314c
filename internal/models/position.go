package models

import "time"

// PositionState represents the lifecycle state of a tracked position.
//
// A position is created in StateTracking, moves to StateHolding when the
// entry fills, and is removed from the position store when it closes. The
// closed state is materialized as a TradeRecord, never stored on the
// position itself.
type PositionState string

const (
	StateTracking PositionState = "TRACKING"
	StateHolding  PositionState = "HOLDING"
)

// Valid reports whether s is a known position state.
func (s PositionState) Valid() bool {
	return s == StateTracking || s == StateHolding
}

// TrackedPosition represents a simulated position being watched by the
// execution engine.
//
// Quantity and EntryPrice are immutable after creation; StopLoss and Target
// may be modified at any time while the position is active. Target == 0
// means no target is set.
type TrackedPosition struct {
	ID             string
	Owner          string
	Symbol         string
	Quantity       int
	EntryPrice     float64
	StopLoss       float64
	Target         float64
	State          PositionState
	FillPrice      float64
	InvestedAmount float64
	CreatedAt      time.Time
	FilledAt       time.Time
}

// IsHolding reports whether the position has filled.
func (p *TrackedPosition) IsHolding() bool {
	return p.State == StateHolding
}

// FillDetails carries the fields set when a position transitions from
// Tracking to Holding.
type FillDetails struct {
	FillPrice      float64
	InvestedAmount float64
	FilledAt       time.Time
}
