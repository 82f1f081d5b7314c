// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"paper-trader/internal/models"
)

// Store defines the interface for position, ledger and balance persistence.
//
// Lifecycle transitions (FillPosition, ClosePosition) are atomic
// compare-and-set operations keyed on the position's current state: a call
// that observes any other state fails with errors.ErrConflict, so a
// duplicate tick or a concurrent engine instance cannot double-execute a
// fill or a close. Balance mutations caused by trading activity happen
// inside the same transaction as the state change.
type Store interface {
	// Positions
	CreatePosition(ctx context.Context, pos *models.TrackedPosition) error
	GetPosition(ctx context.Context, owner, symbol string) (*models.TrackedPosition, error)
	ListPositions(ctx context.Context, owner string) ([]models.TrackedPosition, error)
	UpdateLevels(ctx context.Context, owner, symbol string, stopLoss, target float64) error
	DeletePosition(ctx context.Context, owner, symbol string) error

	// Lifecycle transitions (execution engine only)
	FillPosition(ctx context.Context, id string, fill models.FillDetails) error
	ClosePosition(ctx context.Context, id string, rec *models.TradeRecord) error

	// Ledger
	ListTrades(ctx context.Context, owner string, filter TradeFilter) ([]models.TradeRecord, error)
	LastTrade(ctx context.Context, owner string) (*models.TradeRecord, error)

	// Balances
	GetBalance(ctx context.Context, owner string) (float64, error)
	SetBalance(ctx context.Context, owner string, amount float64) error

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying the trade ledger.
type TradeFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
