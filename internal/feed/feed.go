// Package feed provides market quote sources for the execution engine.
package feed

import (
	"context"

	"paper-trader/internal/models"
)

// PriceFeed fetches the latest quote for a symbol. Implementations return
// errors.ErrNoData (possibly wrapped) when the symbol has no usable quote
// this cycle.
type PriceFeed interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}
