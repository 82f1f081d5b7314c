// Package engine runs the periodic evaluation loop that fills and closes
// tracked positions against live quotes.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"paper-trader/internal/errors"
	"paper-trader/internal/feed"
	"paper-trader/internal/logging"
	"paper-trader/internal/models"
	"paper-trader/internal/notify"
	"paper-trader/internal/store"
	"paper-trader/pkg/id"
	"paper-trader/pkg/utils"
)

// Options configures an Engine.
type Options struct {
	PollInterval    time.Duration
	FeedTimeout     time.Duration
	MarketHoursOnly bool
}

// Engine periodically evaluates all tracked positions. Every transition
// it makes goes through the store's conditional updates, so concurrent
// ticks or command-side deletes resolve to a single winner.
type Engine struct {
	store    store.Store
	feed     feed.PriceFeed
	notifier notify.Notifier
	logger   zerolog.Logger
	opts     Options

	now func() time.Time
}

// TickStats summarizes one evaluation cycle.
type TickStats struct {
	Evaluated int
	Filled    int
	Closed    int
	Skipped   int
	Errors    int
}

// New creates an execution engine. notifier may be nil.
func New(s store.Store, f feed.PriceFeed, notifier notify.Notifier, logger zerolog.Logger, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 60 * time.Second
	}
	if opts.FeedTimeout <= 0 {
		opts.FeedTimeout = 10 * time.Second
	}
	return &Engine{
		store:    s,
		feed:     f,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// Run evaluates positions until the context is cancelled. The first
// cycle runs immediately.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info().
		Dur("poll_interval", e.opts.PollInterval).
		Bool("market_hours_only", e.opts.MarketHoursOnly).
		Msg("Engine started")

	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	e.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Engine stopped")
			return ctx.Err()
		case <-ticker.C:
			e.runCycle(ctx)
		}
	}
}

func (e *Engine) runCycle(ctx context.Context) {
	if e.opts.MarketHoursOnly && utils.MarketStatusAt(e.now()) != models.MarketOpen {
		e.logger.Debug().
			Time("next_open", utils.NextMarketOpenAt(e.now())).
			Msg("Market closed, skipping cycle")
		return
	}
	stats, err := e.Tick(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("Evaluation cycle failed")
		return
	}
	e.logger.Debug().
		Int("evaluated", stats.Evaluated).
		Int("filled", stats.Filled).
		Int("closed", stats.Closed).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Msg("Evaluation cycle complete")
}

// Tick runs one evaluation cycle over every tracked position. Failures
// are contained per position; only listing the positions can fail the
// whole cycle.
func (e *Engine) Tick(ctx context.Context) (TickStats, error) {
	var stats TickStats

	positions, err := e.store.ListPositions(ctx, "")
	if err != nil {
		return stats, errors.Wrap(err, "listing positions")
	}

	// One quote per symbol per cycle, shared across owners
	quotes := make(map[string]*models.Quote)
	quoteErrs := make(map[string]error)

	for i := range positions {
		pos := &positions[i]
		stats.Evaluated++

		quote, ok := quotes[pos.Symbol]
		if !ok {
			if _, failed := quoteErrs[pos.Symbol]; !failed {
				quote, err = e.fetchQuote(ctx, pos.Symbol)
				if err != nil {
					quoteErrs[pos.Symbol] = err
				} else {
					quotes[pos.Symbol] = quote
				}
			}
		}
		if qErr, failed := quoteErrs[pos.Symbol]; failed {
			if errors.Is(qErr, errors.ErrNoData) {
				e.logger.Debug().Str("symbol", pos.Symbol).Msg("No quote data, skipping")
			} else {
				e.logger.Warn().Err(qErr).Str("symbol", pos.Symbol).Msg("Quote fetch failed, skipping")
				stats.Errors++
				continue
			}
			stats.Skipped++
			continue
		}
		quote = quotes[pos.Symbol]

		switch pos.State {
		case models.StateTracking:
			e.evaluateEntry(ctx, pos, quote, &stats)
		case models.StateHolding:
			e.evaluateExit(ctx, pos, quote, &stats)
		}
	}

	return stats, nil
}

func (e *Engine) fetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FeedTimeout)
	defer cancel()
	return e.feed.Quote(fetchCtx, symbol)
}

func (e *Engine) evaluateEntry(ctx context.Context, pos *models.TrackedPosition, quote *models.Quote, stats *TickStats) {
	if !entryTriggered(pos, quote) {
		return
	}

	logger := logging.WithSymbol(logging.WithOwner(e.logger, pos.Owner), pos.Symbol)

	fill := models.FillDetails{
		FillPrice:      pos.EntryPrice,
		InvestedAmount: pos.EntryPrice * float64(pos.Quantity),
		FilledAt:       e.now(),
	}

	err := e.store.FillPosition(ctx, pos.ID, fill)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrConflict):
		// Another actor got there first, nothing to do
		logger.Debug().Msg("Fill lost the race")
		return
	case errors.Is(err, errors.ErrInsufficientFunds):
		logger.Warn().
			Float64("required", fill.InvestedAmount).
			Msg("Entry triggered but balance insufficient, position stays tracking")
		stats.Skipped++
		return
	default:
		logger.Error().Err(err).Msg("Fill failed")
		stats.Errors++
		return
	}

	pos.State = models.StateHolding
	pos.FillPrice = fill.FillPrice
	pos.InvestedAmount = fill.InvestedAmount
	pos.FilledAt = fill.FilledAt
	stats.Filled++
	logging.LogFill(e.logger, pos)

	if e.notifier != nil {
		filled := *pos
		go func() {
			nctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.notifier.SendFill(nctx, &filled); err != nil {
				logger.Warn().Err(err).Msg("Fill notification failed")
			}
		}()
	}
}

func (e *Engine) evaluateExit(ctx context.Context, pos *models.TrackedPosition, quote *models.Quote, stats *TickStats) {
	reason, exitPrice, ok := exitTriggered(pos, quote)
	if !ok {
		return
	}

	logger := logging.WithSymbol(logging.WithOwner(e.logger, pos.Owner), pos.Symbol)

	rec := &models.TradeRecord{
		ID:         id.New(),
		Owner:      pos.Owner,
		Symbol:     pos.Symbol,
		Quantity:   pos.Quantity,
		EntryPrice: pos.FillPrice,
		ExitPrice:  exitPrice,
		PnL:        (exitPrice - pos.FillPrice) * float64(pos.Quantity),
		Reason:     reason,
		EntryTime:  pos.FilledAt,
		ExitTime:   e.now(),
	}

	err := e.store.ClosePosition(ctx, pos.ID, rec)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrConflict):
		logger.Debug().Msg("Close lost the race")
		return
	default:
		logger.Error().Err(err).Msg("Close failed")
		stats.Errors++
		return
	}

	stats.Closed++
	logging.LogExit(e.logger, rec)

	if e.notifier != nil {
		closed := *rec
		go func() {
			nctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.notifier.SendExit(nctx, &closed); err != nil {
				logger.Warn().Err(err).Msg("Exit notification failed")
			}
		}()
	}
}
