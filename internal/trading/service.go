// Package trading implements the command-side operations: tracking new
// positions, adjusting levels and computing portfolio aggregates.
package trading

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paper-trader/internal/errors"
	"paper-trader/internal/feed"
	"paper-trader/internal/logging"
	"paper-trader/internal/models"
	"paper-trader/internal/store"
	"paper-trader/pkg/id"
	"paper-trader/pkg/utils"
)

// Service exposes the user-facing operations over the store and feed.
type Service struct {
	store  store.Store
	feed   feed.PriceFeed
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a trading service.
func NewService(s store.Store, f feed.PriceFeed, logger zerolog.Logger) *Service {
	return &Service{
		store:  s,
		feed:   f,
		logger: logger,
		now:    time.Now,
	}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func validateLevels(entryPrice, stopLoss, target float64) error {
	if entryPrice <= 0 {
		return errors.NewValidationError("entry_price", entryPrice, "must be positive")
	}
	if stopLoss <= 0 {
		return errors.NewValidationError("stop_loss", stopLoss, "must be positive")
	}
	if stopLoss >= entryPrice {
		return errors.NewValidationError("stop_loss", stopLoss, "must be below the entry price")
	}
	if target != 0 && target <= entryPrice {
		return errors.NewValidationError("target", target, "must be above the entry price")
	}
	return nil
}

// AddPosition starts tracking a new position in TRACKING state. The
// engine fills it once the market touches the entry price.
func (s *Service) AddPosition(ctx context.Context, owner, symbol string, quantity int, entryPrice, stopLoss, target float64) (*models.TrackedPosition, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, errors.NewValidationError("symbol", symbol, "must not be empty")
	}
	if quantity <= 0 {
		return nil, errors.NewValidationError("quantity", quantity, "must be positive")
	}
	if err := validateLevels(entryPrice, stopLoss, target); err != nil {
		return nil, err
	}

	pos := &models.TrackedPosition{
		ID:         id.New(),
		Owner:      owner,
		Symbol:     symbol,
		Quantity:   quantity,
		EntryPrice: entryPrice,
		StopLoss:   stopLoss,
		Target:     target,
		State:      models.StateTracking,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreatePosition(ctx, pos); err != nil {
		return nil, err
	}

	logger := logging.WithSymbol(logging.WithOwner(s.logger, owner), symbol)
	logger.Info().
		Int("quantity", quantity).
		Float64("entry_price", entryPrice).
		Float64("stop_loss", stopLoss).
		Float64("target", target).
		Msg("Tracking position")
	return pos, nil
}

// ModifyPosition updates the stop-loss and target of an existing
// position. Works in both TRACKING and HOLDING states.
func (s *Service) ModifyPosition(ctx context.Context, owner, symbol string, stopLoss, target float64) (*models.TrackedPosition, error) {
	symbol = normalizeSymbol(symbol)

	pos, err := s.store.GetPosition(ctx, owner, symbol)
	if err != nil {
		return nil, err
	}
	if err := validateLevels(pos.EntryPrice, stopLoss, target); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLevels(ctx, owner, symbol, stopLoss, target); err != nil {
		return nil, err
	}

	pos.StopLoss = stopLoss
	pos.Target = target
	logger := logging.WithSymbol(logging.WithOwner(s.logger, owner), symbol)
	logger.Info().
		Float64("stop_loss", stopLoss).
		Float64("target", target).
		Msg("Levels updated")
	return pos, nil
}

// DeletePosition stops tracking a position that has not filled yet.
func (s *Service) DeletePosition(ctx context.Context, owner, symbol string) error {
	symbol = normalizeSymbol(symbol)
	if err := s.store.DeletePosition(ctx, owner, symbol); err != nil {
		return err
	}
	logger := logging.WithSymbol(logging.WithOwner(s.logger, owner), symbol)
	logger.Info().Msg("Stopped tracking position")
	return nil
}

// ListPositions returns all active positions for an owner.
func (s *Service) ListPositions(ctx context.Context, owner string) ([]models.TrackedPosition, error) {
	return s.store.ListPositions(ctx, owner)
}

// GetBalance returns the owner's cash balance.
func (s *Service) GetBalance(ctx context.Context, owner string) (float64, error) {
	return s.store.GetBalance(ctx, owner)
}

// SetBalance overrides the owner's cash balance.
func (s *Service) SetBalance(ctx context.Context, owner string, amount float64) error {
	if amount <= 0 {
		return errors.NewValidationError("amount", amount, "must be positive")
	}
	if err := s.store.SetBalance(ctx, owner, amount); err != nil {
		return err
	}
	logger := logging.WithOwner(s.logger, owner)
	logger.Info().Float64("amount", amount).Msg("Balance set")
	return nil
}

// History returns closed trades for the owner, most recent first.
func (s *Service) History(ctx context.Context, owner string, filter store.TradeFilter) ([]models.TradeRecord, error) {
	return s.store.ListTrades(ctx, owner, filter)
}

// Holding is a filled position enriched with a live quote.
type Holding struct {
	Position      models.TrackedPosition
	LTP           float64
	CurrentValue  float64
	UnrealizedPnL float64
}

// Portfolio aggregates an owner's account.
type Portfolio struct {
	Owner            string
	Cash             float64
	Tracking         []models.TrackedPosition
	Holdings         []Holding
	InvestedAmount   float64
	CurrentValue     float64
	UnrealizedPnL    float64
	RecentClosed     []models.TradeRecord
	TodayPnL         float64
	TotalRealizedPnL float64
	NetWorth         float64
}

const recentClosedLimit = 5

// GetPortfolio computes the owner's portfolio snapshot. Holdings whose
// quotes are unavailable are valued at their fill price.
func (s *Service) GetPortfolio(ctx context.Context, owner string) (*Portfolio, error) {
	cash, err := s.store.GetBalance(ctx, owner)
	if err != nil {
		return nil, err
	}
	positions, err := s.store.ListPositions(ctx, owner)
	if err != nil {
		return nil, err
	}

	p := &Portfolio{Owner: owner, Cash: cash}

	for _, pos := range positions {
		if !pos.IsHolding() {
			p.Tracking = append(p.Tracking, pos)
			continue
		}

		ltp := pos.FillPrice
		if s.feed != nil {
			if quote, qErr := s.feed.Quote(ctx, pos.Symbol); qErr == nil {
				ltp = quote.LTP
			} else {
				logger := logging.WithSymbol(s.logger, pos.Symbol)
				logger.Debug().Err(qErr).Msg("No live quote, valuing at fill price")
			}
		}

		h := Holding{
			Position:      pos,
			LTP:           ltp,
			CurrentValue:  ltp * float64(pos.Quantity),
			UnrealizedPnL: (ltp - pos.FillPrice) * float64(pos.Quantity),
		}
		p.Holdings = append(p.Holdings, h)
		p.InvestedAmount += pos.InvestedAmount
		p.CurrentValue += h.CurrentValue
		p.UnrealizedPnL += h.UnrealizedPnL
	}

	trades, err := s.store.ListTrades(ctx, owner, store.TradeFilter{})
	if err != nil {
		return nil, err
	}
	dayStart := utils.StartOfTradingDay(s.now())
	for _, tr := range trades {
		p.TotalRealizedPnL += tr.PnL
		if !tr.ExitTime.Before(dayStart) {
			p.TodayPnL += tr.PnL
		}
	}
	if len(trades) > recentClosedLimit {
		trades = trades[:recentClosedLimit]
	}
	p.RecentClosed = trades

	p.NetWorth = p.Cash + p.CurrentValue
	return p, nil
}
