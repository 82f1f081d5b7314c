package trading

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"paper-trader/internal/errors"
	"paper-trader/internal/models"
	"paper-trader/internal/store"
	"paper-trader/pkg/id"
	"paper-trader/pkg/utils"
)

type fixedFeed struct {
	quotes map[string]float64
}

func (f *fixedFeed) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if ltp, ok := f.quotes[symbol]; ok {
		return &models.Quote{Symbol: symbol, LTP: ltp, Timestamp: time.Now()}, nil
	}
	return nil, errors.ErrNoData
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *fixedFeed) {
	t.Helper()
	s := store.NewMemoryStore(100000)
	f := &fixedFeed{quotes: make(map[string]float64)}
	return NewService(s, f, zerolog.Nop()), s, f
}

func TestAddPosition(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	pos, err := svc.AddPosition(ctx, "user1", " reliance ", 5, 2800, 2750, 2900)
	if err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}
	if pos.Symbol != "RELIANCE" {
		t.Errorf("Expected normalized symbol, got %q", pos.Symbol)
	}
	if pos.State != models.StateTracking {
		t.Errorf("Expected TRACKING, got %s", pos.State)
	}
	if pos.ID == "" {
		t.Error("Expected generated id")
	}
}

func TestAddPositionValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		symbol   string
		quantity int
		entry    float64
		stopLoss float64
		target   float64
	}{
		{"empty symbol", "", 5, 2800, 2750, 0},
		{"zero quantity", "RELIANCE", 0, 2800, 2750, 0},
		{"negative quantity", "RELIANCE", -5, 2800, 2750, 0},
		{"zero entry", "RELIANCE", 5, 0, 2750, 0},
		{"zero stop loss", "RELIANCE", 5, 2800, 0, 0},
		{"stop loss above entry", "RELIANCE", 5, 2800, 2850, 0},
		{"stop loss at entry", "RELIANCE", 5, 2800, 2800, 0},
		{"target below entry", "RELIANCE", 5, 2800, 2750, 2700},
		{"target at entry", "RELIANCE", 5, 2800, 2750, 2800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddPosition(ctx, "user1", tt.symbol, tt.quantity, tt.entry, tt.stopLoss, tt.target)
			if !errors.Is(err, errors.ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestAddPositionDuplicate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddPosition(ctx, "user1", "RELIANCE", 5, 2800, 2750, 0); err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}
	_, err := svc.AddPosition(ctx, "user1", "reliance", 2, 2700, 2650, 0)
	if !errors.Is(err, errors.ErrDuplicatePosition) {
		t.Errorf("Expected ErrDuplicatePosition, got %v", err)
	}
}

func TestModifyPosition(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddPosition(ctx, "user1", "RELIANCE", 5, 2800, 2750, 2900); err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}

	pos, err := svc.ModifyPosition(ctx, "user1", "RELIANCE", 2760, 2950)
	if err != nil {
		t.Fatalf("ModifyPosition failed: %v", err)
	}
	if pos.StopLoss != 2760 || pos.Target != 2950 {
		t.Errorf("Levels not applied: %+v", pos)
	}

	// Validation against the existing entry price
	if _, err := svc.ModifyPosition(ctx, "user1", "RELIANCE", 2900, 0); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for stop above entry, got %v", err)
	}

	if _, err := svc.ModifyPosition(ctx, "user1", "NOSUCH", 100, 0); !errors.Is(err, errors.ErrPositionNotFound) {
		t.Errorf("Expected ErrPositionNotFound, got %v", err)
	}
}

func TestDeletePositionWhileTracking(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddPosition(ctx, "user1", "RELIANCE", 5, 2800, 2750, 0); err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}
	if err := svc.DeletePosition(ctx, "user1", "RELIANCE"); err != nil {
		t.Fatalf("DeletePosition failed: %v", err)
	}

	if _, err := svc.ListPositions(ctx, "user1"); err != nil {
		t.Fatalf("ListPositions failed: %v", err)
	}
	balance, _ := svc.GetBalance(ctx, "user1")
	if balance != 100000 {
		t.Errorf("Delete before fill must leave balance untouched, got %v", balance)
	}
	trades, _ := s.ListTrades(ctx, "user1", store.TradeFilter{})
	if len(trades) != 0 {
		t.Errorf("Delete before fill must leave the ledger empty, got %d trades", len(trades))
	}
}

func TestDeletePositionWhileHolding(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	pos, err := svc.AddPosition(ctx, "user1", "RELIANCE", 5, 2800, 2750, 0)
	if err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}
	fill := models.FillDetails{FillPrice: 2800, InvestedAmount: 14000, FilledAt: time.Now()}
	if err := s.FillPosition(ctx, pos.ID, fill); err != nil {
		t.Fatalf("FillPosition failed: %v", err)
	}

	err = svc.DeletePosition(ctx, "user1", "RELIANCE")
	if !errors.Is(err, errors.ErrCannotDeleteWhileHolding) {
		t.Errorf("Expected ErrCannotDeleteWhileHolding, got %v", err)
	}
}

func TestSetBalanceValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.SetBalance(ctx, "user1", 0); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for zero amount, got %v", err)
	}
	if err := svc.SetBalance(ctx, "user1", -100); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for negative amount, got %v", err)
	}
	if err := svc.SetBalance(ctx, "user1", 50000); err != nil {
		t.Fatalf("SetBalance failed: %v", err)
	}
	balance, _ := svc.GetBalance(ctx, "user1")
	if balance != 50000 {
		t.Errorf("Expected 50000, got %v", balance)
	}
}

func TestGetPortfolio(t *testing.T) {
	svc, s, f := newTestService(t)
	ctx := context.Background()

	// One tracking position, one holding, one closed trade today
	if _, err := svc.AddPosition(ctx, "user1", "TCS", 2, 4000, 3900, 0); err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}
	held, err := svc.AddPosition(ctx, "user1", "RELIANCE", 5, 2800, 2750, 2900)
	if err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}
	fill := models.FillDetails{FillPrice: 2800, InvestedAmount: 14000, FilledAt: time.Now()}
	if err := s.FillPosition(ctx, held.ID, fill); err != nil {
		t.Fatalf("FillPosition failed: %v", err)
	}

	closedPos := &models.TrackedPosition{
		ID: id.New(), Owner: "user1", Symbol: "INFY", Quantity: 10,
		EntryPrice: 1500, StopLoss: 1480, State: models.StateTracking, CreatedAt: time.Now(),
	}
	if err := s.CreatePosition(ctx, closedPos); err != nil {
		t.Fatalf("CreatePosition failed: %v", err)
	}
	if err := s.FillPosition(ctx, closedPos.ID, models.FillDetails{FillPrice: 1500, InvestedAmount: 15000, FilledAt: time.Now()}); err != nil {
		t.Fatalf("FillPosition failed: %v", err)
	}
	rec := &models.TradeRecord{
		ID: id.New(), Owner: "user1", Symbol: "INFY", Quantity: 10,
		EntryPrice: 1500, ExitPrice: 1520, PnL: 200,
		Reason: models.ExitReasonTarget, EntryTime: time.Now(), ExitTime: time.Now(),
	}
	if err := s.ClosePosition(ctx, closedPos.ID, rec); err != nil {
		t.Fatalf("ClosePosition failed: %v", err)
	}

	f.quotes["RELIANCE"] = 2850

	p, err := svc.GetPortfolio(ctx, "user1")
	if err != nil {
		t.Fatalf("GetPortfolio failed: %v", err)
	}

	// Cash: 100000 - 14000 - 15000 + 15200 = 86200
	if p.Cash != 86200 {
		t.Errorf("Expected cash 86200, got %v", p.Cash)
	}
	if len(p.Tracking) != 1 || p.Tracking[0].Symbol != "TCS" {
		t.Errorf("Expected TCS tracking, got %+v", p.Tracking)
	}
	if len(p.Holdings) != 1 {
		t.Fatalf("Expected 1 holding, got %d", len(p.Holdings))
	}
	h := p.Holdings[0]
	if h.LTP != 2850 || h.CurrentValue != 14250 || h.UnrealizedPnL != 250 {
		t.Errorf("Holding valuation mismatch: %+v", h)
	}
	if p.InvestedAmount != 14000 {
		t.Errorf("Expected invested 14000, got %v", p.InvestedAmount)
	}
	if p.TotalRealizedPnL != 200 {
		t.Errorf("Expected realized 200, got %v", p.TotalRealizedPnL)
	}
	if p.TodayPnL != 200 {
		t.Errorf("Expected today PnL 200, got %v", p.TodayPnL)
	}
	if p.NetWorth != 86200+14250 {
		t.Errorf("Expected net worth %v, got %v", 86200+14250, p.NetWorth)
	}
	if len(p.RecentClosed) != 1 || p.RecentClosed[0].PnL != 200 {
		t.Errorf("Expected one recent trade with PnL 200, got %+v", p.RecentClosed)
	}
}

func TestGetPortfolioQuoteFallback(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	held, err := svc.AddPosition(ctx, "user1", "RELIANCE", 5, 2800, 2750, 0)
	if err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}
	if err := s.FillPosition(ctx, held.ID, models.FillDetails{FillPrice: 2800, InvestedAmount: 14000, FilledAt: time.Now()}); err != nil {
		t.Fatalf("FillPosition failed: %v", err)
	}

	// Feed has no quote for the symbol: value at fill price
	p, err := svc.GetPortfolio(ctx, "user1")
	if err != nil {
		t.Fatalf("GetPortfolio failed: %v", err)
	}
	if p.Holdings[0].LTP != 2800 || p.Holdings[0].UnrealizedPnL != 0 {
		t.Errorf("Expected fill-price valuation, got %+v", p.Holdings[0])
	}
}

func TestGetPortfolioTodayWindow(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	now := time.Now().In(utils.IndiaLocation)
	svc.now = func() time.Time { return now }

	makeTrade := func(symbol string, pnl float64, exit time.Time) {
		pos := &models.TrackedPosition{
			ID: id.New(), Owner: "user1", Symbol: symbol, Quantity: 1,
			EntryPrice: 100, StopLoss: 90, State: models.StateTracking, CreatedAt: exit.Add(-time.Hour),
		}
		if err := s.CreatePosition(ctx, pos); err != nil {
			t.Fatalf("CreatePosition failed: %v", err)
		}
		if err := s.FillPosition(ctx, pos.ID, models.FillDetails{FillPrice: 100, InvestedAmount: 100, FilledAt: exit.Add(-time.Hour)}); err != nil {
			t.Fatalf("FillPosition failed: %v", err)
		}
		rec := &models.TradeRecord{
			ID: id.New(), Owner: "user1", Symbol: symbol, Quantity: 1,
			EntryPrice: 100, ExitPrice: 100 + pnl, PnL: pnl,
			Reason: models.ExitReasonTarget, EntryTime: exit.Add(-time.Hour), ExitTime: exit,
		}
		if err := s.ClosePosition(ctx, pos.ID, rec); err != nil {
			t.Fatalf("ClosePosition failed: %v", err)
		}
	}

	dayStart := utils.StartOfTradingDay(now)
	makeTrade("OLD", 100, dayStart.Add(-2*time.Hour))
	makeTrade("NEW", 40, dayStart.Add(time.Minute))

	p, err := svc.GetPortfolio(ctx, "user1")
	if err != nil {
		t.Fatalf("GetPortfolio failed: %v", err)
	}
	if p.TotalRealizedPnL != 140 {
		t.Errorf("Expected total realized 140, got %v", p.TotalRealizedPnL)
	}
	if p.TodayPnL != 40 {
		t.Errorf("Expected today PnL 40, got %v", p.TodayPnL)
	}
}
