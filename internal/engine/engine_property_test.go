package engine

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"paper-trader/internal/models"
	"paper-trader/internal/store"
	"paper-trader/pkg/id"
)

// Property: Over any sequence of quote updates, the account never goes
// negative, every close leaves exactly one ledger record, and the final
// balance equals the starting balance minus open investments plus
// realized proceeds.
func TestProperty_EngineCashConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Cash is conserved across ticks", prop.ForAll(
		func(symbols int, ticks int, basePrice float64, swing float64) bool {
			ctx := context.Background()
			s := store.NewMemoryStore(startingBalance)
			defer s.Close()
			f := newStubFeed()
			e := New(s, f, nil, zerolog.Nop(), Options{PollInterval: time.Minute, FeedTimeout: time.Second})

			for i := 0; i < symbols; i++ {
				symbol := fmt.Sprintf("SYM%d", i)
				entry := basePrice + float64(i)
				pos := &models.TrackedPosition{
					ID:         id.New(),
					Owner:      "user1",
					Symbol:     symbol,
					Quantity:   1 + i%3,
					EntryPrice: entry,
					StopLoss:   entry * 0.95,
					Target:     entry * 1.05,
					State:      models.StateTracking,
					CreatedAt:  time.Now(),
				}
				if err := s.CreatePosition(ctx, pos); err != nil {
					return false
				}
			}

			// Walk prices up and down across ticks
			for tick := 0; tick < ticks; tick++ {
				offset := swing * math.Sin(float64(tick))
				for i := 0; i < symbols; i++ {
					symbol := fmt.Sprintf("SYM%d", i)
					entry := basePrice + float64(i)
					ltp := entry + offset
					f.set(symbol, ltp, ltp*0.995, ltp*1.005)
				}
				if _, err := e.Tick(ctx); err != nil {
					t.Logf("Tick failed: %v", err)
					return false
				}

				balance, err := s.GetBalance(ctx, "user1")
				if err != nil {
					return false
				}
				if balance < 0 {
					t.Logf("Balance went negative: %v", balance)
					return false
				}
			}

			// Accounting identity: starting cash splits into cash on hand,
			// open investments and realized PnL
			balance, err := s.GetBalance(ctx, "user1")
			if err != nil {
				return false
			}
			positions, err := s.ListPositions(ctx, "user1")
			if err != nil {
				return false
			}
			trades, err := s.ListTrades(ctx, "user1", store.TradeFilter{})
			if err != nil {
				return false
			}

			var invested, realized float64
			for _, pos := range positions {
				if pos.State == models.StateHolding {
					invested += pos.InvestedAmount
					if math.Abs(pos.InvestedAmount-pos.FillPrice*float64(pos.Quantity)) > 1e-6 {
						t.Logf("Invested amount inconsistent: %+v", pos)
						return false
					}
				}
			}
			for _, tr := range trades {
				realized += tr.PnL
			}

			expected := float64(startingBalance) + realized - invested
			if math.Abs(balance-expected) > 1e-6 {
				t.Logf("Balance %v, expected %v (realized %v, invested %v)", balance, expected, realized, invested)
				return false
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 12),
		gen.Float64Range(100.0, 3000.0),
		gen.Float64Range(0.0, 400.0),
	))

	properties.TestingRun(t)
}

// Property: Entry and exit rules are mutually consistent: a position
// never fills above its entry from a rangeless quote, and every ledger
// record exits exactly at the stop or the target.
func TestProperty_ExitAtThresholdPrice(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Ledger exits at threshold prices", prop.ForAll(
		func(entry float64, slPct float64, tgtPct float64, finalMove float64) bool {
			ctx := context.Background()
			s := store.NewMemoryStore(startingBalance)
			defer s.Close()
			f := newStubFeed()
			e := New(s, f, nil, zerolog.Nop(), Options{PollInterval: time.Minute, FeedTimeout: time.Second})

			stopLoss := entry * (1 - slPct)
			target := entry * (1 + tgtPct)
			pos := &models.TrackedPosition{
				ID:         id.New(),
				Owner:      "user1",
				Symbol:     "SYM",
				Quantity:   2,
				EntryPrice: entry,
				StopLoss:   stopLoss,
				Target:     target,
				State:      models.StateTracking,
				CreatedAt:  time.Now(),
			}
			if err := s.CreatePosition(ctx, pos); err != nil {
				return false
			}

			// Fill at entry, then move the price
			f.set("SYM", entry, 0, 0)
			if _, err := e.Tick(ctx); err != nil {
				return false
			}
			f.set("SYM", entry+finalMove, 0, 0)
			if _, err := e.Tick(ctx); err != nil {
				return false
			}

			trades, err := s.ListTrades(ctx, "user1", store.TradeFilter{})
			if err != nil {
				return false
			}
			for _, tr := range trades {
				if tr.ExitPrice != stopLoss && tr.ExitPrice != target {
					t.Logf("Exit at %v, expected stop %v or target %v", tr.ExitPrice, stopLoss, target)
					return false
				}
				expectedPnL := (tr.ExitPrice - entry) * float64(tr.Quantity)
				if math.Abs(tr.PnL-expectedPnL) > 1e-6 {
					t.Logf("PnL %v, expected %v", tr.PnL, expectedPnL)
					return false
				}
			}
			return true
		},
		gen.Float64Range(100.0, 3000.0),
		gen.Float64Range(0.01, 0.2),
		gen.Float64Range(0.01, 0.2),
		gen.Float64Range(-1000.0, 1000.0),
	))

	properties.TestingRun(t)
}
