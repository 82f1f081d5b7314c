package store

import (
	"context"
	"sort"
	"sync"

	"paper-trader/internal/errors"
	"paper-trader/internal/models"
)

// MemoryStore is an in-memory Store for tests and ephemeral sessions.
// All lifecycle transitions hold the same lock, so the compare-and-set
// guarantees match the SQLite backend.
type MemoryStore struct {
	mu             sync.Mutex
	positions      map[string]*models.TrackedPosition // keyed by id
	trades         []models.TradeRecord
	balances       map[string]float64
	defaultBalance float64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(defaultBalance float64) *MemoryStore {
	return &MemoryStore{
		positions:      make(map[string]*models.TrackedPosition),
		balances:       make(map[string]float64),
		defaultBalance: defaultBalance,
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) findLocked(owner, symbol string) *models.TrackedPosition {
	for _, pos := range m.positions {
		if pos.Owner == owner && pos.Symbol == symbol {
			return pos
		}
	}
	return nil
}

func (m *MemoryStore) balanceLocked(owner string) float64 {
	if value, ok := m.balances[owner]; ok {
		return value
	}
	for i := len(m.trades) - 1; i >= 0; i-- {
		if m.trades[i].Owner == owner {
			return m.trades[i].BalanceAfter
		}
	}
	return m.defaultBalance
}

func (m *MemoryStore) CreatePosition(ctx context.Context, pos *models.TrackedPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findLocked(pos.Owner, pos.Symbol) != nil {
		return errors.ErrDuplicatePosition
	}
	clone := *pos
	m.positions[pos.ID] = &clone
	return nil
}

func (m *MemoryStore) GetPosition(ctx context.Context, owner, symbol string) (*models.TrackedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := m.findLocked(owner, symbol)
	if pos == nil {
		return nil, errors.ErrPositionNotFound
	}
	clone := *pos
	return &clone, nil
}

func (m *MemoryStore) ListPositions(ctx context.Context, owner string) ([]models.TrackedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var positions []models.TrackedPosition
	for _, pos := range m.positions {
		if owner == "" || pos.Owner == owner {
			positions = append(positions, *pos)
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].CreatedAt.Before(positions[j].CreatedAt)
	})
	return positions, nil
}

func (m *MemoryStore) UpdateLevels(ctx context.Context, owner, symbol string, stopLoss, target float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := m.findLocked(owner, symbol)
	if pos == nil {
		return errors.ErrPositionNotFound
	}
	pos.StopLoss = stopLoss
	pos.Target = target
	return nil
}

func (m *MemoryStore) DeletePosition(ctx context.Context, owner, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := m.findLocked(owner, symbol)
	if pos == nil {
		return errors.ErrPositionNotFound
	}
	if pos.State != models.StateTracking {
		return errors.ErrCannotDeleteWhileHolding
	}
	delete(m.positions, pos.ID)
	return nil
}

func (m *MemoryStore) FillPosition(ctx context.Context, id string, fill models.FillDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[id]
	if !ok || pos.State != models.StateTracking {
		return errors.ErrConflict
	}

	balance := m.balanceLocked(pos.Owner)
	if balance < fill.InvestedAmount {
		return errors.ErrInsufficientFunds
	}

	pos.State = models.StateHolding
	pos.FillPrice = fill.FillPrice
	pos.InvestedAmount = fill.InvestedAmount
	pos.FilledAt = fill.FilledAt
	m.balances[pos.Owner] = balance - fill.InvestedAmount
	return nil
}

func (m *MemoryStore) ClosePosition(ctx context.Context, id string, rec *models.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[id]
	if !ok || pos.State != models.StateHolding {
		return errors.ErrConflict
	}
	delete(m.positions, id)

	balance := m.balanceLocked(rec.Owner)
	rec.BalanceAfter = balance + rec.ExitPrice*float64(rec.Quantity)
	m.balances[rec.Owner] = rec.BalanceAfter
	m.trades = append(m.trades, *rec)
	return nil
}

func (m *MemoryStore) ListTrades(ctx context.Context, owner string, filter TradeFilter) ([]models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var trades []models.TradeRecord
	for i := len(m.trades) - 1; i >= 0; i-- {
		t := m.trades[i]
		if t.Owner != owner {
			continue
		}
		if filter.Symbol != "" && t.Symbol != filter.Symbol {
			continue
		}
		if !filter.StartDate.IsZero() && t.ExitTime.Before(filter.StartDate) {
			continue
		}
		if !filter.EndDate.IsZero() && t.ExitTime.After(filter.EndDate) {
			continue
		}
		trades = append(trades, t)
		if filter.Limit > 0 && len(trades) >= filter.Limit {
			break
		}
	}
	return trades, nil
}

func (m *MemoryStore) LastTrade(ctx context.Context, owner string) (*models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.trades) - 1; i >= 0; i-- {
		if m.trades[i].Owner == owner {
			t := m.trades[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetBalance(ctx context.Context, owner string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(owner), nil
}

func (m *MemoryStore) SetBalance(ctx context.Context, owner string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[owner] = amount
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
