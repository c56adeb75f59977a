package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavola-pos/api/internal/database"
	"github.com/tavola-pos/api/internal/enum"
)

// StockService handles manual stock adjustments from the back office:
// deliveries coming in (restore) and spoilage or corrections (consume).
type StockService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewStockService creates a new StockService.
func NewStockService(pool TxBeginner, newStore NewOrderStore) *StockService {
	return &StockService{pool: pool, newStore: newStore}
}

// Adjust applies a manual stock movement to a tracked menu item. A consume
// that would push the quantity below zero is rejected with the shortfall.
func (s *StockService) Adjust(ctx context.Context, menuItemID uuid.UUID, action enum.StockAction, quantity int32) (database.MenuItem, error) {
	if quantity <= 0 {
		return database.MenuItem{}, ErrInvalidQuantity
	}
	if !action.Valid() {
		return database.MenuItem{}, ErrInvalidStockAction
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.MenuItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	mi, err := store.GetMenuItemForUpdate(ctx, menuItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.MenuItem{}, ErrMenuItemNotFound
		}
		return database.MenuItem{}, fmt.Errorf("lock menu item: %w", err)
	}
	if !mi.HasStock {
		return database.MenuItem{}, ErrStockNotTracked
	}

	delta := quantity
	if action == enum.StockActionConsume {
		if mi.StockQuantity.Int32 < quantity {
			return database.MenuItem{}, &InsufficientStockError{
				MenuItemID: menuItemID,
				Available:  mi.StockQuantity.Int32,
				Requested:  quantity,
			}
		}
		delta = -quantity
	}

	updated, err := store.AdjustMenuItemStock(ctx, database.AdjustMenuItemStockParams{
		ID:    menuItemID,
		Delta: delta,
	})
	if err != nil {
		return database.MenuItem{}, fmt.Errorf("adjust stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.MenuItem{}, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}
