package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/tavola-pos/api/internal/database"
	"github.com/tavola-pos/api/internal/enum"
)

func newTestStockService(store *mockOrderStore) *StockService {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewStockService(pool, newStore)
}

func TestAdjust_ZeroQuantity(t *testing.T) {
	svc := newTestStockService(defaultStore(nil))

	_, err := svc.Adjust(context.Background(), uuid.New(), enum.StockActionConsume, 0)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestAdjust_InvalidAction(t *testing.T) {
	svc := newTestStockService(defaultStore(nil))

	_, err := svc.Adjust(context.Background(), uuid.New(), enum.StockAction("destroy"), 1)
	if !errors.Is(err, ErrInvalidStockAction) {
		t.Fatalf("expected ErrInvalidStockAction, got: %v", err)
	}
}

func TestAdjust_MenuItemNotFound(t *testing.T) {
	svc := newTestStockService(defaultStore(map[uuid.UUID]database.MenuItem{}))

	_, err := svc.Adjust(context.Background(), uuid.New(), enum.StockActionRestore, 5)
	if !errors.Is(err, ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got: %v", err)
	}
}

func TestAdjust_UntrackedItem(t *testing.T) {
	itemID := uuid.New()
	svc := newTestStockService(defaultStore(map[uuid.UUID]database.MenuItem{
		itemID: untrackedItem(itemID, "10.00"),
	}))

	_, err := svc.Adjust(context.Background(), itemID, enum.StockActionRestore, 5)
	if !errors.Is(err, ErrStockNotTracked) {
		t.Fatalf("expected ErrStockNotTracked, got: %v", err)
	}
}

func TestAdjust_ConsumeBeyondStock(t *testing.T) {
	itemID := uuid.New()
	svc := newTestStockService(defaultStore(map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "10.00", 2),
	}))

	_, err := svc.Adjust(context.Background(), itemID, enum.StockActionConsume, 5)
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 5 {
		t.Errorf("unexpected error fields: %+v", stockErr)
	}
}

func TestAdjust_Consume(t *testing.T) {
	itemID := uuid.New()
	menuItems := map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "10.00", 10),
	}
	svc := newTestStockService(defaultStore(menuItems))

	updated, err := svc.Adjust(context.Background(), itemID, enum.StockActionConsume, 3)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if updated.StockQuantity.Int32 != 7 {
		t.Errorf("stock = %d, want 7", updated.StockQuantity.Int32)
	}
}

func TestAdjust_Restore(t *testing.T) {
	itemID := uuid.New()
	menuItems := map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "10.00", 10),
	}
	svc := newTestStockService(defaultStore(menuItems))

	updated, err := svc.Adjust(context.Background(), itemID, enum.StockActionRestore, 4)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if updated.StockQuantity.Int32 != 14 {
		t.Errorf("stock = %d, want 14", updated.StockQuantity.Int32)
	}
}
