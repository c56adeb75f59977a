package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/api/internal/database"
	"github.com/tavola-pos/api/internal/enum"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getNextOrderSeqFn      func(ctx context.Context) (int32, error)
	createOrderFn          func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	getOrderForUpdateFn    func(ctx context.Context, id uuid.UUID) (database.Order, error)
	updateOrderStatusFn    func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	cancelOrderFn          func(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	confirmOrderPaymentFn  func(ctx context.Context, arg database.ConfirmOrderPaymentParams) (database.Order, error)
	updateOrderTotalFn     func(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error)
	createOrderItemFn      func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	listOrderItemsFn       func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	getOrderItemFn         func(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	deleteOrderItemFn      func(ctx context.Context, arg database.DeleteOrderItemParams) error
	countOrderItemsFn      func(ctx context.Context, orderID uuid.UUID) (int64, error)
	getMenuItemForUpdateFn func(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	adjustMenuItemStockFn  func(ctx context.Context, arg database.AdjustMenuItemStockParams) (database.MenuItem, error)
	getPaymentMethodFn     func(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error)
	getTableFn             func(ctx context.Context, id uuid.UUID) (database.Table, error)
}

func (m *mockOrderStore) GetNextOrderSeq(ctx context.Context) (int32, error) {
	return m.getNextOrderSeqFn(ctx)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockOrderStore) CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
	return m.cancelOrderFn(ctx, arg)
}
func (m *mockOrderStore) ConfirmOrderPayment(ctx context.Context, arg database.ConfirmOrderPaymentParams) (database.Order, error) {
	return m.confirmOrderPaymentFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error) {
	return m.updateOrderTotalFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
	return m.getOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) error {
	return m.deleteOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) CountOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return m.countOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) GetMenuItemForUpdate(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	return m.getMenuItemForUpdateFn(ctx, id)
}
func (m *mockOrderStore) AdjustMenuItemStock(ctx context.Context, arg database.AdjustMenuItemStockParams) (database.MenuItem, error) {
	return m.adjustMenuItemStockFn(ctx, arg)
}
func (m *mockOrderStore) GetPaymentMethod(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error) {
	return m.getPaymentMethodFn(ctx, id)
}
func (m *mockOrderStore) GetTable(ctx context.Context, id uuid.UUID) (database.Table, error) {
	return m.getTableFn(ctx, id)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func trackedItem(id uuid.UUID, price string, qty int32) database.MenuItem {
	return database.MenuItem{
		ID:            id,
		Name:          "Nasi Goreng",
		Price:         makeNumeric(price),
		IsAvailable:   true,
		HasStock:      true,
		StockQuantity: pgtype.Int4{Int32: qty, Valid: true},
	}
}

func untrackedItem(id uuid.UUID, price string) database.MenuItem {
	return database.MenuItem{
		ID:          id,
		Name:        "Es Teh",
		Price:       makeNumeric(price),
		IsAvailable: true,
		HasStock:    false,
	}
}

// newTestService creates an OrderService with mocked dependencies.
// store is the mock OrderStore that will be returned by the NewOrderStore factory.
func newTestService(store *mockOrderStore) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore), tx
}

// defaultStore returns a mockOrderStore backed by the given menu items.
// Stock adjustments mutate the map so tests can assert the resulting
// quantities. Individual tests override the functions they care about.
func defaultStore(menuItems map[uuid.UUID]database.MenuItem) *mockOrderStore {
	return &mockOrderStore{
		getNextOrderSeqFn: func(ctx context.Context) (int32, error) { return 1, nil },
		getMenuItemForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
			mi, ok := menuItems[id]
			if !ok {
				return database.MenuItem{}, pgx.ErrNoRows
			}
			return mi, nil
		},
		adjustMenuItemStockFn: func(ctx context.Context, arg database.AdjustMenuItemStockParams) (database.MenuItem, error) {
			mi := menuItems[arg.ID]
			mi.StockQuantity.Int32 += arg.Delta
			menuItems[arg.ID] = mi
			return mi, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:          uuid.New(),
				OrderNumber: arg.OrderNumber,
				OrderSeq:    arg.OrderSeq,
				Status:      enum.OrderStatusNew,
				TotalAmount: arg.TotalAmount,
				TableID:     arg.TableID,
				CreatedBy:   arg.CreatedBy,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:         uuid.New(),
				OrderID:    arg.OrderID,
				MenuItemID: arg.MenuItemID,
				Quantity:   arg.Quantity,
				UnitPrice:  arg.UnitPrice,
				TotalPrice: arg.TotalPrice,
				Notes:      arg.Notes,
			}, nil
		},
		updateOrderTotalFn: func(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error) {
			return database.Order{ID: arg.ID, TotalAmount: arg.TotalAmount}, nil
		},
		deleteOrderItemFn: func(ctx context.Context, arg database.DeleteOrderItemParams) error { return nil },
	}
}

func basicReq(menuItemID uuid.UUID, qty int32) CreateOrderRequest {
	return CreateOrderRequest{
		CreatedBy: uuid.New(),
		Items: []OrderItemInput{
			{MenuItemID: menuItemID.String(), Quantity: qty},
		},
	}
}

// =====================
// CreateOrder
// =====================

func TestCreateOrder_EmptyItems(t *testing.T) {
	svc, _ := newTestService(defaultStore(nil))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{CreatedBy: uuid.New()})
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got: %v", err)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	itemID := uuid.New()
	svc, _ := newTestService(defaultStore(map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "50.00", 10),
	}))

	_, err := svc.CreateOrder(context.Background(), basicReq(itemID, 0))
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestCreateOrder_BadMenuItemID(t *testing.T) {
	svc, _ := newTestService(defaultStore(nil))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CreatedBy: uuid.New(),
		Items:     []OrderItemInput{{MenuItemID: "not-a-uuid", Quantity: 1}},
	})
	if !errors.Is(err, ErrInvalidMenuItemID) {
		t.Fatalf("expected ErrInvalidMenuItemID, got: %v", err)
	}
}

func TestCreateOrder_MenuItemNotFound(t *testing.T) {
	svc, _ := newTestService(defaultStore(map[uuid.UUID]database.MenuItem{}))

	_, err := svc.CreateOrder(context.Background(), basicReq(uuid.New(), 1))
	if !errors.Is(err, ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got: %v", err)
	}
}

func TestCreateOrder_Unavailable(t *testing.T) {
	itemID := uuid.New()
	mi := trackedItem(itemID, "50.00", 10)
	mi.IsAvailable = false
	svc, _ := newTestService(defaultStore(map[uuid.UUID]database.MenuItem{itemID: mi}))

	_, err := svc.CreateOrder(context.Background(), basicReq(itemID, 1))
	if !errors.Is(err, ErrMenuItemUnavailable) {
		t.Fatalf("expected ErrMenuItemUnavailable, got: %v", err)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	itemID := uuid.New()
	svc, _ := newTestService(defaultStore(map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "50.00", 3),
	}))

	_, err := svc.CreateOrder(context.Background(), basicReq(itemID, 5))

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if stockErr.MenuItemID != itemID || stockErr.Available != 3 || stockErr.Requested != 5 {
		t.Errorf("unexpected error fields: %+v", stockErr)
	}
}

func TestCreateOrder_ConsumesStockAndComputesTotal(t *testing.T) {
	itemID := uuid.New()
	menuItems := map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "50.00", 10),
	}
	svc, tx := newTestService(defaultStore(menuItems))

	result, err := svc.CreateOrder(context.Background(), basicReq(itemID, 2))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !numericEquals(result.Order.TotalAmount, "100.00") {
		t.Errorf("total = %v, want 100.00", numericToDecimal(result.Order.TotalAmount))
	}
	if got := menuItems[itemID].StockQuantity.Int32; got != 8 {
		t.Errorf("stock after order = %d, want 8", got)
	}
	if result.Order.OrderNumber != "ORD-0001" {
		t.Errorf("order number = %q, want ORD-0001", result.Order.OrderNumber)
	}
	if len(result.Items) != 1 || !numericEquals(result.Items[0].UnitPrice, "50.00") {
		t.Errorf("unexpected items: %+v", result.Items)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestCreateOrder_UntrackedItemSkipsStock(t *testing.T) {
	itemID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.MenuItem{
		itemID: untrackedItem(itemID, "15.00"),
	})
	adjusted := false
	inner := store.adjustMenuItemStockFn
	store.adjustMenuItemStockFn = func(ctx context.Context, arg database.AdjustMenuItemStockParams) (database.MenuItem, error) {
		adjusted = true
		return inner(ctx, arg)
	}
	svc, _ := newTestService(store)

	result, err := svc.CreateOrder(context.Background(), basicReq(itemID, 4))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if adjusted {
		t.Error("stock was adjusted for an untracked item")
	}
	if !numericEquals(result.Order.TotalAmount, "60.00") {
		t.Errorf("total = %v, want 60.00", numericToDecimal(result.Order.TotalAmount))
	}
}

func TestCreateOrder_DuplicateLinesAggregateStock(t *testing.T) {
	itemID := uuid.New()
	svc, _ := newTestService(defaultStore(map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "10.00", 3),
	}))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CreatedBy: uuid.New(),
		Items: []OrderItemInput{
			{MenuItemID: itemID.String(), Quantity: 2},
			{MenuItemID: itemID.String(), Quantity: 2},
		},
	})

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError for aggregated quantity, got: %v", err)
	}
	if stockErr.Requested != 4 {
		t.Errorf("requested = %d, want 4", stockErr.Requested)
	}
}

func TestCreateOrder_TableNotFound(t *testing.T) {
	itemID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "50.00", 10),
	})
	store.getTableFn = func(ctx context.Context, id uuid.UUID) (database.Table, error) {
		return database.Table{}, pgx.ErrNoRows
	}
	svc, _ := newTestService(store)

	req := basicReq(itemID, 1)
	req.TableID = uuid.New().String()
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got: %v", err)
	}
}

func TestCreateOrder_RetriesOnSeqConflict(t *testing.T) {
	itemID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "50.00", 10),
	})
	attempts := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		attempts++
		if attempts == 1 {
			return database.Order{}, &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "orders_order_date_order_seq_key",
			}
		}
		return database.Order{ID: uuid.New(), OrderNumber: arg.OrderNumber, Status: enum.OrderStatusNew, TotalAmount: arg.TotalAmount}, nil
	}
	svc, _ := newTestService(store)

	result, err := svc.CreateOrder(context.Background(), basicReq(itemID, 1))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if result.Order.OrderNumber == "" {
		t.Error("expected an order number on the retried order")
	}
}

func TestCreateOrder_OtherUniqueViolationNotRetried(t *testing.T) {
	itemID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "50.00", 10),
	})
	attempts := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		attempts++
		return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"}
	}
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), basicReq(itemID, 1))
	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestCreateOrder_WithPaymentConfirmsInSameTx(t *testing.T) {
	itemID := uuid.New()
	methodID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "60.00", 10),
	})
	store.getPaymentMethodFn = func(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error) {
		return database.PaymentMethod{ID: methodID, Code: "CASH", Name: "Cash", IsActive: true}, nil
	}
	store.confirmOrderPaymentFn = func(ctx context.Context, arg database.ConfirmOrderPaymentParams) (database.Order, error) {
		return database.Order{
			ID:             arg.ID,
			Status:         enum.OrderStatusDelivered,
			IsPaid:         true,
			IsCompleted:    true,
			AmountReceived: arg.AmountReceived,
			ChangeAmount:   arg.ChangeAmount,
		}, nil
	}
	svc, _ := newTestService(store)

	req := basicReq(itemID, 2) // total 120.00
	req.PaymentMethodID = methodID.String()
	req.AmountReceived = "150.00"
	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if result.Order.Status != enum.OrderStatusDelivered || !result.Order.IsPaid {
		t.Errorf("order not delivered+paid: %+v", result.Order)
	}
	if !numericEquals(result.Order.ChangeAmount, "30.00") {
		t.Errorf("change = %v, want 30.00", numericToDecimal(result.Order.ChangeAmount))
	}
}

// =====================
// UpdateStatus
// =====================

func statusStore(order database.Order) *mockOrderStore {
	store := defaultStore(nil)
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		if id != order.ID {
			return database.Order{}, pgx.ErrNoRows
		}
		return order, nil
	}
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		updated := order
		updated.Status = arg.Status
		return updated, nil
	}
	store.listOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
		return nil, nil
	}
	store.cancelOrderFn = func(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
		updated := order
		updated.Status = enum.OrderStatusCancelled
		updated.CancellationReason = pgtype.Text{String: arg.CancellationReason, Valid: true}
		return updated, nil
	}
	return store
}

func TestUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    enum.OrderStatus
		to      enum.OrderStatus
		wantErr bool
	}{
		{"new to preparing", enum.OrderStatusNew, enum.OrderStatusPreparing, false},
		{"preparing to ready", enum.OrderStatusPreparing, enum.OrderStatusReady, false},
		{"new to ready skips a step", enum.OrderStatusNew, enum.OrderStatusReady, true},
		{"preparing to new goes backwards", enum.OrderStatusPreparing, enum.OrderStatusNew, true},
		{"delivered is terminal", enum.OrderStatusDelivered, enum.OrderStatusPreparing, true},
		{"cancelled is terminal", enum.OrderStatusCancelled, enum.OrderStatusPreparing, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := database.Order{ID: uuid.New(), Status: tt.from}
			svc, _ := newTestService(statusStore(order))

			updated, err := svc.UpdateStatus(context.Background(), order.ID, tt.to, "")
			if tt.wantErr {
				var transErr *InvalidTransitionError
				if !errors.As(err, &transErr) {
					t.Fatalf("expected InvalidTransitionError, got: %v", err)
				}
				if transErr.From != tt.from || transErr.To != tt.to {
					t.Errorf("error fields = %s -> %s, want %s -> %s", transErr.From, transErr.To, tt.from, tt.to)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
			if updated.Status != tt.to {
				t.Errorf("status = %s, want %s", updated.Status, tt.to)
			}
		})
	}
}

func TestUpdateStatus_CancelRequiresReason(t *testing.T) {
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusPreparing}
	svc, _ := newTestService(statusStore(order))

	_, err := svc.UpdateStatus(context.Background(), order.ID, enum.OrderStatusCancelled, "")
	if !errors.Is(err, ErrMissingCancellationReason) {
		t.Fatalf("expected ErrMissingCancellationReason, got: %v", err)
	}
}

func TestUpdateStatus_CancelRestoresStock(t *testing.T) {
	itemID := uuid.New()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusNew}
	menuItems := map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "50.00", 8), // 2 already consumed by the order
	}

	store := statusStore(order)
	base := defaultStore(menuItems)
	store.getMenuItemForUpdateFn = base.getMenuItemForUpdateFn
	store.adjustMenuItemStockFn = base.adjustMenuItemStockFn
	store.listOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
		return []database.OrderItem{
			{ID: uuid.New(), OrderID: order.ID, MenuItemID: itemID, Quantity: 2, UnitPrice: makeNumeric("50.00")},
		}, nil
	}
	svc, _ := newTestService(store)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, enum.OrderStatusCancelled, "customer left")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != enum.OrderStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", updated.Status)
	}
	if updated.CancellationReason.String != "customer left" {
		t.Errorf("reason = %q", updated.CancellationReason.String)
	}
	if got := menuItems[itemID].StockQuantity.Int32; got != 10 {
		t.Errorf("stock after cancel = %d, want 10", got)
	}
}

func TestUpdateStatus_DeliveredRequiresPayment(t *testing.T) {
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusReady, IsPaid: false}
	svc, _ := newTestService(statusStore(order))

	_, err := svc.UpdateStatus(context.Background(), order.ID, enum.OrderStatusDelivered, "")
	if !errors.Is(err, ErrOrderNotPaid) {
		t.Fatalf("expected ErrOrderNotPaid, got: %v", err)
	}
}

func TestUpdateStatus_DeliveredWhenPaid(t *testing.T) {
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusReady, IsPaid: true}
	svc, _ := newTestService(statusStore(order))

	updated, err := svc.UpdateStatus(context.Background(), order.ID, enum.OrderStatusDelivered, "")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != enum.OrderStatusDelivered {
		t.Errorf("status = %s, want DELIVERED", updated.Status)
	}
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	svc, _ := newTestService(statusStore(database.Order{ID: uuid.New()}))

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), enum.OrderStatusPreparing, "")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

// =====================
// ReplaceItems
// =====================

// replaceFixture wires a store around one open order with existing items and
// a live menu item map, tracking deletes and inserts.
type replaceFixture struct {
	store     *mockOrderStore
	menuItems map[uuid.UUID]database.MenuItem
	deleted   []uuid.UUID
	inserted  []database.CreateOrderItemParams
}

func newReplaceFixture(order database.Order, existing []database.OrderItem, menuItems map[uuid.UUID]database.MenuItem) *replaceFixture {
	f := &replaceFixture{menuItems: menuItems}
	store := defaultStore(menuItems)
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		if id != order.ID {
			return database.Order{}, pgx.ErrNoRows
		}
		return order, nil
	}
	store.listOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
		return existing, nil
	}
	store.deleteOrderItemFn = func(ctx context.Context, arg database.DeleteOrderItemParams) error {
		f.deleted = append(f.deleted, arg.ID)
		return nil
	}
	inner := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		f.inserted = append(f.inserted, arg)
		return inner(ctx, arg)
	}
	f.store = store
	return f
}

func TestReplaceItems_EmptyList(t *testing.T) {
	svc, _ := newTestService(defaultStore(nil))

	_, err := svc.ReplaceItems(context.Background(), uuid.New(), nil)
	if !errors.Is(err, ErrLastItemRemoval) {
		t.Fatalf("expected ErrLastItemRemoval, got: %v", err)
	}
}

func TestReplaceItems_ClosedOrder(t *testing.T) {
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusDelivered}
	f := newReplaceFixture(order, nil, map[uuid.UUID]database.MenuItem{})
	svc, _ := newTestService(f.store)

	_, err := svc.ReplaceItems(context.Background(), order.ID, []OrderItemInput{
		{MenuItemID: uuid.New().String(), Quantity: 1},
	})
	if !errors.Is(err, ErrOrderClosed) {
		t.Fatalf("expected ErrOrderClosed, got: %v", err)
	}
}

func TestReplaceItems_ReduceRestoresStock(t *testing.T) {
	itemID := uuid.New()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusNew, TotalAmount: makeNumeric("100.00")}
	existing := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, MenuItemID: itemID, Quantity: 2, UnitPrice: makeNumeric("50.00"), TotalPrice: makeNumeric("100.00")},
	}
	menuItems := map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "50.00", 8),
	}
	f := newReplaceFixture(order, existing, menuItems)
	svc, _ := newTestService(f.store)

	result, err := svc.ReplaceItems(context.Background(), order.ID, []OrderItemInput{
		{MenuItemID: itemID.String(), Quantity: 1},
	})
	if err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	if got := menuItems[itemID].StockQuantity.Int32; got != 9 {
		t.Errorf("stock after reduce = %d, want 9", got)
	}
	if !numericEquals(result.Order.TotalAmount, "50.00") {
		t.Errorf("total = %v, want 50.00", numericToDecimal(result.Order.TotalAmount))
	}
}

func TestReplaceItems_IncreaseConsumesStock(t *testing.T) {
	itemID := uuid.New()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusNew}
	existing := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, MenuItemID: itemID, Quantity: 1, UnitPrice: makeNumeric("50.00")},
	}
	menuItems := map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "50.00", 2),
	}
	f := newReplaceFixture(order, existing, menuItems)
	svc, _ := newTestService(f.store)

	_, err := svc.ReplaceItems(context.Background(), order.ID, []OrderItemInput{
		{MenuItemID: itemID.String(), Quantity: 3},
	})
	if err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	if got := menuItems[itemID].StockQuantity.Int32; got != 0 {
		t.Errorf("stock after increase = %d, want 0", got)
	}
}

func TestReplaceItems_IncreaseBeyondStock(t *testing.T) {
	itemID := uuid.New()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusNew}
	existing := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, MenuItemID: itemID, Quantity: 1, UnitPrice: makeNumeric("50.00")},
	}
	menuItems := map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "50.00", 2),
	}
	f := newReplaceFixture(order, existing, menuItems)
	svc, _ := newTestService(f.store)

	_, err := svc.ReplaceItems(context.Background(), order.ID, []OrderItemInput{
		{MenuItemID: itemID.String(), Quantity: 4}, // delta +3, only 2 left
	})
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 3 {
		t.Errorf("unexpected error fields: %+v", stockErr)
	}
}

func TestReplaceItems_KeepsPriceSnapshot(t *testing.T) {
	itemID := uuid.New()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusNew}
	// Ordered at 50.00; catalog price has since gone up to 75.00.
	existing := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, MenuItemID: itemID, Quantity: 1, UnitPrice: makeNumeric("50.00")},
	}
	menuItems := map[uuid.UUID]database.MenuItem{
		itemID: trackedItem(itemID, "75.00", 10),
	}
	f := newReplaceFixture(order, existing, menuItems)
	svc, _ := newTestService(f.store)

	result, err := svc.ReplaceItems(context.Background(), order.ID, []OrderItemInput{
		{MenuItemID: itemID.String(), Quantity: 2},
	})
	if err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	if len(f.inserted) != 1 || !numericEquals(f.inserted[0].UnitPrice, "50.00") {
		t.Errorf("inserted line does not keep the 50.00 snapshot: %+v", f.inserted)
	}
	if !numericEquals(result.Order.TotalAmount, "100.00") {
		t.Errorf("total = %v, want 100.00", numericToDecimal(result.Order.TotalAmount))
	}
}

func TestReplaceItems_RemovedItemRestoresAll(t *testing.T) {
	keepID := uuid.New()
	dropID := uuid.New()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusNew}
	existing := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, MenuItemID: keepID, Quantity: 1, UnitPrice: makeNumeric("20.00")},
		{ID: uuid.New(), OrderID: order.ID, MenuItemID: dropID, Quantity: 3, UnitPrice: makeNumeric("10.00")},
	}
	menuItems := map[uuid.UUID]database.MenuItem{
		keepID: trackedItem(keepID, "20.00", 5),
		dropID: trackedItem(dropID, "10.00", 0),
	}
	f := newReplaceFixture(order, existing, menuItems)
	svc, _ := newTestService(f.store)

	result, err := svc.ReplaceItems(context.Background(), order.ID, []OrderItemInput{
		{MenuItemID: keepID.String(), Quantity: 1},
	})
	if err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	if got := menuItems[dropID].StockQuantity.Int32; got != 3 {
		t.Errorf("dropped item stock = %d, want 3", got)
	}
	if got := menuItems[keepID].StockQuantity.Int32; got != 5 {
		t.Errorf("kept item stock = %d, want 5 (unchanged)", got)
	}
	if !numericEquals(result.Order.TotalAmount, "20.00") {
		t.Errorf("total = %v, want 20.00", numericToDecimal(result.Order.TotalAmount))
	}
}

// =====================
// RemoveItem
// =====================

func removeFixture(order database.Order, items []database.OrderItem, menuItems map[uuid.UUID]database.MenuItem) *mockOrderStore {
	store := defaultStore(menuItems)
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return order, nil
	}
	store.countOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) (int64, error) {
		return int64(len(items)), nil
	}
	store.getOrderItemFn = func(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
		for _, it := range items {
			if it.ID == arg.ID {
				return it, nil
			}
		}
		return database.OrderItem{}, pgx.ErrNoRows
	}
	store.listOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
		var remaining []database.OrderItem
		for _, it := range items[1:] {
			remaining = append(remaining, it)
		}
		return remaining, nil
	}
	return store
}

func TestRemoveItem_LastItem(t *testing.T) {
	itemID := uuid.New()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusNew}
	items := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, MenuItemID: itemID, Quantity: 1, UnitPrice: makeNumeric("50.00")},
	}
	svc, _ := newTestService(removeFixture(order, items, nil))

	_, err := svc.RemoveItem(context.Background(), order.ID, items[0].ID)
	if !errors.Is(err, ErrLastItemRemoval) {
		t.Fatalf("expected ErrLastItemRemoval, got: %v", err)
	}
}

func TestRemoveItem_ClosedOrder(t *testing.T) {
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusCancelled}
	svc, _ := newTestService(removeFixture(order, nil, nil))

	_, err := svc.RemoveItem(context.Background(), order.ID, uuid.New())
	if !errors.Is(err, ErrOrderClosed) {
		t.Fatalf("expected ErrOrderClosed, got: %v", err)
	}
}

func TestRemoveItem_RestoresStockAndRecomputesTotal(t *testing.T) {
	removedID := uuid.New()
	keptID := uuid.New()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusPreparing}
	items := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, MenuItemID: removedID, Quantity: 2, UnitPrice: makeNumeric("30.00")},
		{ID: uuid.New(), OrderID: order.ID, MenuItemID: keptID, Quantity: 1, UnitPrice: makeNumeric("45.00")},
	}
	menuItems := map[uuid.UUID]database.MenuItem{
		removedID: trackedItem(removedID, "30.00", 4),
	}
	svc, _ := newTestService(removeFixture(order, items, menuItems))

	result, err := svc.RemoveItem(context.Background(), order.ID, items[0].ID)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if got := menuItems[removedID].StockQuantity.Int32; got != 6 {
		t.Errorf("stock after removal = %d, want 6", got)
	}
	if !numericEquals(result.Order.TotalAmount, "45.00") {
		t.Errorf("total = %v, want 45.00", numericToDecimal(result.Order.TotalAmount))
	}
}

func TestRemoveItem_NotFound(t *testing.T) {
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusNew}
	items := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, MenuItemID: uuid.New(), Quantity: 1},
		{ID: uuid.New(), OrderID: order.ID, MenuItemID: uuid.New(), Quantity: 1},
	}
	svc, _ := newTestService(removeFixture(order, items, nil))

	_, err := svc.RemoveItem(context.Background(), order.ID, uuid.New())
	if !errors.Is(err, ErrOrderItemNotFound) {
		t.Fatalf("expected ErrOrderItemNotFound, got: %v", err)
	}
}

// =====================
// ConfirmPayment
// =====================

func paymentStore(order database.Order, method database.PaymentMethod) *mockOrderStore {
	store := defaultStore(nil)
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return order, nil
	}
	store.getPaymentMethodFn = func(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error) {
		if id != method.ID {
			return database.PaymentMethod{}, pgx.ErrNoRows
		}
		return method, nil
	}
	store.confirmOrderPaymentFn = func(ctx context.Context, arg database.ConfirmOrderPaymentParams) (database.Order, error) {
		updated := order
		updated.Status = enum.OrderStatusDelivered
		updated.IsPaid = true
		updated.IsCompleted = true
		updated.PaymentMethodID = pgtype.UUID{Bytes: arg.PaymentMethodID, Valid: true}
		updated.AmountReceived = arg.AmountReceived
		updated.ChangeAmount = arg.ChangeAmount
		return updated, nil
	}
	return store
}

func cashMethod() database.PaymentMethod {
	return database.PaymentMethod{ID: uuid.New(), Code: "CASH", Name: "Cash", IsActive: true}
}

func TestConfirmPayment_InsufficientAmount(t *testing.T) {
	method := cashMethod()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusReady, TotalAmount: makeNumeric("120.00")}
	svc, _ := newTestService(paymentStore(order, method))

	_, err := svc.ConfirmPayment(context.Background(), order.ID, ConfirmPaymentRequest{
		PaymentMethodID: method.ID.String(),
		AmountReceived:  "100.00",
	})
	var payErr *InsufficientPaymentError
	if !errors.As(err, &payErr) {
		t.Fatalf("expected InsufficientPaymentError, got: %v", err)
	}
	if payErr.Missing.StringFixed(2) != "20.00" {
		t.Errorf("missing = %s, want 20.00", payErr.Missing.StringFixed(2))
	}
}

func TestConfirmPayment_CashWithChange(t *testing.T) {
	method := cashMethod()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusReady, TotalAmount: makeNumeric("120.00")}
	svc, _ := newTestService(paymentStore(order, method))

	updated, err := svc.ConfirmPayment(context.Background(), order.ID, ConfirmPaymentRequest{
		PaymentMethodID: method.ID.String(),
		AmountReceived:  "150.00",
	})
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if updated.Status != enum.OrderStatusDelivered || !updated.IsPaid || !updated.IsCompleted {
		t.Errorf("order not closed out: %+v", updated)
	}
	if !numericEquals(updated.ChangeAmount, "30.00") {
		t.Errorf("change = %v, want 30.00", numericToDecimal(updated.ChangeAmount))
	}
}

func TestConfirmPayment_ExactAmount(t *testing.T) {
	method := cashMethod()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusNew, TotalAmount: makeNumeric("85.50")}
	svc, _ := newTestService(paymentStore(order, method))

	updated, err := svc.ConfirmPayment(context.Background(), order.ID, ConfirmPaymentRequest{
		PaymentMethodID: method.ID.String(),
		AmountReceived:  "85.50",
	})
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if !numericEquals(updated.ChangeAmount, "0.00") {
		t.Errorf("change = %v, want 0.00", numericToDecimal(updated.ChangeAmount))
	}
}

func TestConfirmPayment_NonCashRequiresExact(t *testing.T) {
	method := database.PaymentMethod{ID: uuid.New(), Code: "QRIS", Name: "QRIS", IsActive: true}
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusReady, TotalAmount: makeNumeric("120.00")}
	svc, _ := newTestService(paymentStore(order, method))

	_, err := svc.ConfirmPayment(context.Background(), order.ID, ConfirmPaymentRequest{
		PaymentMethodID: method.ID.String(),
		AmountReceived:  "150.00",
	})
	if !errors.Is(err, ErrExactAmountRequired) {
		t.Fatalf("expected ErrExactAmountRequired, got: %v", err)
	}
}

func TestConfirmPayment_TerminalOrder(t *testing.T) {
	method := cashMethod()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusCancelled, TotalAmount: makeNumeric("50.00")}
	svc, _ := newTestService(paymentStore(order, method))

	_, err := svc.ConfirmPayment(context.Background(), order.ID, ConfirmPaymentRequest{
		PaymentMethodID: method.ID.String(),
		AmountReceived:  "50.00",
	})
	var transErr *InvalidTransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("expected InvalidTransitionError, got: %v", err)
	}
	if transErr.From != enum.OrderStatusCancelled || transErr.To != enum.OrderStatusDelivered {
		t.Errorf("unexpected error fields: %+v", transErr)
	}
}

func TestConfirmPayment_InactiveMethod(t *testing.T) {
	method := database.PaymentMethod{ID: uuid.New(), Code: "CARD", Name: "Card", IsActive: false}
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusReady, TotalAmount: makeNumeric("50.00")}
	svc, _ := newTestService(paymentStore(order, method))

	_, err := svc.ConfirmPayment(context.Background(), order.ID, ConfirmPaymentRequest{
		PaymentMethodID: method.ID.String(),
		AmountReceived:  "50.00",
	})
	if !errors.Is(err, ErrPaymentMethodInactive) {
		t.Fatalf("expected ErrPaymentMethodInactive, got: %v", err)
	}
}

func TestConfirmPayment_MissingAmount(t *testing.T) {
	method := cashMethod()
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusReady, TotalAmount: makeNumeric("50.00")}
	svc, _ := newTestService(paymentStore(order, method))

	_, err := svc.ConfirmPayment(context.Background(), order.ID, ConfirmPaymentRequest{
		PaymentMethodID: method.ID.String(),
	})
	if !errors.Is(err, ErrAmountReceivedRequired) {
		t.Fatalf("expected ErrAmountReceivedRequired, got: %v", err)
	}
}
