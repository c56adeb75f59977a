package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/api/internal/database"
	"github.com/tavola-pos/api/internal/enum"
)

const maxOrderSeqRetries = 3

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderSeq(ctx context.Context) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	ConfirmOrderPayment(ctx context.Context, arg database.ConfirmOrderPaymentParams) (database.Order, error)
	UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) error
	CountOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error)
	GetMenuItemForUpdate(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	AdjustMenuItemStock(ctx context.Context, arg database.AdjustMenuItemStockParams) (database.MenuItem, error)
	GetPaymentMethod(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderItemInput is one requested line. Unit prices always come from the
// menu catalog, never from the client.
type OrderItemInput struct {
	MenuItemID string
	Quantity   int32
	Notes      string
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CreatedBy       uuid.UUID
	CustomerName    string
	IsDelivery      bool
	TableID         string
	Notes           string
	PaymentMethodID string
	AmountReceived  string
	Items           []OrderItemInput
}

// ConfirmPaymentRequest is the input for confirming payment on an order.
type ConfirmPaymentRequest struct {
	PaymentMethodID string
	AmountReceived  string
}

// OrderResult is an order aggregate: the order row plus its items.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService owns the order lifecycle: creation, status transitions,
// item edits, payment, and the stock reconciliation each implies. Every
// mutation runs in one transaction holding the order row lock and the
// affected menu item row locks.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// allowedTransitions defines the lifecycle state machine. DELIVERED and
// CANCELLED are terminal and therefore absent as keys.
var allowedTransitions = map[enum.OrderStatus][]enum.OrderStatus{
	enum.OrderStatusNew:       {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusDelivered, enum.OrderStatusCancelled},
}

func validateTransition(from, to enum.OrderStatus) error {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// parsedLine is a request line after ID parsing.
type parsedLine struct {
	menuItemID uuid.UUID
	quantity   int32
	notes      string
}

func parseLines(items []OrderItemInput) ([]parsedLine, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	lines := make([]parsedLine, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		id, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
		}
		lines[i] = parsedLine{menuItemID: id, quantity: item.Quantity, notes: item.Notes}
	}
	return lines, nil
}

// lockMenuItems locks the distinct menu items referenced by the given IDs in
// a stable order, so two concurrent orders touching the same items cannot
// deadlock. Returns the locked rows keyed by ID.
func lockMenuItems(ctx context.Context, store OrderStore, ids []uuid.UUID) (map[uuid.UUID]database.MenuItem, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	order := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })

	locked := make(map[uuid.UUID]database.MenuItem, len(order))
	for _, id := range order {
		mi, err := store.GetMenuItemForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrMenuItemNotFound
			}
			return nil, fmt.Errorf("lock menu item: %w", err)
		}
		locked[id] = mi
	}
	return locked, nil
}

// CreateOrder validates stock, snapshots catalog prices, and creates the
// order aggregate atomically. When a payment method and received amount are
// supplied the payment is confirmed in the same transaction (walk-up sale).
// Retries on order_seq unique violations, where two concurrent transactions
// read the same next sequence.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	lines, err := parseLines(req.Items)
	if err != nil {
		return nil, err
	}

	var tableID pgtype.UUID
	if req.TableID != "" {
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, ErrInvalidTableID
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
	}

	if req.AmountReceived != "" && req.PaymentMethodID == "" {
		return nil, ErrInvalidPaymentMethodID
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderSeqRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, lines, tableID)
		if err == nil {
			return result, nil
		}
		if isOrderSeqConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func isOrderSeqConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_date_order_seq_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, lines []parsedLine, tableID pgtype.UUID) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if tableID.Valid {
		if _, err := store.GetTable(ctx, uuid.UUID(tableID.Bytes)); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTableNotFound
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
	}

	seq, err := store.GetNextOrderSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order seq: %w", err)
	}
	orderNumber := fmt.Sprintf("ORD-%04d", seq)

	// Requested quantity per distinct menu item; a request may list the
	// same item on multiple lines.
	requested := make(map[uuid.UUID]int32)
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		requested[line.menuItemID] += line.quantity
		ids = append(ids, line.menuItemID)
	}

	menuItems, err := lockMenuItems(ctx, store, ids)
	if err != nil {
		return nil, err
	}

	// Verify availability and consume stock while holding the row locks.
	for _, id := range sortedIDs(requested) {
		mi := menuItems[id]
		if !mi.IsAvailable {
			return nil, ErrMenuItemUnavailable
		}
		if !mi.HasStock {
			continue
		}
		available := mi.StockQuantity.Int32
		if available < requested[id] {
			return nil, &InsufficientStockError{
				MenuItemID: id,
				Available:  available,
				Requested:  requested[id],
			}
		}
		if _, err := store.AdjustMenuItemStock(ctx, database.AdjustMenuItemStockParams{
			ID:    id,
			Delta: -requested[id],
		}); err != nil {
			return nil, fmt.Errorf("consume stock: %w", err)
		}
	}

	// total = exact sum of quantity * catalog unit price.
	total := decimal.Zero
	for _, line := range lines {
		unitPrice := numericToDecimal(menuItems[line.menuItemID].Price)
		total = total.Add(unitPrice.Mul(decimal.NewFromInt32(line.quantity)))
	}

	customerName := pgtype.Text{}
	if req.CustomerName != "" {
		customerName = pgtype.Text{String: req.CustomerName, Valid: true}
	}
	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:  orderNumber,
		OrderSeq:     seq,
		CustomerName: customerName,
		IsDelivery:   req.IsDelivery,
		TableID:      tableID,
		Status:       enum.OrderStatusNew,
		TotalAmount:  decimalToNumeric(total),
		Notes:        notes,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for _, line := range lines {
		unitPrice := numericToDecimal(menuItems[line.menuItemID].Price)
		lineNotes := pgtype.Text{}
		if line.notes != "" {
			lineNotes = pgtype.Text{String: line.notes, Valid: true}
		}
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: line.menuItemID,
			Quantity:   line.quantity,
			UnitPrice:  decimalToNumeric(unitPrice),
			TotalPrice: decimalToNumeric(unitPrice.Mul(decimal.NewFromInt32(line.quantity))),
			Notes:      lineNotes,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if req.PaymentMethodID != "" {
		order, err = s.confirmPaymentLocked(ctx, store, order, ConfirmPaymentRequest{
			PaymentMethodID: req.PaymentMethodID,
			AmountReceived:  req.AmountReceived,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: items}, nil
}

func sortedIDs(m map[uuid.UUID]int32) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// UpdateStatus applies a lifecycle transition. Cancellation requires a
// non-empty reason and restores every item's quantity to stock in the same
// transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, target enum.OrderStatus, reason string) (database.Order, error) {
	if !target.Valid() {
		return database.Order{}, &InvalidTransitionError{To: target}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if err := validateTransition(order.Status, target); err != nil {
		return database.Order{}, err
	}

	var updated database.Order
	switch target {
	case enum.OrderStatusCancelled:
		if reason == "" {
			return database.Order{}, ErrMissingCancellationReason
		}
		if err := s.restoreOrderStock(ctx, store, orderID); err != nil {
			return database.Order{}, err
		}
		updated, err = store.CancelOrder(ctx, database.CancelOrderParams{
			ID:                 orderID,
			CancellationReason: reason,
		})
	case enum.OrderStatusDelivered:
		// Delivery goes through ConfirmPayment; a plain status change to
		// DELIVERED is only valid for an order that is somehow already paid.
		if !order.IsPaid {
			return database.Order{}, ErrOrderNotPaid
		}
		updated, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         orderID,
			Status:     target,
			FromStatus: order.Status,
		})
	default:
		updated, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         orderID,
			Status:     target,
			FromStatus: order.Status,
		})
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("update status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// restoreOrderStock returns every tracked item's quantity to the menu. Called
// under the order row lock during cancellation.
func (s *OrderService) restoreOrderStock(ctx context.Context, store OrderStore, orderID uuid.UUID) error {
	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}

	restore := make(map[uuid.UUID]int32)
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		restore[item.MenuItemID] += item.Quantity
		ids = append(ids, item.MenuItemID)
	}

	menuItems, err := lockMenuItems(ctx, store, ids)
	if err != nil {
		return err
	}
	for _, id := range sortedIDs(restore) {
		if !menuItems[id].HasStock {
			continue
		}
		if _, err := store.AdjustMenuItemStock(ctx, database.AdjustMenuItemStockParams{
			ID:    id,
			Delta: restore[id],
		}); err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
	}
	return nil
}

// ReplaceItems swaps the order's item list for the given one, applying only
// the stock delta per menu item: reduced quantities restore stock,
// increased quantities consume it after an availability check. Lines whose
// menu item was already on the order keep their original price snapshot.
func (s *OrderService) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []OrderItemInput) (*OrderResult, error) {
	if len(items) == 0 {
		return nil, ErrLastItemRemoval
	}
	lines, err := parseLines(items)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status.Terminal() {
		return nil, ErrOrderClosed
	}

	existing, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	// Quantities and price snapshots per menu item as they stand now.
	existingQty := make(map[uuid.UUID]int32)
	snapshotPrice := make(map[uuid.UUID]decimal.Decimal)
	for _, item := range existing {
		existingQty[item.MenuItemID] += item.Quantity
		snapshotPrice[item.MenuItemID] = numericToDecimal(item.UnitPrice)
	}

	desiredQty := make(map[uuid.UUID]int32)
	allIDs := make([]uuid.UUID, 0, len(lines)+len(existing))
	for _, line := range lines {
		desiredQty[line.menuItemID] += line.quantity
		allIDs = append(allIDs, line.menuItemID)
	}
	for id := range existingQty {
		allIDs = append(allIDs, id)
	}

	menuItems, err := lockMenuItems(ctx, store, allIDs)
	if err != nil {
		return nil, err
	}

	// Apply per-menu-item stock deltas. Restores first cannot fail; consumes
	// are guarded by the availability check under the lock.
	touched := make(map[uuid.UUID]int32)
	for id, qty := range desiredQty {
		touched[id] = qty - existingQty[id]
	}
	for id, qty := range existingQty {
		if _, ok := desiredQty[id]; !ok {
			touched[id] = -qty
		}
	}
	for _, id := range sortedIDs(touched) {
		diff := touched[id]
		mi := menuItems[id]
		if diff > 0 && !mi.IsAvailable {
			return nil, ErrMenuItemUnavailable
		}
		if !mi.HasStock || diff == 0 {
			continue
		}
		if diff > 0 && mi.StockQuantity.Int32 < diff {
			return nil, &InsufficientStockError{
				MenuItemID: id,
				Available:  mi.StockQuantity.Int32,
				Requested:  diff,
			}
		}
		if _, err := store.AdjustMenuItemStock(ctx, database.AdjustMenuItemStockParams{
			ID:    id,
			Delta: -diff,
		}); err != nil {
			return nil, fmt.Errorf("adjust stock: %w", err)
		}
	}

	// Rewrite the item list: existing menu items keep their snapshot price,
	// new ones snapshot the current catalog price.
	for _, item := range existing {
		if err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{
			ID:      item.ID,
			OrderID: orderID,
		}); err != nil {
			return nil, fmt.Errorf("delete order item: %w", err)
		}
	}

	total := decimal.Zero
	newItems := make([]database.OrderItem, 0, len(lines))
	for _, line := range lines {
		unitPrice, ok := snapshotPrice[line.menuItemID]
		if !ok {
			unitPrice = numericToDecimal(menuItems[line.menuItemID].Price)
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt32(line.quantity))
		total = total.Add(lineTotal)

		lineNotes := pgtype.Text{}
		if line.notes != "" {
			lineNotes = pgtype.Text{String: line.notes, Valid: true}
		}
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    orderID,
			MenuItemID: line.menuItemID,
			Quantity:   line.quantity,
			UnitPrice:  decimalToNumeric(unitPrice),
			TotalPrice: decimalToNumeric(lineTotal),
			Notes:      lineNotes,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		newItems = append(newItems, item)
	}

	updated, err := store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{
		ID:          orderID,
		TotalAmount: decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("update order total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderResult{Order: updated, Items: newItems}, nil
}

// RemoveItem deletes one line, restores its quantity to stock, and
// recomputes the total from the remaining lines. Removing the last line is
// rejected; the caller must cancel the order instead.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status.Terminal() {
		return nil, ErrOrderClosed
	}

	count, err := store.CountOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("count order items: %w", err)
	}
	if count <= 1 {
		return nil, ErrLastItemRemoval
	}

	item, err := store.GetOrderItem(ctx, database.GetOrderItemParams{ID: itemID, OrderID: orderID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}

	mi, err := store.GetMenuItemForUpdate(ctx, item.MenuItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("lock menu item: %w", err)
	}
	if mi.HasStock {
		if _, err := store.AdjustMenuItemStock(ctx, database.AdjustMenuItemStockParams{
			ID:    item.MenuItemID,
			Delta: item.Quantity,
		}); err != nil {
			return nil, fmt.Errorf("restore stock: %w", err)
		}
	}

	if err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{ID: itemID, OrderID: orderID}); err != nil {
		return nil, fmt.Errorf("delete order item: %w", err)
	}

	remaining, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	total := decimal.Zero
	for _, it := range remaining {
		total = total.Add(numericToDecimal(it.UnitPrice).Mul(decimal.NewFromInt32(it.Quantity)))
	}

	updated, err := store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{
		ID:          orderID,
		TotalAmount: decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("update order total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderResult{Order: updated, Items: remaining}, nil
}

// ConfirmPayment validates the received amount against the total, records
// the payment and the change, and marks the order DELIVERED, paid, and
// completed.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, req ConfirmPaymentRequest) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	updated, err := s.confirmPaymentLocked(ctx, store, order, req)
	if err != nil {
		return database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// confirmPaymentLocked runs the payment checks and update; the caller holds
// the order row lock inside an open transaction.
func (s *OrderService) confirmPaymentLocked(ctx context.Context, store OrderStore, order database.Order, req ConfirmPaymentRequest) (database.Order, error) {
	if order.Status.Terminal() {
		return database.Order{}, &InvalidTransitionError{From: order.Status, To: enum.OrderStatusDelivered}
	}

	methodID, err := uuid.Parse(req.PaymentMethodID)
	if err != nil {
		return database.Order{}, ErrInvalidPaymentMethodID
	}
	method, err := store.GetPaymentMethod(ctx, methodID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrPaymentMethodNotFound
		}
		return database.Order{}, fmt.Errorf("get payment method: %w", err)
	}
	if !method.IsActive {
		return database.Order{}, ErrPaymentMethodInactive
	}

	if req.AmountReceived == "" {
		return database.Order{}, ErrAmountReceivedRequired
	}
	received, err := decimal.NewFromString(req.AmountReceived)
	if err != nil || received.IsNegative() {
		return database.Order{}, ErrInvalidAmountReceived
	}

	total := numericToDecimal(order.TotalAmount)
	if received.LessThan(total) {
		return database.Order{}, &InsufficientPaymentError{Missing: total.Sub(received)}
	}
	change := received.Sub(total)
	if method.Code != "CASH" && !change.IsZero() {
		return database.Order{}, ErrExactAmountRequired
	}

	updated, err := store.ConfirmOrderPayment(ctx, database.ConfirmOrderPaymentParams{
		ID:              order.ID,
		PaymentMethodID: methodID,
		AmountReceived:  decimalToNumeric(received),
		ChangeAmount:    decimalToNumeric(change),
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("confirm payment: %w", err)
	}
	return updated, nil
}
