package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavola-pos/api/internal/enum"
)

const orderColumns = `id, order_number, order_seq, order_date, customer_name, is_delivery,
	table_id, status, total_amount, payment_method_id, amount_received, change_amount,
	is_paid, is_completed, cancellation_reason, notes, created_by, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.OrderSeq,
		&o.OrderDate,
		&o.CustomerName,
		&o.IsDelivery,
		&o.TableID,
		&o.Status,
		&o.TotalAmount,
		&o.PaymentMethodID,
		&o.AmountReceived,
		&o.ChangeAmount,
		&o.IsPaid,
		&o.IsCompleted,
		&o.CancellationReason,
		&o.Notes,
		&o.CreatedBy,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

const getNextOrderSeqSQL = `
SELECT COALESCE(MAX(order_seq), 0) + 1 FROM orders WHERE order_date = CURRENT_DATE`

// GetNextOrderSeq returns the next per-day sequence number. Two concurrent
// transactions can read the same value; the (order_date, order_seq) unique
// constraint turns the race into a retryable 23505.
func (q *Queries) GetNextOrderSeq(ctx context.Context) (int32, error) {
	var seq int32
	err := q.db.QueryRow(ctx, getNextOrderSeqSQL).Scan(&seq)
	return seq, err
}

const createOrderSQL = `
INSERT INTO orders (order_number, order_seq, customer_name, is_delivery, table_id,
	status, total_amount, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber  string
	OrderSeq     int32
	CustomerName pgtype.Text
	IsDelivery   bool
	TableID      pgtype.UUID
	Status       enum.OrderStatus
	TotalAmount  pgtype.Numeric
	Notes        pgtype.Text
	CreatedBy    uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrderSQL,
		arg.OrderNumber, arg.OrderSeq, arg.CustomerName, arg.IsDelivery, arg.TableID,
		arg.Status, arg.TotalAmount, arg.Notes, arg.CreatedBy))
}

const getOrderSQL = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderSQL, id))
}

const getOrderForUpdateSQL = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

// GetOrderForUpdate locks the order row so concurrent mutations of the same
// aggregate serialize instead of last-write-wins.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdateSQL, id))
}

const listOrdersSQL = `
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::uuid IS NULL OR table_id = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6`

type ListOrdersParams struct {
	Status    pgtype.Text
	TableID   pgtype.UUID
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersSQL,
		arg.Status, arg.TableID, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const updateOrderStatusSQL = `
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     enum.OrderStatus
	FromStatus enum.OrderStatus
}

// UpdateOrderStatus transitions only when the order is still in FromStatus;
// zero rows means a concurrent transition won.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatusSQL, arg.ID, arg.Status, arg.FromStatus))
}

const cancelOrderSQL = `
UPDATE orders
SET status = 'CANCELLED', cancellation_reason = $2, updated_at = now()
WHERE id = $1 AND status NOT IN ('DELIVERED', 'CANCELLED')
RETURNING ` + orderColumns

type CancelOrderParams struct {
	ID                 uuid.UUID
	CancellationReason string
}

func (q *Queries) CancelOrder(ctx context.Context, arg CancelOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrderSQL, arg.ID, arg.CancellationReason))
}

const confirmOrderPaymentSQL = `
UPDATE orders
SET status = 'DELIVERED', is_paid = true, is_completed = true,
    payment_method_id = $2, amount_received = $3, change_amount = $4,
    updated_at = now()
WHERE id = $1 AND status NOT IN ('DELIVERED', 'CANCELLED')
RETURNING ` + orderColumns

type ConfirmOrderPaymentParams struct {
	ID              uuid.UUID
	PaymentMethodID uuid.UUID
	AmountReceived  pgtype.Numeric
	ChangeAmount    pgtype.Numeric
}

func (q *Queries) ConfirmOrderPayment(ctx context.Context, arg ConfirmOrderPaymentParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, confirmOrderPaymentSQL,
		arg.ID, arg.PaymentMethodID, arg.AmountReceived, arg.ChangeAmount))
}

const updateOrderTotalSQL = `
UPDATE orders SET total_amount = $2, updated_at = now() WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderTotalParams struct {
	ID          uuid.UUID
	TotalAmount pgtype.Numeric
}

func (q *Queries) UpdateOrderTotal(ctx context.Context, arg UpdateOrderTotalParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderTotalSQL, arg.ID, arg.TotalAmount))
}
