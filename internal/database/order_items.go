package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderItemColumns = `id, order_id, menu_item_id, quantity, unit_price, total_price, notes, created_at`

func scanOrderItem(row interface{ Scan(...interface{}) error }) (OrderItem, error) {
	var oi OrderItem
	err := row.Scan(
		&oi.ID,
		&oi.OrderID,
		&oi.MenuItemID,
		&oi.Quantity,
		&oi.UnitPrice,
		&oi.TotalPrice,
		&oi.Notes,
		&oi.CreatedAt,
	)
	return oi, err
}

const createOrderItemSQL = `
INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price, total_price, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
	Notes      pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItemSQL,
		arg.OrderID, arg.MenuItemID, arg.Quantity, arg.UnitPrice, arg.TotalPrice, arg.Notes))
}

const listOrderItemsByOrderSQL = `
SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY created_at, id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrderSQL, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		oi, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, oi)
	}
	return items, rows.Err()
}

const getOrderItemSQL = `
SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1 AND order_id = $2`

type GetOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) GetOrderItem(ctx context.Context, arg GetOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItemSQL, arg.ID, arg.OrderID))
}

const updateOrderItemQuantitySQL = `
UPDATE order_items SET quantity = $2, total_price = $3 WHERE id = $1
RETURNING ` + orderItemColumns

type UpdateOrderItemQuantityParams struct {
	ID         uuid.UUID
	Quantity   int32
	TotalPrice pgtype.Numeric
}

func (q *Queries) UpdateOrderItemQuantity(ctx context.Context, arg UpdateOrderItemQuantityParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateOrderItemQuantitySQL,
		arg.ID, arg.Quantity, arg.TotalPrice))
}

const deleteOrderItemSQL = `
DELETE FROM order_items WHERE id = $1 AND order_id = $2`

type DeleteOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) DeleteOrderItem(ctx context.Context, arg DeleteOrderItemParams) error {
	_, err := q.db.Exec(ctx, deleteOrderItemSQL, arg.ID, arg.OrderID)
	return err
}

const countOrderItemsSQL = `
SELECT COUNT(*) FROM order_items WHERE order_id = $1`

func (q *Queries) CountOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrderItemsSQL, orderID).Scan(&count)
	return count, err
}
