package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, category_id, name, description, price, is_available,
	has_stock, stock_quantity, min_stock_alert, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...interface{}) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(
		&m.ID,
		&m.CategoryID,
		&m.Name,
		&m.Description,
		&m.Price,
		&m.IsAvailable,
		&m.HasStock,
		&m.StockQuantity,
		&m.MinStockAlert,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func collectMenuItems(q *Queries, ctx context.Context, sql string, args ...interface{}) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const createMenuItemSQL = `
INSERT INTO menu_items (category_id, name, description, price, is_available, has_stock, stock_quantity, min_stock_alert)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	CategoryID    uuid.UUID
	Name          string
	Description   pgtype.Text
	Price         pgtype.Numeric
	IsAvailable   bool
	HasStock      bool
	StockQuantity pgtype.Int4
	MinStockAlert pgtype.Int4
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItemSQL,
		arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.IsAvailable,
		arg.HasStock, arg.StockQuantity, arg.MinStockAlert))
}

const getMenuItemSQL = `
SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItemSQL, id))
}

const getMenuItemForUpdateSQL = `
SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1 FOR UPDATE`

// GetMenuItemForUpdate locks the row for the duration of the surrounding
// transaction. Stock arithmetic must happen under this lock.
func (q *Queries) GetMenuItemForUpdate(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItemForUpdateSQL, id))
}

const listMenuItemsSQL = `
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE ($1::uuid IS NULL OR category_id = $1)
  AND (NOT $2::bool OR is_available)
ORDER BY name`

type ListMenuItemsParams struct {
	CategoryID    pgtype.UUID
	AvailableOnly bool
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	return collectMenuItems(q, ctx, listMenuItemsSQL, arg.CategoryID, arg.AvailableOnly)
}

const listLowStockMenuItemsSQL = `
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE has_stock
  AND min_stock_alert IS NOT NULL
  AND stock_quantity <= min_stock_alert
ORDER BY stock_quantity`

func (q *Queries) ListLowStockMenuItems(ctx context.Context) ([]MenuItem, error) {
	return collectMenuItems(q, ctx, listLowStockMenuItemsSQL)
}

const updateMenuItemSQL = `
UPDATE menu_items
SET category_id = $2, name = $3, description = $4, price = $5, is_available = $6,
    has_stock = $7, stock_quantity = $8, min_stock_alert = $9, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID            uuid.UUID
	CategoryID    uuid.UUID
	Name          string
	Description   pgtype.Text
	Price         pgtype.Numeric
	IsAvailable   bool
	HasStock      bool
	StockQuantity pgtype.Int4
	MinStockAlert pgtype.Int4
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItemSQL,
		arg.ID, arg.CategoryID, arg.Name, arg.Description, arg.Price,
		arg.IsAvailable, arg.HasStock, arg.StockQuantity, arg.MinStockAlert))
}

const adjustMenuItemStockSQL = `
UPDATE menu_items
SET stock_quantity = stock_quantity + $2, updated_at = now()
WHERE id = $1 AND has_stock
RETURNING ` + menuItemColumns

type AdjustMenuItemStockParams struct {
	ID    uuid.UUID
	Delta int32
}

// AdjustMenuItemStock applies a signed delta to a tracked item's stock.
// The caller validates bounds under a row lock; the stock_quantity >= 0
// CHECK constraint is the last line of defence.
func (q *Queries) AdjustMenuItemStock(ctx context.Context, arg AdjustMenuItemStockParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, adjustMenuItemStockSQL, arg.ID, arg.Delta))
}

const deleteMenuItemSQL = `
UPDATE menu_items SET is_available = false, updated_at = now() WHERE id = $1
RETURNING ` + menuItemColumns

// DeleteMenuItem soft-deletes: order_items reference menu items forever.
func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, deleteMenuItemSQL, id))
}
