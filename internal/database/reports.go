package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Report queries aggregate over DELIVERED orders only: cancelled orders never
// earned revenue and open orders may still change.

const getDailySalesSQL = `
SELECT created_at::date AS sale_date,
       COUNT(*) AS order_count,
       COALESCE(SUM(total_amount), 0) AS total_revenue
FROM orders
WHERE status = 'DELIVERED'
  AND created_at >= $1 AND created_at < $2
GROUP BY sale_date
ORDER BY sale_date`

type GetDailySalesParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

type GetDailySalesRow struct {
	SaleDate     pgtype.Date
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySalesSQL, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GetDailySalesRow
	for rows.Next() {
		var r GetDailySalesRow
		if err := rows.Scan(&r.SaleDate, &r.OrderCount, &r.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const getItemSalesSQL = `
SELECT mi.id AS menu_item_id,
       mi.name AS menu_item_name,
       COALESCE(SUM(oi.quantity), 0) AS quantity_sold,
       COALESCE(SUM(oi.total_price), 0) AS total_revenue
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN menu_items mi ON mi.id = oi.menu_item_id
WHERE o.status = 'DELIVERED'
  AND o.created_at >= $1 AND o.created_at < $2
GROUP BY mi.id, mi.name
ORDER BY quantity_sold DESC
LIMIT $3`

type GetItemSalesParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
}

type GetItemSalesRow struct {
	MenuItemID   uuid.UUID
	MenuItemName string
	QuantitySold int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetItemSales(ctx context.Context, arg GetItemSalesParams) ([]GetItemSalesRow, error) {
	rows, err := q.db.Query(ctx, getItemSalesSQL, arg.StartDate, arg.EndDate, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GetItemSalesRow
	for rows.Next() {
		var r GetItemSalesRow
		if err := rows.Scan(&r.MenuItemID, &r.MenuItemName, &r.QuantitySold, &r.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const getPaymentMethodSummarySQL = `
SELECT pm.code AS method_code,
       pm.name AS method_name,
       COUNT(o.id) AS order_count,
       COALESCE(SUM(o.total_amount), 0) AS total_amount
FROM orders o
JOIN payment_methods pm ON pm.id = o.payment_method_id
WHERE o.status = 'DELIVERED'
  AND o.created_at >= $1 AND o.created_at < $2
GROUP BY pm.code, pm.name
ORDER BY total_amount DESC`

type GetPaymentMethodSummaryParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

type GetPaymentMethodSummaryRow struct {
	MethodCode  string
	MethodName  string
	OrderCount  int64
	TotalAmount pgtype.Numeric
}

func (q *Queries) GetPaymentMethodSummary(ctx context.Context, arg GetPaymentMethodSummaryParams) ([]GetPaymentMethodSummaryRow, error) {
	rows, err := q.db.Query(ctx, getPaymentMethodSummarySQL, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GetPaymentMethodSummaryRow
	for rows.Next() {
		var r GetPaymentMethodSummaryRow
		if err := rows.Scan(&r.MethodCode, &r.MethodName, &r.OrderCount, &r.TotalAmount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const getHourlySalesSQL = `
SELECT EXTRACT(HOUR FROM created_at)::int AS hour,
       COUNT(*) AS order_count,
       COALESCE(SUM(total_amount), 0) AS total_revenue
FROM orders
WHERE status = 'DELIVERED'
  AND created_at >= $1 AND created_at < $2
GROUP BY hour
ORDER BY hour`

type GetHourlySalesParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

type GetHourlySalesRow struct {
	Hour         int32
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetHourlySales(ctx context.Context, arg GetHourlySalesParams) ([]GetHourlySalesRow, error) {
	rows, err := q.db.Query(ctx, getHourlySalesSQL, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GetHourlySalesRow
	for rows.Next() {
		var r GetHourlySalesRow
		if err := rows.Scan(&r.Hour, &r.OrderCount, &r.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
