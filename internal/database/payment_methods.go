package database

import (
	"context"

	"github.com/google/uuid"
)

const paymentMethodColumns = `id, code, name, is_active, created_at`

func scanPaymentMethod(row interface{ Scan(...interface{}) error }) (PaymentMethod, error) {
	var p PaymentMethod
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.IsActive, &p.CreatedAt)
	return p, err
}

const createPaymentMethodSQL = `
INSERT INTO payment_methods (code, name) VALUES ($1, $2)
RETURNING ` + paymentMethodColumns

type CreatePaymentMethodParams struct {
	Code string
	Name string
}

func (q *Queries) CreatePaymentMethod(ctx context.Context, arg CreatePaymentMethodParams) (PaymentMethod, error) {
	return scanPaymentMethod(q.db.QueryRow(ctx, createPaymentMethodSQL, arg.Code, arg.Name))
}

const getPaymentMethodSQL = `
SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE id = $1`

func (q *Queries) GetPaymentMethod(ctx context.Context, id uuid.UUID) (PaymentMethod, error) {
	return scanPaymentMethod(q.db.QueryRow(ctx, getPaymentMethodSQL, id))
}

const listPaymentMethodsSQL = `
SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE is_active ORDER BY name`

func (q *Queries) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	rows, err := q.db.Query(ctx, listPaymentMethodsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var methods []PaymentMethod
	for rows.Next() {
		p, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, p)
	}
	return methods, rows.Err()
}

const setPaymentMethodActiveSQL = `
UPDATE payment_methods SET is_active = $2 WHERE id = $1
RETURNING ` + paymentMethodColumns

type SetPaymentMethodActiveParams struct {
	ID       uuid.UUID
	IsActive bool
}

func (q *Queries) SetPaymentMethodActive(ctx context.Context, arg SetPaymentMethodActiveParams) (PaymentMethod, error) {
	return scanPaymentMethod(q.db.QueryRow(ctx, setPaymentMethodActiveSQL, arg.ID, arg.IsActive))
}
