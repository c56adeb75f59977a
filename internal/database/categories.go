package database

import (
	"context"

	"github.com/google/uuid"
)

const categoryColumns = `id, name, display_order, is_active, created_at`

func scanCategory(row interface{ Scan(...interface{}) error }) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.DisplayOrder, &c.IsActive, &c.CreatedAt)
	return c, err
}

const createCategorySQL = `
INSERT INTO categories (name, display_order)
VALUES ($1, $2)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	Name         string
	DisplayOrder int32
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, createCategorySQL, arg.Name, arg.DisplayOrder))
}

const getCategorySQL = `
SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, getCategorySQL, id))
}

const listCategoriesSQL = `
SELECT ` + categoryColumns + ` FROM categories WHERE is_active ORDER BY display_order, name`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cats []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

const updateCategorySQL = `
UPDATE categories SET name = $2, display_order = $3 WHERE id = $1
RETURNING ` + categoryColumns

type UpdateCategoryParams struct {
	ID           uuid.UUID
	Name         string
	DisplayOrder int32
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, updateCategorySQL, arg.ID, arg.Name, arg.DisplayOrder))
}

const deactivateCategorySQL = `
UPDATE categories SET is_active = false WHERE id = $1
RETURNING ` + categoryColumns

// DeactivateCategory soft-deletes a category so existing menu items keep
// their foreign key.
func (q *Queries) DeactivateCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, deactivateCategorySQL, id))
}
