package database

import (
	"context"

	"github.com/google/uuid"
)

const areaColumns = `id, name, display_order, created_at`

func scanArea(row interface{ Scan(...interface{}) error }) (Area, error) {
	var a Area
	err := row.Scan(&a.ID, &a.Name, &a.DisplayOrder, &a.CreatedAt)
	return a, err
}

const createAreaSQL = `
INSERT INTO areas (name, display_order) VALUES ($1, $2)
RETURNING ` + areaColumns

type CreateAreaParams struct {
	Name         string
	DisplayOrder int32
}

func (q *Queries) CreateArea(ctx context.Context, arg CreateAreaParams) (Area, error) {
	return scanArea(q.db.QueryRow(ctx, createAreaSQL, arg.Name, arg.DisplayOrder))
}

const getAreaSQL = `
SELECT ` + areaColumns + ` FROM areas WHERE id = $1`

func (q *Queries) GetArea(ctx context.Context, id uuid.UUID) (Area, error) {
	return scanArea(q.db.QueryRow(ctx, getAreaSQL, id))
}

const listAreasSQL = `
SELECT ` + areaColumns + ` FROM areas ORDER BY display_order, name`

func (q *Queries) ListAreas(ctx context.Context) ([]Area, error) {
	rows, err := q.db.Query(ctx, listAreasSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var areas []Area
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

const updateAreaSQL = `
UPDATE areas SET name = $2, display_order = $3 WHERE id = $1
RETURNING ` + areaColumns

type UpdateAreaParams struct {
	ID           uuid.UUID
	Name         string
	DisplayOrder int32
}

func (q *Queries) UpdateArea(ctx context.Context, arg UpdateAreaParams) (Area, error) {
	return scanArea(q.db.QueryRow(ctx, updateAreaSQL, arg.ID, arg.Name, arg.DisplayOrder))
}

const deleteAreaSQL = `
DELETE FROM areas WHERE id = $1`

// DeleteArea removes an area; tables in it cascade.
func (q *Queries) DeleteArea(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteAreaSQL, id)
	return err
}

// --- Tables ---

const tableColumns = `id, area_id, label, seats, created_at`

func scanTable(row interface{ Scan(...interface{}) error }) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.AreaID, &t.Label, &t.Seats, &t.CreatedAt)
	return t, err
}

const createTableSQL = `
INSERT INTO tables (area_id, label, seats) VALUES ($1, $2, $3)
RETURNING ` + tableColumns

type CreateTableParams struct {
	AreaID uuid.UUID
	Label  string
	Seats  int32
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, createTableSQL, arg.AreaID, arg.Label, arg.Seats))
}

const getTableSQL = `
SELECT ` + tableColumns + ` FROM tables WHERE id = $1`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTableSQL, id))
}

const listTablesByAreaSQL = `
SELECT ` + tableColumns + ` FROM tables WHERE area_id = $1 ORDER BY label`

func (q *Queries) ListTablesByArea(ctx context.Context, areaID uuid.UUID) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTablesByAreaSQL, areaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

const deleteTableSQL = `
DELETE FROM tables WHERE id = $1`

func (q *Queries) DeleteTable(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteTableSQL, id)
	return err
}

const listOccupiedTableIDsSQL = `
SELECT DISTINCT table_id FROM orders
WHERE table_id IS NOT NULL
  AND status NOT IN ('DELIVERED', 'CANCELLED')`

// ListOccupiedTableIDs returns the tables referenced by a non-terminal
// order. Occupancy is derived at read time, never stored.
func (q *Queries) ListOccupiedTableIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listOccupiedTableIDsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
