package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavola-pos/api/internal/enum"
)

const userColumns = `id, full_name, email, hashed_password, pin, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.HashedPassword,
		&u.Pin,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const createUserSQL = `
INSERT INTO users (full_name, email, hashed_password, pin, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

type CreateUserParams struct {
	FullName       string
	Email          string
	HashedPassword string
	Pin            pgtype.Text
	Role           enum.Role
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUserSQL,
		arg.FullName, arg.Email, arg.HashedPassword, arg.Pin, arg.Role))
}

const getUserByEmailSQL = `
SELECT ` + userColumns + ` FROM users WHERE email = $1 AND is_active`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmailSQL, email))
}

const getUserByPinSQL = `
SELECT ` + userColumns + ` FROM users WHERE pin = $1 AND is_active`

func (q *Queries) GetUserByPin(ctx context.Context, pin string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByPinSQL, pin))
}

const getUserByIDSQL = `
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByIDSQL, id))
}

const listUsersSQL = `
SELECT ` + userColumns + ` FROM users ORDER BY full_name`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const updateUserSQL = `
UPDATE users
SET full_name = $2, email = $3, pin = $4, role = $5, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserParams struct {
	ID       uuid.UUID
	FullName string
	Email    string
	Pin      pgtype.Text
	Role     enum.Role
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUserSQL,
		arg.ID, arg.FullName, arg.Email, arg.Pin, arg.Role))
}

const updateUserPasswordSQL = `
UPDATE users SET hashed_password = $2, updated_at = now() WHERE id = $1
RETURNING ` + userColumns

type UpdateUserPasswordParams struct {
	ID             uuid.UUID
	HashedPassword string
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUserPasswordSQL, arg.ID, arg.HashedPassword))
}

const setUserActiveSQL = `
UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1
RETURNING ` + userColumns

type SetUserActiveParams struct {
	ID       uuid.UUID
	IsActive bool
}

func (q *Queries) SetUserActive(ctx context.Context, arg SetUserActiveParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, setUserActiveSQL, arg.ID, arg.IsActive))
}
