package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavola-pos/api/internal/enum"
)

type User struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Pin            pgtype.Text
	Role           enum.Role
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Category struct {
	ID           uuid.UUID
	Name         string
	DisplayOrder int32
	IsActive     bool
	CreatedAt    time.Time
}

type MenuItem struct {
	ID            uuid.UUID
	CategoryID    uuid.UUID
	Name          string
	Description   pgtype.Text
	Price         pgtype.Numeric
	IsAvailable   bool
	HasStock      bool
	StockQuantity pgtype.Int4
	MinStockAlert pgtype.Int4
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Area struct {
	ID           uuid.UUID
	Name         string
	DisplayOrder int32
	CreatedAt    time.Time
}

type Table struct {
	ID        uuid.UUID
	AreaID    uuid.UUID
	Label     string
	Seats     int32
	CreatedAt time.Time
}

type PaymentMethod struct {
	ID        uuid.UUID
	Code      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

type Order struct {
	ID                 uuid.UUID
	OrderNumber        string
	OrderSeq           int32
	OrderDate          time.Time
	CustomerName       pgtype.Text
	IsDelivery         bool
	TableID            pgtype.UUID
	Status             enum.OrderStatus
	TotalAmount        pgtype.Numeric
	PaymentMethodID    pgtype.UUID
	AmountReceived     pgtype.Numeric
	ChangeAmount       pgtype.Numeric
	IsPaid             bool
	IsCompleted        bool
	CancellationReason pgtype.Text
	Notes              pgtype.Text
	CreatedBy          uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
	Notes      pgtype.Text
	CreatedAt  time.Time
}
