// Package enum holds the closed domain enums shared by the database,
// service, and handler layers. Values mirror the CHECK constraints in
// the migrations; adding a value here requires a migration too.
package enum

// OrderStatus is the order lifecycle state machine.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusPreparing, OrderStatusReady,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// StockAction is the direction of a manual stock adjustment.
type StockAction string

const (
	StockActionConsume StockAction = "CONSUME"
	StockActionRestore StockAction = "RESTORE"
)

// Valid reports whether a is a known stock action.
func (a StockAction) Valid() bool {
	return a == StockActionConsume || a == StockActionRestore
}

// Role is the closed set of staff roles.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleCashier Role = "CASHIER"
	RoleWaiter  Role = "WAITER"
	RoleKitchen Role = "KITCHEN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCashier, RoleWaiter, RoleKitchen:
		return true
	}
	return false
}

// Capability is a permission checked at the API boundary. Handlers never
// compare role strings directly; they ask Can.
type Capability string

const (
	CapManageUsers     Capability = "manage_users"
	CapManageMenu      Capability = "manage_menu"
	CapManageFloor     Capability = "manage_floor"
	CapManageStock     Capability = "manage_stock"
	CapTakeOrders      Capability = "take_orders"
	CapKitchenProgress Capability = "kitchen_progress"
	CapConfirmPayments Capability = "confirm_payments"
	CapCancelOrders    Capability = "cancel_orders"
	CapViewReports     Capability = "view_reports"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleManager: {
		CapManageUsers:     true,
		CapManageMenu:      true,
		CapManageFloor:     true,
		CapManageStock:     true,
		CapTakeOrders:      true,
		CapKitchenProgress: true,
		CapConfirmPayments: true,
		CapCancelOrders:    true,
		CapViewReports:     true,
	},
	RoleCashier: {
		CapTakeOrders:      true,
		CapConfirmPayments: true,
		CapCancelOrders:    true,
	},
	RoleWaiter: {
		CapTakeOrders: true,
	},
	RoleKitchen: {
		CapKitchenProgress: true,
	},
}

// Can reports whether role r grants capability c. ADMIN implies everything.
func (r Role) Can(c Capability) bool {
	if r == RoleAdmin {
		return true
	}
	return roleCapabilities[r][c]
}
