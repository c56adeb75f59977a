package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/api/internal/database"
	"github.com/tavola-pos/api/internal/enum"
	"github.com/tavola-pos/api/internal/middleware"
	"github.com/tavola-pos/api/internal/service"
	"github.com/tavola-pos/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, target enum.OrderStatus, reason string) (database.Order, error)
	ReplaceItems(ctx context.Context, orderID uuid.UUID, items []service.OrderItemInput) (*service.OrderResult, error)
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*service.OrderResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// Broadcaster pushes order events to connected floor and kitchen screens.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastJSON(eventType string, payload interface{})
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Cancel)
	r.Put("/{id}/items", h.ReplaceItems)
	r.Delete("/{id}/items/{itemID}", h.RemoveItem)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName    string                   `json:"customer_name"`
	IsDelivery      bool                     `json:"is_delivery"`
	TableID         string                   `json:"table_id"`
	Notes           string                   `json:"notes"`
	PaymentMethodID string                   `json:"payment_method_id"`
	AmountReceived  string                   `json:"amount_received"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	Notes      string `json:"notes"`
}

type orderResponse struct {
	ID                 uuid.UUID           `json:"id"`
	OrderNumber        string              `json:"order_number"`
	CustomerName       *string             `json:"customer_name"`
	IsDelivery         bool                `json:"is_delivery"`
	TableID            *string             `json:"table_id"`
	Status             string              `json:"status"`
	TotalAmount        string              `json:"total_amount"`
	AmountReceived     *string             `json:"amount_received"`
	ChangeAmount       *string             `json:"change_amount"`
	PaymentMethodID    *string             `json:"payment_method_id"`
	IsPaid             bool                `json:"is_paid"`
	IsCompleted        bool                `json:"is_completed"`
	CancellationReason *string             `json:"cancellation_reason"`
	Notes              *string             `json:"notes"`
	CreatedBy          uuid.UUID           `json:"created_by"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	Items              []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int32     `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
	TotalPrice string    `json:"total_price"`
	Notes      *string   `json:"notes"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type replaceItemsRequest struct {
	Items []createOrderItemRequest `json:"items"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	for i, item := range req.Items {
		if item.MenuItemID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "menu_item_id is required"),
			})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "quantity must be > 0"),
			})
			return
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CreatedBy:       claims.UserID,
		CustomerName:    req.CustomerName,
		IsDelivery:      req.IsDelivery,
		TableID:         req.TableID,
		Notes:           req.Notes,
		PaymentMethodID: req.PaymentMethodID,
		AmountReceived:  req.AmountReceived,
		Items:           toServiceItems(req.Items),
	})
	if err != nil {
		writeOrderError(w, err, "create order")
		return
	}

	resp := toOrderResponse(result)
	h.hub.BroadcastJSON(ws.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		if !enum.OrderStatus(s).Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("table_id"); s != "" {
		tid, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		params.TableID = pgtype.UUID{Bytes: tid, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		// end_date is inclusive; the query bound is exclusive.
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status.
// CANCELLED is rejected here: cancellation lives on DELETE /orders/{id},
// which sits behind its own permission.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}
	newStatus := enum.OrderStatus(req.Status)
	if !newStatus.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}
	if newStatus == enum.OrderStatusCancelled {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "use DELETE /orders/{id} to cancel an order"})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), orderID, newStatus, req.Reason)
	if err != nil {
		writeOrderError(w, err, "update order status")
		return
	}

	resp := dbOrderToResponse(updated)
	h.hub.BroadcastJSON(ws.EventOrderUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles DELETE /orders/{id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req cancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	cancelled, err := h.svc.UpdateStatus(r.Context(), orderID, enum.OrderStatusCancelled, req.Reason)
	if err != nil {
		writeOrderError(w, err, "cancel order")
		return
	}

	resp := dbOrderToResponse(cancelled)
	h.hub.BroadcastJSON(ws.EventOrderCancelled, resp)
	writeJSON(w, http.StatusOK, resp)
}

// ReplaceItems handles PUT /orders/{id}/items.
func (h *OrderHandler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req replaceItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.ReplaceItems(r.Context(), orderID, toServiceItems(req.Items))
	if err != nil {
		writeOrderError(w, err, "replace order items")
		return
	}

	resp := toOrderResponse(result)
	h.hub.BroadcastJSON(ws.EventOrderUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// RemoveItem handles DELETE /orders/{id}/items/{itemID}.
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	result, err := h.svc.RemoveItem(r.Context(), orderID, itemID)
	if err != nil {
		writeOrderError(w, err, "remove order item")
		return
	}

	resp := toOrderResponse(result)
	h.hub.BroadcastJSON(ws.EventOrderUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func toServiceItems(items []createOrderItemRequest) []service.OrderItemInput {
	out := make([]service.OrderItemInput, len(items))
	for i, item := range items {
		out[i] = service.OrderItemInput{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
		}
	}
	return out
}

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

// writeOrderError maps service errors to HTTP status codes. Unknown errors
// are logged and become a generic 500.
func writeOrderError(w http.ResponseWriter, err error, op string) {
	var stockErr *service.InsufficientStockError
	var transErr *service.InvalidTransitionError
	var payErr *service.InsufficientPaymentError

	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":        stockErr.Error(),
			"menu_item_id": stockErr.MenuItemID,
			"available":    stockErr.Available,
			"requested":    stockErr.Requested,
		})
	case errors.As(err, &transErr):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": transErr.Error(),
			"from":  string(transErr.From),
			"to":    string(transErr.To),
		})
	case errors.As(err, &payErr):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":   payErr.Error(),
			"missing": payErr.Missing.StringFixed(2),
		})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrOrderItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderClosed),
		errors.Is(err, service.ErrLastItemRemoval),
		errors.Is(err, service.ErrOrderNotPaid),
		errors.Is(err, service.ErrExactAmountRequired):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case isOrderValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// isOrderValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrInvalidTableID) ||
		errors.Is(err, service.ErrInvalidPaymentMethodID) ||
		errors.Is(err, service.ErrInvalidAmountReceived) ||
		errors.Is(err, service.ErrMenuItemNotFound) ||
		errors.Is(err, service.ErrMenuItemUnavailable) ||
		errors.Is(err, service.ErrTableNotFound) ||
		errors.Is(err, service.ErrMissingCancellationReason) ||
		errors.Is(err, service.ErrPaymentMethodNotFound) ||
		errors.Is(err, service.ErrPaymentMethodInactive) ||
		errors.Is(err, service.ErrAmountReceivedRequired)
}

func toOrderResponse(result *service.OrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}
	return resp
}

// dbOrderToResponse converts a database.Order to an orderResponse.
func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		IsDelivery:  o.IsDelivery,
		Status:      string(o.Status),
		TotalAmount: numericToString(o.TotalAmount),
		IsPaid:      o.IsPaid,
		IsCompleted: o.IsCompleted,
		CreatedBy:   o.CreatedBy,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}

	if o.CustomerName.Valid {
		resp.CustomerName = &o.CustomerName.String
	}
	if o.TableID.Valid {
		s := uuid.UUID(o.TableID.Bytes).String()
		resp.TableID = &s
	}
	if o.AmountReceived.Valid {
		s := numericToString(o.AmountReceived)
		resp.AmountReceived = &s
	}
	if o.ChangeAmount.Valid {
		s := numericToString(o.ChangeAmount)
		resp.ChangeAmount = &s
	}
	if o.PaymentMethodID.Valid {
		s := uuid.UUID(o.PaymentMethodID.Bytes).String()
		resp.PaymentMethodID = &s
	}
	if o.CancellationReason.Valid {
		resp.CancellationReason = &o.CancellationReason.String
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}

	return resp
}

func dbOrderItemToResponse(item database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:         item.ID,
		MenuItemID: item.MenuItemID,
		Quantity:   item.Quantity,
		UnitPrice:  numericToString(item.UnitPrice),
		TotalPrice: numericToString(item.TotalPrice),
	}
	if item.Notes.Valid {
		resp.Notes = &item.Notes.String
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
