package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavola-pos/api/internal/database"
	"github.com/tavola-pos/api/internal/service"
	"github.com/tavola-pos/api/internal/ws"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.OrderService.
type PaymentServicer interface {
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, req service.ConfirmPaymentRequest) (database.Order, error)
}

// PaymentStore defines the database methods needed by payment handlers.
type PaymentStore interface {
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetPaymentMethod(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context) ([]database.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, arg database.CreatePaymentMethodParams) (database.PaymentMethod, error)
	SetPaymentMethodActive(ctx context.Context, arg database.SetPaymentMethodActiveParams) (database.PaymentMethod, error)
}

// PaymentHandler handles payment confirmation and payment method CRUD.
type PaymentHandler struct {
	svc   PaymentServicer
	store PaymentStore
	hub   Broadcaster
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, store PaymentStore, hub Broadcaster) *PaymentHandler {
	return &PaymentHandler{svc: svc, store: store, hub: hub}
}

// RegisterOrderRoutes registers the payment confirmation endpoint, mounted
// under /orders.
func (h *PaymentHandler) RegisterOrderRoutes(r chi.Router) {
	r.Post("/{id}/payment", h.Confirm)
}

// RegisterMethodRoutes registers payment method CRUD, mounted under
// /payment-methods.
func (h *PaymentHandler) RegisterMethodRoutes(r chi.Router) {
	r.Get("/", h.ListMethods)
	r.Post("/", h.CreateMethod)
	r.Patch("/{id}/active", h.SetMethodActive)
}

// --- Request / Response types ---

type confirmPaymentRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
	AmountReceived  string `json:"amount_received"`
	GenerateReceipt bool   `json:"generate_receipt"`
}

// receiptResponse is an immutable snapshot of the closed order, suitable
// for printing.
type receiptResponse struct {
	OrderNumber    string            `json:"order_number"`
	PaidAt         time.Time         `json:"paid_at"`
	PaymentMethod  string            `json:"payment_method"`
	Lines          []receiptLine     `json:"lines"`
	TotalAmount    string            `json:"total_amount"`
	AmountReceived string            `json:"amount_received"`
	ChangeAmount   string            `json:"change_amount"`
}

type receiptLine struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
}

type confirmPaymentResponse struct {
	Order   orderResponse    `json:"order"`
	Receipt *receiptResponse `json:"receipt,omitempty"`
}

type paymentMethodResponse struct {
	ID       uuid.UUID `json:"id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	IsActive bool      `json:"is_active"`
}

type createPaymentMethodRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type setMethodActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// --- Handlers ---

// Confirm handles POST /orders/{id}/payment.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.PaymentMethodID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_method_id is required"})
		return
	}

	order, err := h.svc.ConfirmPayment(r.Context(), orderID, service.ConfirmPaymentRequest{
		PaymentMethodID: req.PaymentMethodID,
		AmountReceived:  req.AmountReceived,
	})
	if err != nil {
		writeOrderError(w, err, "confirm payment")
		return
	}

	resp := confirmPaymentResponse{Order: dbOrderToResponse(order)}

	if req.GenerateReceipt {
		receipt, err := h.buildReceipt(r.Context(), order)
		if err != nil {
			// The payment went through; a missing receipt is not worth a 500.
			log.Printf("ERROR: build receipt for order %s: %v", order.ID, err)
		} else {
			resp.Receipt = receipt
		}
	}

	h.hub.BroadcastJSON(ws.EventOrderPaid, resp.Order)
	writeJSON(w, http.StatusOK, resp)
}

func (h *PaymentHandler) buildReceipt(ctx context.Context, order database.Order) (*receiptResponse, error) {
	items, err := h.store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	methodName := ""
	if order.PaymentMethodID.Valid {
		method, err := h.store.GetPaymentMethod(ctx, uuid.UUID(order.PaymentMethodID.Bytes))
		if err != nil {
			return nil, err
		}
		methodName = method.Name
	}

	lines := make([]receiptLine, len(items))
	for i, item := range items {
		lines[i] = receiptLine{
			MenuItemID: item.MenuItemID.String(),
			Quantity:   item.Quantity,
			UnitPrice:  numericToString(item.UnitPrice),
			TotalPrice: numericToString(item.TotalPrice),
		}
	}

	return &receiptResponse{
		OrderNumber:    order.OrderNumber,
		PaidAt:         order.UpdatedAt,
		PaymentMethod:  methodName,
		Lines:          lines,
		TotalAmount:    numericToString(order.TotalAmount),
		AmountReceived: numericToString(order.AmountReceived),
		ChangeAmount:   numericToString(order.ChangeAmount),
	}, nil
}

// ListMethods handles GET /payment-methods.
func (h *PaymentHandler) ListMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.store.ListPaymentMethods(r.Context())
	if err != nil {
		log.Printf("ERROR: list payment methods: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentMethodResponse, len(methods))
	for i, m := range methods {
		resp[i] = toPaymentMethodResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateMethod handles POST /payment-methods.
func (h *PaymentHandler) CreateMethod(w http.ResponseWriter, r *http.Request) {
	var req createPaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Code == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code and name are required"})
		return
	}

	method, err := h.store.CreatePaymentMethod(r.Context(), database.CreatePaymentMethodParams{
		Code: req.Code,
		Name: req.Name,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "payment method code already exists"})
			return
		}
		log.Printf("ERROR: create payment method: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentMethodResponse(method))
}

// SetMethodActive handles PATCH /payment-methods/{id}/active.
func (h *PaymentHandler) SetMethodActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment method ID"})
		return
	}

	var req setMethodActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	method, err := h.store.SetPaymentMethodActive(r.Context(), database.SetPaymentMethodActiveParams{
		ID:       id,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "payment method not found"})
			return
		}
		log.Printf("ERROR: set payment method active: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toPaymentMethodResponse(method))
}

func toPaymentMethodResponse(m database.PaymentMethod) paymentMethodResponse {
	return paymentMethodResponse{
		ID:       m.ID,
		Code:     m.Code,
		Name:     m.Name,
		IsActive: m.IsActive,
	}
}
