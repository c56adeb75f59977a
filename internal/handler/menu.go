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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/api/internal/database"
	"github.com/tavola-pos/api/internal/enum"
	"github.com/tavola-pos/api/internal/service"
	"github.com/tavola-pos/api/internal/ws"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	DeactivateCategory(ctx context.Context, id uuid.UUID) (database.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (database.Category, error)

	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	ListLowStockMenuItems(ctx context.Context) ([]database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
}

// StockServicer defines the service methods for manual stock movements.
// Satisfied by *service.StockService.
type StockServicer interface {
	Adjust(ctx context.Context, menuItemID uuid.UUID, action enum.StockAction, quantity int32) (database.MenuItem, error)
}

// MenuHandler handles category and menu item endpoints.
type MenuHandler struct {
	store MenuStore
	stock StockServicer
	hub   Broadcaster
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, stock StockServicer, hub Broadcaster) *MenuHandler {
	return &MenuHandler{store: store, stock: stock, hub: hub}
}

// RegisterCategoryRoutes registers category CRUD, mounted under /categories.
func (h *MenuHandler) RegisterCategoryRoutes(r chi.Router) {
	r.Get("/", h.ListCategories)
	r.Post("/", h.CreateCategory)
	r.Put("/{id}", h.UpdateCategory)
	r.Delete("/{id}", h.DeleteCategory)
}

// RegisterMenuItemRoutes registers menu item CRUD and stock endpoints,
// mounted under /menu-items.
func (h *MenuHandler) RegisterMenuItemRoutes(r chi.Router) {
	r.Get("/", h.ListMenuItems)
	r.Post("/", h.CreateMenuItem)
	r.Get("/low-stock", h.ListLowStock)
	r.Get("/{id}", h.GetMenuItem)
	r.Put("/{id}", h.UpdateMenuItem)
	r.Delete("/{id}", h.DeleteMenuItem)
	r.Post("/{id}/stock", h.AdjustStock)
}

// --- Request / Response types ---

type categoryRequest struct {
	Name         string `json:"name"`
	DisplayOrder int32  `json:"display_order"`
}

type categoryResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int32     `json:"display_order"`
	IsActive     bool      `json:"is_active"`
}

type menuItemRequest struct {
	CategoryID    string `json:"category_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	IsAvailable   *bool  `json:"is_available"`
	HasStock      bool   `json:"has_stock"`
	StockQuantity *int32 `json:"stock_quantity"`
	MinStockAlert *int32 `json:"min_stock_alert"`
}

type menuItemResponse struct {
	ID            uuid.UUID `json:"id"`
	CategoryID    uuid.UUID `json:"category_id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	Price         string    `json:"price"`
	IsAvailable   bool      `json:"is_available"`
	HasStock      bool      `json:"has_stock"`
	StockQuantity *int32    `json:"stock_quantity"`
	MinStockAlert *int32    `json:"min_stock_alert"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type adjustStockRequest struct {
	Action   string `json:"action"`
	Quantity int32  `json:"quantity"`
}

// --- Category handlers ---

// ListCategories handles GET /categories.
func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		resp[i] = toCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCategory handles POST /categories.
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	cat, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "category name already exists"})
			return
		}
		log.Printf("ERROR: create category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(cat))
}

// UpdateCategory handles PUT /categories/{id}.
func (h *MenuHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	cat, err := h.store.UpdateCategory(r.Context(), database.UpdateCategoryParams{
		ID:           id,
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
			return
		}
		log.Printf("ERROR: update category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(cat))
}

// DeleteCategory handles DELETE /categories/{id} (soft delete).
func (h *MenuHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	if _, err := h.store.DeactivateCategory(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
			return
		}
		log.Printf("ERROR: delete category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Menu item handlers ---

// ListMenuItems handles GET /menu-items. Supports ?category_id= and
// ?available=true filters.
func (h *MenuHandler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	params := database.ListMenuItemsParams{}

	if s := r.URL.Query().Get("category_id"); s != "" {
		cid, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		params.CategoryID = pgtype.UUID{Bytes: cid, Valid: true}
	}
	if r.URL.Query().Get("available") == "true" {
		params.AvailableOnly = true
	}

	items, err := h.store.ListMenuItems(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, item := range items {
		resp[i] = toMenuItemResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListLowStock handles GET /menu-items/low-stock.
func (h *MenuHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListLowStockMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list low stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, item := range items {
		resp[i] = toMenuItemResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMenuItem handles GET /menu-items/{id}.
func (h *MenuHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// CreateMenuItem handles POST /menu-items.
func (h *MenuHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, errMsg := h.menuItemParams(r.Context(), req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), *params)
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// UpdateMenuItem handles PUT /menu-items/{id}.
func (h *MenuHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, errMsg := h.menuItemParams(r.Context(), req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:            id,
		CategoryID:    params.CategoryID,
		Name:          params.Name,
		Description:   params.Description,
		Price:         params.Price,
		IsAvailable:   params.IsAvailable,
		HasStock:      params.HasStock,
		StockQuantity: params.StockQuantity,
		MinStockAlert: params.MinStockAlert,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// DeleteMenuItem handles DELETE /menu-items/{id} (soft delete).
func (h *MenuHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	if _, err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdjustStock handles POST /menu-items/{id}/stock.
func (h *MenuHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.stock.Adjust(r.Context(), id, enum.StockAction(req.Action), req.Quantity)
	if err != nil {
		var stockErr *service.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":        stockErr.Error(),
				"menu_item_id": stockErr.MenuItemID,
				"available":    stockErr.Available,
				"requested":    stockErr.Requested,
			})
		case errors.Is(err, service.ErrMenuItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInvalidStockAction),
			errors.Is(err, service.ErrStockNotTracked):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: adjust stock: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := toMenuItemResponse(item)
	if item.MinStockAlert.Valid && item.StockQuantity.Valid && item.StockQuantity.Int32 <= item.MinStockAlert.Int32 {
		h.hub.BroadcastJSON(ws.EventStockLow, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// menuItemParams validates a create/update request and builds the query
// params. Returns a non-empty message on validation failure.
func (h *MenuHandler) menuItemParams(ctx context.Context, req menuItemRequest) (*database.CreateMenuItemParams, string) {
	if req.Name == "" {
		return nil, "name is required"
	}
	if req.CategoryID == "" {
		return nil, "category_id is required"
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, "invalid category_id"
	}
	if _, err := h.store.GetCategory(ctx, categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "category not found"
		}
		return nil, "invalid category_id"
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return nil, "invalid price"
	}
	var priceNum pgtype.Numeric
	if err := priceNum.Scan(price.StringFixed(2)); err != nil {
		return nil, "invalid price"
	}

	params := &database.CreateMenuItemParams{
		CategoryID:  categoryID,
		Name:        req.Name,
		Price:       priceNum,
		IsAvailable: true,
		HasStock:    req.HasStock,
	}
	if req.IsAvailable != nil {
		params.IsAvailable = *req.IsAvailable
	}
	if req.Description != "" {
		params.Description = pgtype.Text{String: req.Description, Valid: true}
	}
	if req.HasStock {
		qty := int32(0)
		if req.StockQuantity != nil {
			if *req.StockQuantity < 0 {
				return nil, "stock_quantity must be >= 0"
			}
			qty = *req.StockQuantity
		}
		params.StockQuantity = pgtype.Int4{Int32: qty, Valid: true}
		if req.MinStockAlert != nil {
			if *req.MinStockAlert < 0 {
				return nil, "min_stock_alert must be >= 0"
			}
			params.MinStockAlert = pgtype.Int4{Int32: *req.MinStockAlert, Valid: true}
		}
	}
	return params, ""
}

func toCategoryResponse(c database.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		DisplayOrder: c.DisplayOrder,
		IsActive:     c.IsActive,
	}
}

func toMenuItemResponse(item database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:          item.ID,
		CategoryID:  item.CategoryID,
		Name:        item.Name,
		Price:       numericToString(item.Price),
		IsAvailable: item.IsAvailable,
		HasStock:    item.HasStock,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if item.Description.Valid {
		resp.Description = &item.Description.String
	}
	if item.StockQuantity.Valid {
		v := item.StockQuantity.Int32
		resp.StockQuantity = &v
	}
	if item.MinStockAlert.Valid {
		v := item.MinStockAlert.Int32
		resp.MinStockAlert = &v
	}
	return resp
}
