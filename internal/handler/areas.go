package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tavola-pos/api/internal/database"
)

// FloorStore defines the database methods needed by floor plan handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type FloorStore interface {
	CreateArea(ctx context.Context, arg database.CreateAreaParams) (database.Area, error)
	GetArea(ctx context.Context, id uuid.UUID) (database.Area, error)
	ListAreas(ctx context.Context) ([]database.Area, error)
	UpdateArea(ctx context.Context, arg database.UpdateAreaParams) (database.Area, error)
	DeleteArea(ctx context.Context, id uuid.UUID) error

	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	ListTablesByArea(ctx context.Context, areaID uuid.UUID) ([]database.Table, error)
	DeleteTable(ctx context.Context, id uuid.UUID) error
	ListOccupiedTableIDs(ctx context.Context) ([]uuid.UUID, error)
}

// FloorHandler handles dining area and table endpoints.
type FloorHandler struct {
	store FloorStore
}

// NewFloorHandler creates a new FloorHandler.
func NewFloorHandler(store FloorStore) *FloorHandler {
	return &FloorHandler{store: store}
}

// RegisterRoutes registers floor plan endpoints, mounted under /areas.
func (h *FloorHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListAreas)
	r.Post("/", h.CreateArea)
	r.Put("/{id}", h.UpdateArea)
	r.Delete("/{id}", h.DeleteArea)
	r.Get("/{id}/tables", h.ListTables)
	r.Post("/{id}/tables", h.CreateTable)
	r.Delete("/{id}/tables/{tableID}", h.DeleteTable)
}

// --- Request / Response types ---

type areaRequest struct {
	Name         string `json:"name"`
	DisplayOrder int32  `json:"display_order"`
}

type areaResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int32     `json:"display_order"`
}

type createTableRequest struct {
	Label string `json:"label"`
	Seats int32  `json:"seats"`
}

type tableResponse struct {
	ID       uuid.UUID `json:"id"`
	AreaID   uuid.UUID `json:"area_id"`
	Label    string    `json:"label"`
	Seats    int32     `json:"seats"`
	Occupied bool      `json:"occupied"`
}

// --- Handlers ---

// ListAreas handles GET /areas.
func (h *FloorHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.store.ListAreas(r.Context())
	if err != nil {
		log.Printf("ERROR: list areas: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]areaResponse, len(areas))
	for i, a := range areas {
		resp[i] = areaResponse{ID: a.ID, Name: a.Name, DisplayOrder: a.DisplayOrder}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateArea handles POST /areas.
func (h *FloorHandler) CreateArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	area, err := h.store.CreateArea(r.Context(), database.CreateAreaParams{
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "area name already exists"})
			return
		}
		log.Printf("ERROR: create area: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, areaResponse{ID: area.ID, Name: area.Name, DisplayOrder: area.DisplayOrder})
}

// UpdateArea handles PUT /areas/{id}.
func (h *FloorHandler) UpdateArea(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid area ID"})
		return
	}

	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	area, err := h.store.UpdateArea(r.Context(), database.UpdateAreaParams{
		ID:           id,
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "area not found"})
			return
		}
		log.Printf("ERROR: update area: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, areaResponse{ID: area.ID, Name: area.Name, DisplayOrder: area.DisplayOrder})
}

// DeleteArea handles DELETE /areas/{id}. Tables cascade at the DB level;
// historical orders keep their table reference as NULL.
func (h *FloorHandler) DeleteArea(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid area ID"})
		return
	}

	if err := h.store.DeleteArea(r.Context(), id); err != nil {
		log.Printf("ERROR: delete area: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTables handles GET /areas/{id}/tables. Each table carries an occupied
// flag derived from open orders.
func (h *FloorHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	areaID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid area ID"})
		return
	}

	tables, err := h.store.ListTablesByArea(r.Context(), areaID)
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	occupiedIDs, err := h.store.ListOccupiedTableIDs(r.Context())
	if err != nil {
		log.Printf("ERROR: list occupied tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	occupied := make(map[uuid.UUID]bool, len(occupiedIDs))
	for _, id := range occupiedIDs {
		occupied[id] = true
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = tableResponse{
			ID:       t.ID,
			AreaID:   t.AreaID,
			Label:    t.Label,
			Seats:    t.Seats,
			Occupied: occupied[t.ID],
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateTable handles POST /areas/{id}/tables.
func (h *FloorHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	areaID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid area ID"})
		return
	}

	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "label is required"})
		return
	}
	if req.Seats <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seats must be > 0"})
		return
	}

	if _, err := h.store.GetArea(r.Context(), areaID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "area not found"})
			return
		}
		log.Printf("ERROR: get area: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		AreaID: areaID,
		Label:  req.Label,
		Seats:  req.Seats,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table label already exists in this area"})
			return
		}
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, tableResponse{
		ID:     table.ID,
		AreaID: table.AreaID,
		Label:  table.Label,
		Seats:  table.Seats,
	})
}

// DeleteTable handles DELETE /areas/{id}/tables/{tableID}.
func (h *FloorHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "tableID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	if err := h.store.DeleteTable(r.Context(), tableID); err != nil {
		log.Printf("ERROR: delete table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
