package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavola-pos/api/internal/database"
)

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	GetItemSales(ctx context.Context, arg database.GetItemSalesParams) ([]database.GetItemSalesRow, error)
	GetPaymentMethodSummary(ctx context.Context, arg database.GetPaymentMethodSummaryParams) ([]database.GetPaymentMethodSummaryRow, error)
	GetHourlySales(ctx context.Context, arg database.GetHourlySalesParams) ([]database.GetHourlySalesRow, error)
}

// ReportHandler handles sales report endpoints.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers report endpoints, mounted under /reports.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/item-sales", h.ItemSales)
	r.Get("/payment-summary", h.PaymentSummary)
	r.Get("/hourly-sales", h.HourlySales)
}

// --- Response types ---

type dailySalesRow struct {
	Date         string `json:"date"`
	OrderCount   int64  `json:"order_count"`
	TotalRevenue string `json:"total_revenue"`
}

type itemSalesRow struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	MenuItemName string    `json:"menu_item_name"`
	QuantitySold int64     `json:"quantity_sold"`
	TotalRevenue string    `json:"total_revenue"`
}

type paymentSummaryRow struct {
	MethodCode  string `json:"method_code"`
	MethodName  string `json:"method_name"`
	OrderCount  int64  `json:"order_count"`
	TotalAmount string `json:"total_amount"`
}

type hourlySalesRow struct {
	Hour         int32  `json:"hour"`
	OrderCount   int64  `json:"order_count"`
	TotalRevenue string `json:"total_revenue"`
}

// --- Handlers ---

// DailySales handles GET /reports/daily-sales?start_date=&end_date=.
func (h *ReportHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: daily sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailySalesRow, len(rows))
	for i, row := range rows {
		resp[i] = dailySalesRow{
			Date:         row.SaleDate.Time.Format("2006-01-02"),
			OrderCount:   row.OrderCount,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ItemSales handles GET /reports/item-sales?start_date=&end_date=&limit=.
func (h *ReportHandler) ItemSales(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	rows, err := h.store.GetItemSales(r.Context(), database.GetItemSalesParams{
		StartDate: start,
		EndDate:   end,
		Limit:     int32(limit),
	})
	if err != nil {
		log.Printf("ERROR: item sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]itemSalesRow, len(rows))
	for i, row := range rows {
		resp[i] = itemSalesRow{
			MenuItemID:   row.MenuItemID,
			MenuItemName: row.MenuItemName,
			QuantitySold: row.QuantitySold,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PaymentSummary handles GET /reports/payment-summary?start_date=&end_date=.
func (h *ReportHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetPaymentMethodSummary(r.Context(), database.GetPaymentMethodSummaryParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: payment summary report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentSummaryRow, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryRow{
			MethodCode:  row.MethodCode,
			MethodName:  row.MethodName,
			OrderCount:  row.OrderCount,
			TotalAmount: numericToString(row.TotalAmount),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HourlySales handles GET /reports/hourly-sales?start_date=&end_date=.
func (h *ReportHandler) HourlySales(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetHourlySales(r.Context(), database.GetHourlySalesParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		log.Printf("ERROR: hourly sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]hourlySalesRow, len(rows))
	for i, row := range rows {
		resp[i] = hourlySalesRow{
			Hour:         row.Hour,
			OrderCount:   row.OrderCount,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// parseDateRange reads start_date and end_date query params (YYYY-MM-DD).
// Defaults to the last 7 days when absent; end_date is exclusive and bumped
// by one day so a single-day range covers the whole day.
func parseDateRange(w http.ResponseWriter, r *http.Request) (start, end pgtype.Timestamptz, ok bool) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	startTime := now.AddDate(0, 0, -7)
	endTime := now.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return start, end, false
		}
		startTime = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return start, end, false
		}
		endTime = t.AddDate(0, 0, 1)
	}
	if !endTime.After(startTime) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date must not be before start_date"})
		return start, end, false
	}

	return pgtype.Timestamptz{Time: startTime, Valid: true},
		pgtype.Timestamptz{Time: endTime, Valid: true}, true
}
