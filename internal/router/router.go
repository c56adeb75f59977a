package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tavola-pos/api/internal/config"
	"github.com/tavola-pos/api/internal/database"
	"github.com/tavola-pos/api/internal/enum"
	"github.com/tavola-pos/api/internal/handler"
	mw "github.com/tavola-pos/api/internal/middleware"
	"github.com/tavola-pos/api/internal/service"
	"github.com/tavola-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Capability checks sit on the route groups; the service layer assumes
// callers are already authorized.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // floor/kitchen dev server
			"https://pos.tavola.example.com",
			"https://admin.tavola.example.com",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	newStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newStore)
	stockService := service.NewStockService(pool, newStore)

	orderHandler := handler.NewOrderHandler(orderService, queries, hub)
	paymentHandler := handler.NewPaymentHandler(orderService, queries, hub)
	menuHandler := handler.NewMenuHandler(queries, stockService, hub)
	userHandler := handler.NewUserHandler(queries)
	floorHandler := handler.NewFloorHandler(queries)
	reportHandler := handler.NewReportHandler(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Order lifecycle. Reads and writes are open to order takers;
		// kitchen screens share the same routes and flip statuses via
		// PATCH, gated separately below.
		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapTakeOrders))
				r.Post("/", orderHandler.Create)
				r.Get("/", orderHandler.List)
				r.Get("/{id}", orderHandler.Get)
				r.Put("/{id}/items", orderHandler.ReplaceItems)
				r.Delete("/{id}/items/{itemID}", orderHandler.RemoveItem)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapKitchenProgress))
				r.Patch("/{id}/status", orderHandler.UpdateStatus)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapCancelOrders))
				r.Delete("/{id}", orderHandler.Cancel)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapConfirmPayments))
				paymentHandler.RegisterOrderRoutes(r)
			})
		})

		// Back office
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCapability(enum.CapManageUsers))
			r.Route("/users", userHandler.RegisterRoutes)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCapability(enum.CapManageMenu))
			r.Route("/categories", menuHandler.RegisterCategoryRoutes)
			r.Route("/payment-methods", paymentHandler.RegisterMethodRoutes)
		})

		// Menu items split stock movements from catalog edits so a manager
		// can delegate restocking without opening up pricing.
		r.Route("/menu-items", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapManageMenu))
				r.Get("/", menuHandler.ListMenuItems)
				r.Post("/", menuHandler.CreateMenuItem)
				r.Get("/{id}", menuHandler.GetMenuItem)
				r.Put("/{id}", menuHandler.UpdateMenuItem)
				r.Delete("/{id}", menuHandler.DeleteMenuItem)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapManageStock))
				r.Get("/low-stock", menuHandler.ListLowStock)
				r.Post("/{id}/stock", menuHandler.AdjustStock)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCapability(enum.CapManageFloor))
			r.Route("/areas", floorHandler.RegisterRoutes)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCapability(enum.CapViewReports))
			r.Route("/reports", reportHandler.RegisterRoutes)
		})
	})

	return r
}
