package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger       *inventory.MovementLedger
	Reservations *inventory.ReservationManager
	Monitor      *inventory.ReplenishmentMonitor
	ProductUC    *usecase.ProductUseCase
	Log          zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", UserMiddleware())
	h := NewInventoryHandler(deps.Ledger, deps.Reservations, deps.Monitor, deps.Log)

	inv := api.Group("/inventory")
	inv.Post("/movements", h.RegisterMovement)
	inv.Get("/low-stock", h.GetLowStock)
	inv.Get("/summary", h.GetSummary)
	inv.Get("/replenishment-list", h.GetReplenishmentList)

	// Products: alta con saldo inicial vía movimiento
	productHandler := NewProductHandler(deps.ProductUC, deps.Log)
	inv.Post("/products", productHandler.Register)
	inv.Get("/products/:id", productHandler.GetByID)

	products := inv.Group("/products/:id")
	products.Post("/stock-in", h.registerAs(entity.MovementTypeIn))
	products.Post("/stock-out", h.registerAs(entity.MovementTypeOut))
	products.Post("/adjustments", h.registerAs(entity.MovementTypeAdjustment))
	products.Get("/stock", h.GetStock)
	products.Get("/availability", h.GetAvailability)
	products.Get("/movements", h.ListMovements)
	products.Get("/verify", h.VerifyBalance)
	products.Get("/reorder", h.NeedsReordering)

	// Reservas
	products.Post("/reservations", h.Reserve)
	products.Delete("/reservations/:ref", h.Release)
	products.Post("/reservations/:ref/fulfill", h.Fulfill)
}
