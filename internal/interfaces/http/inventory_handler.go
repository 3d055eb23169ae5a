package http

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// InventoryHandler maneja las peticiones HTTP del libro de stock.
type InventoryHandler struct {
	ledger       *inventory.MovementLedger
	reservations *inventory.ReservationManager
	monitor      *inventory.ReplenishmentMonitor
	log          zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	ledger *inventory.MovementLedger,
	reservations *inventory.ReservationManager,
	monitor *inventory.ReplenishmentMonitor,
	log zerolog.Logger,
) *InventoryHandler {
	return &InventoryHandler{
		ledger:       ledger,
		reservations: reservations,
		monitor:      monitor,
		log:          log.With().Str("component", "inventory_handler").Logger(),
	}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header  string                       false  "usuario que registra"
// @Param        body       body    dto.RegisterMovementRequest  true   "product_id, type (IN, OUT, ADJUSTMENT), quantity o actual_stock"
// @Success      201   {object}  dto.StockMovementDTO
// @Success      200   {object}  map[string]string  "ajuste sin diferencia"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	return h.register(c, in)
}

// registerAs fija el tipo y el producto desde la ruta (/products/:id/stock-in, stock-out, adjustments).
func (h *InventoryHandler) registerAs(t entity.MovementType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in dto.RegisterMovementRequest
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "INVALID_BODY", "cuerpo inválido")
		}
		in.ProductID = c.Params("id")
		in.Type = string(t)
		return h.register(c, in)
	}
}

func (h *InventoryHandler) register(c *fiber.Ctx, in dto.RegisterMovementRequest) error {
	mov, err := h.ledger.RegisterMovementFromRequest(c.Context(), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if mov == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "sin diferencia, no se registró ajuste"})
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToMovementResponse(mov))
}

// GetStock godoc
// @Summary      Saldo actual, reservado y disponible
// @Tags         inventory
// @Produce      json
// @Param        id   path      string  true  "producto"
// @Success      200  {object}  dto.StockLevelDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/stock [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	level, err := h.ledger.StockLevel(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(level)
}

// GetAvailability indica si ?quantity= cabe en el disponible.
func (h *InventoryHandler) GetAvailability(c *fiber.Ctx) error {
	q, err := strconv.ParseInt(c.Query("quantity"), 10, 64)
	if err != nil {
		return badRequest(c, "INVALID_QUANTITY", "quantity debe ser un entero")
	}
	av, err := h.ledger.Availability(c.Context(), c.Params("id"), q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(av)
}

// ListMovements godoc
// @Summary      Historial de movimientos del producto
// @Tags         inventory
// @Produce      json
// @Param        id      path   string  true   "producto"
// @Param        type    query  string  false  "IN, OUT, ADJUSTMENT, RESERVED"
// @Param        from    query  string  false  "RFC3339"
// @Param        to      query  string  false  "RFC3339"
// @Param        limit   query  int     false  "por defecto 20"
// @Param        offset  query  int     false  "desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "VALIDATION", "paginación inválida")
	}
	page.DefaultPage()

	filter := repository.MovementFilter{
		Type:   entity.MovementType(strings.ToUpper(c.Query("type"))),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	var err error
	if filter.From, err = queryTime(c, "from"); err != nil {
		return badRequest(c, "VALIDATION", "from debe ser RFC3339")
	}
	if filter.To, err = queryTime(c, "to"); err != nil {
		return badRequest(c, "VALIDATION", "to debe ser RFC3339")
	}

	list, err := h.ledger.History(c.Context(), c.Params("id"), filter)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"page":      dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(list)},
		"movements": inventory.ToMovementResponses(list),
	})
}

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// VerifyBalance reconstruye el saldo desde el historial. 409 con el reporte si hay descuadre.
func (h *InventoryHandler) VerifyBalance(c *fiber.Ctx) error {
	report, err := h.ledger.VerifyBalance(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrLedgerDrift) && report != nil {
			return c.Status(fiber.StatusConflict).JSON(report)
		}
		return writeError(c, h.log, err)
	}
	return c.JSON(report)
}

// NeedsReordering indica si el producto está en o bajo su punto de reorden.
func (h *InventoryHandler) NeedsReordering(c *fiber.Ctx) error {
	id := c.Params("id")
	need, err := h.monitor.NeedsReordering(c.Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"product_id": id, "needs_reordering": need})
}

// Reserve godoc
// @Summary      Reservar stock para una referencia
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "producto"
// @Param        body  body  dto.ReserveRequest  true  "quantity, reference_id"
// @Success      201   {object}  dto.StockMovementDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/reservations [post]
func (h *InventoryHandler) Reserve(c *fiber.Ctx) error {
	var in dto.ReserveRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	mov, err := h.reservations.ReserveFromRequest(c.Context(), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToMovementResponse(mov))
}

// Release libera la reserva activa de la referencia. released=false si no había ninguna.
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	released, err := h.reservations.Release(c.Context(), c.Params("id"), c.Params("ref"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"released": released})
}

// Fulfill convierte la reserva en una salida real.
func (h *InventoryHandler) Fulfill(c *fiber.Ctx) error {
	mov, err := h.reservations.Fulfill(c.Context(), c.Params("id"), c.Params("ref"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToMovementResponse(mov))
}

// GetLowStock productos activos en o bajo su punto de reorden.
func (h *InventoryHandler) GetLowStock(c *fiber.Ctx) error {
	products, err := h.monitor.LowStockProducts(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.ProductStockDTO, 0, len(products))
	for _, p := range products {
		out = append(out, inventory.ToProductStockResponse(p))
	}
	return c.JSON(fiber.Map{
		"total":    len(out),
		"products": out,
	})
}

// GetSummary godoc
// @Summary      Resumen de inventario
// @Tags         inventory
// @Produce      json
// @Param        from  query  string  false  "inicio de la ventana de rotación (RFC3339)"
// @Param        to    query  string  false  "cierre de la ventana de rotación (RFC3339)"
// @Success      200  {object}  dto.StockSummaryDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/summary [get]
func (h *InventoryHandler) GetSummary(c *fiber.Ctx) error {
	from, err := queryTime(c, "from")
	if err != nil {
		return badRequest(c, "VALIDATION", "from debe ser RFC3339")
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return badRequest(c, "VALIDATION", "to debe ser RFC3339")
	}
	summary, err := h.monitor.StockSummaryBetween(c.Context(), from, to)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(summary)
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Productos bajo el punto de reorden con la cantidad sugerida de pedido,
//
//	ordenados por mayor déficit.
//
// @Tags         inventory
// @Produce      json
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/replenishment-list [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	list, err := h.monitor.ReplenishmentList(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}
