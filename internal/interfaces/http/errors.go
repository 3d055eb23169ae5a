package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// retryAfterSeconds sugerencia para el cliente ante un conflicto de concurrencia.
const retryAfterSeconds = "1"

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Orden relevante: el primer sentinel que coincide decide el status.
var errorMappings = []errorMapping{
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY", "la cantidad debe ser mayor que cero"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", "datos inválidos"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "producto o reserva no encontrado"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE", "el producto ya existe"},
	{domain.ErrReservationExists, fiber.StatusConflict, "RESERVATION_EXISTS", "ya existe una reserva activa para la referencia"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION", "la reserva ya no está activa"},
	{domain.ErrLedgerDrift, fiber.StatusConflict, "LEDGER_DRIFT", "el saldo no coincide con el historial"},
	{domain.ErrConcurrencyConflict, fiber.StatusServiceUnavailable, "CONCURRENCY_CONFLICT", "producto ocupado, reintente"},
}

// writeError traduce errores de dominio a respuestas HTTP. Lo no reconocido es 500 y se loguea.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status == fiber.StatusServiceUnavailable {
				c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: m.message})
		}
	}
	log.Error().Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: message})
}
