package domain

import "errors"

// Errores de dominio del libro de stock (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrInvalidQuantity   = errors.New("cantidad inválida")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// ErrConcurrencyConflict es transitorio: no se obtuvo el bloqueo del producto
	// o la transacción fue abortada por el motor. El llamador puede reintentar.
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia")

	ErrReservationExists = errors.New("ya existe una reserva activa para la referencia")
	ErrInvalidTransition = errors.New("transición de reserva inválida")
	ErrLedgerDrift       = errors.New("el stock en caché no coincide con el historial de movimientos")
)

// IsTransient indica si el error puede resolverse reintentando la operación.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
