package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementFilter filtros para listar el historial de un producto.
type MovementFilter struct {
	From   *time.Time
	To     *time.Time
	Type   entity.MovementType // vacío = todos
	Limit  int
	Offset int
}

// StockMovementRepository define el puerto de persistencia del libro de movimientos (DIP).
// Solo inserta; la única actualización permitida es el estado de una reserva.
type StockMovementRepository interface {
	// Create asigna ID y Sequence si vienen vacíos y persiste el movimiento.
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	// ListByProduct historial paginado, más reciente primero.
	ListByProduct(ctx context.Context, productID string, filter MovementFilter) ([]*entity.StockMovement, error)
	// ListForReplay todos los movimientos del producto en orden de creación.
	ListForReplay(ctx context.Context, productID string) ([]*entity.StockMovement, error)
	// ListBetween movimientos que no son reservas creados en [from, to], en orden de creación.
	ListBetween(ctx context.Context, from, to time.Time) ([]*entity.StockMovement, error)

	// FindActiveReservation devuelve nil, nil si no hay reserva activa para (producto, referencia).
	FindActiveReservation(ctx context.Context, productID, referenceID string) (*entity.StockMovement, error)
	SumActiveReserved(ctx context.Context, productID string) (int64, error)
	// UpdateReservationStatus aplica la transición solo si el estado actual es from;
	// si no, devuelve domain.ErrInvalidTransition.
	UpdateReservationStatus(ctx context.Context, id string, from, to entity.ReservationStatus) error
}
