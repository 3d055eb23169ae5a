package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ReservationManager retiene, libera y cumple reservas sobre el stock disponible.
// Una reserva es un movimiento RESERVED que no toca el saldo; su estado pasa una única vez
// de RESERVED a RELEASED (cancelación) o FULFILLED (salida real).
type ReservationManager struct {
	ledger *MovementLedger
}

// NewReservationManager construye el gestor sobre el libro de movimientos.
func NewReservationManager(ledger *MovementLedger) *ReservationManager {
	return &ReservationManager{ledger: ledger}
}

// ReservationInput entrada para Reserve.
type ReservationInput struct {
	ProductID     string
	Quantity      int64
	ReferenceID   string
	ReferenceType string // por defecto "order"
	Note          string
	CreatedBy     string
}

// Reserve retiene quantity si no supera saldo - reservas activas. No modifica el saldo.
func (m *ReservationManager) Reserve(ctx context.Context, in ReservationInput) (*entity.StockMovement, error) {
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.ReferenceID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.ReferenceType == "" {
		in.ReferenceType = "order"
	}
	var out *entity.StockMovement
	err := m.ledger.atomic(ctx, "reserve", in.ProductID, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		product, err := lockProduct(ctx, productRepo, in.ProductID)
		if err != nil {
			return err
		}
		existing, err := movRepo.FindActiveReservation(ctx, product.ID, in.ReferenceID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", domain.ErrReservationExists, in.ReferenceID)
		}
		reserved, err := movRepo.SumActiveReserved(ctx, product.ID)
		if err != nil {
			return err
		}
		if reserved > product.CurrentStock || in.Quantity > product.CurrentStock-reserved {
			return fmt.Errorf("%w: producto %s tiene %d con %d reservadas, se solicitan %d",
				domain.ErrInsufficientStock, product.ID, product.CurrentStock, reserved, in.Quantity)
		}
		mov := &entity.StockMovement{
			ProductID:         product.ID,
			Type:              entity.MovementTypeReserved,
			Quantity:          in.Quantity,
			PreviousStock:     product.CurrentStock,
			NewStock:          product.CurrentStock,
			ReferenceType:     in.ReferenceType,
			ReferenceID:       in.ReferenceID,
			Note:              in.Note,
			ReservationStatus: entity.ReservationReserved,
			CreatedAt:         m.ledger.clock.Now(),
			CreatedBy:         in.CreatedBy,
		}
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		out = mov
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.ledger.log.Debug().
		Str("product_id", out.ProductID).
		Str("reference_id", out.ReferenceID).
		Int64("quantity", out.Quantity).
		Msg("reserva registrada")
	return out, nil
}

// Release libera la reserva activa de (productID, referenceID).
// Devuelve false si no había ninguna activa.
func (m *ReservationManager) Release(ctx context.Context, productID, referenceID string) (bool, error) {
	if referenceID == "" {
		return false, domain.ErrInvalidInput
	}
	released := false
	err := m.ledger.atomic(ctx, "release", productID, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		released = false
		if _, err := lockProduct(ctx, productRepo, productID); err != nil {
			return err
		}
		res, err := movRepo.FindActiveReservation(ctx, productID, referenceID)
		if err != nil || res == nil {
			return err
		}
		if err := closeReservation(ctx, movRepo, res, entity.ReservationReleased); err != nil {
			return err
		}
		released = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return released, nil
}

// Fulfill convierte la reserva activa en una salida real. Revalida que el saldo actual cubra
// la cantidad reservada, registra el OUT y marca la reserva FULFILLED en la misma transacción.
func (m *ReservationManager) Fulfill(ctx context.Context, productID, referenceID, createdBy string) (*entity.StockMovement, error) {
	if referenceID == "" {
		return nil, domain.ErrInvalidInput
	}
	var out *entity.StockMovement
	err := m.ledger.atomic(ctx, "fulfill", productID, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		product, err := lockProduct(ctx, productRepo, productID)
		if err != nil {
			return err
		}
		res, err := movRepo.FindActiveReservation(ctx, productID, referenceID)
		if err != nil {
			return err
		}
		if res == nil {
			return fmt.Errorf("%w: no hay reserva activa para %s", domain.ErrNotFound, referenceID)
		}
		if product.CurrentStock < res.Quantity {
			return fmt.Errorf("%w: producto %s tiene %d, la reserva %s requiere %d",
				domain.ErrInsufficientStock, product.ID, product.CurrentStock, referenceID, res.Quantity)
		}
		if err := closeReservation(ctx, movRepo, res, entity.ReservationFulfilled); err != nil {
			return err
		}
		out, err = m.ledger.stockOutTx(ctx, movRepo, productRepo, product, MovementInput{
			ProductID:     product.ID,
			Quantity:      res.Quantity,
			ReferenceType: res.ReferenceType,
			ReferenceID:   res.ReferenceID,
			Note:          "cumplimiento de reserva " + res.ID,
			CreatedBy:     createdBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveReservedQuantity suma de cantidades de reservas activas del producto.
func (m *ReservationManager) ActiveReservedQuantity(ctx context.Context, productID string) (int64, error) {
	if _, err := m.ledger.balances.Current(ctx, productID); err != nil {
		return 0, err
	}
	return m.ledger.movements.SumActiveReserved(ctx, productID)
}

// closeReservation valida la transición en el modelo y la persiste de forma condicional.
func closeReservation(ctx context.Context, movRepo repository.StockMovementRepository, res *entity.StockMovement, to entity.ReservationStatus) error {
	from := res.ReservationStatus
	if err := res.Transition(to); err != nil {
		return err
	}
	return movRepo.UpdateReservationStatus(ctx, res.ID, from, to)
}
