package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación en memoria de StockMovementRepository (con o sin transacción).
type MovementRepo struct {
	s  *Store
	tx *tx
}

// Create valida las mismas restricciones que el esquema SQL y agrega el movimiento.
func (r *MovementRepo) Create(_ context.Context, movement *entity.StockMovement) error {
	if movement.Quantity <= 0 {
		return fmt.Errorf("create stock movement: %w", domain.ErrInvalidQuantity)
	}
	if !movement.Type.Valid() {
		return fmt.Errorf("create stock movement: tipo %q: %w", movement.Type, domain.ErrInvalidInput)
	}
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	movement.Sequence = r.s.nextSequence()
	m := cloneMovement(movement)
	if r.tx != nil {
		r.tx.movements = append(r.tx.movements, m)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.appendLocked(m)
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	if r.tx != nil {
		for _, m := range r.tx.movements {
			if m.ID == id {
				return cloneMovement(m), nil
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	idx, ok := r.s.byID[id]
	if !ok {
		return nil, nil
	}
	return r.overlay(r.s.movements[idx]), nil
}

// overlay copia un movimiento confirmado aplicando el estado pendiente de la transacción.
func (r *MovementRepo) overlay(m *entity.StockMovement) *entity.StockMovement {
	c := cloneMovement(m)
	if r.tx != nil {
		if status, ok := r.tx.statuses[c.ID]; ok {
			c.ReservationStatus = status
		}
	}
	return c
}

// forProduct movimientos del producto (confirmados + pendientes) en orden de creación.
func (r *MovementRepo) forProduct(productID string) []*entity.StockMovement {
	r.s.mu.RLock()
	list := make([]*entity.StockMovement, 0, len(r.s.byProduct[productID]))
	for _, idx := range r.s.byProduct[productID] {
		list = append(list, r.overlay(r.s.movements[idx]))
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for _, m := range r.tx.movements {
			if m.ProductID == productID {
				list = append(list, cloneMovement(m))
			}
		}
	}
	sortBySequence(list)
	return list
}

// ListByProduct historial paginado, más reciente primero.
func (r *MovementRepo) ListByProduct(_ context.Context, productID string, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	all := r.forProduct(productID)
	list := make([]*entity.StockMovement, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.From != nil && m.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && m.CreatedAt.After(*filter.To) {
			continue
		}
		list = append(list, m)
	}
	if filter.Offset >= len(list) {
		return []*entity.StockMovement{}, nil
	}
	list = list[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(list) {
		list = list[:filter.Limit]
	}
	return list, nil
}

// ListForReplay todos los movimientos del producto en orden de creación.
func (r *MovementRepo) ListForReplay(_ context.Context, productID string) ([]*entity.StockMovement, error) {
	return r.forProduct(productID), nil
}

// ListBetween movimientos que no son reservas creados en [from, to].
func (r *MovementRepo) ListBetween(_ context.Context, from, to time.Time) ([]*entity.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.StockMovement, 0)
	for _, m := range r.s.movements {
		if m.Type == entity.MovementTypeReserved || m.CreatedAt.Before(from) || m.CreatedAt.After(to) {
			continue
		}
		list = append(list, cloneMovement(m))
	}
	sortBySequence(list)
	return list, nil
}

// FindActiveReservation devuelve la reserva activa de (producto, referencia) o nil.
func (r *MovementRepo) FindActiveReservation(_ context.Context, productID, referenceID string) (*entity.StockMovement, error) {
	for _, m := range r.forProduct(productID) {
		if m.IsReserved() && m.ReferenceID == referenceID {
			return m, nil
		}
	}
	return nil, nil
}

// SumActiveReserved suma las reservas activas del producto.
func (r *MovementRepo) SumActiveReserved(_ context.Context, productID string) (int64, error) {
	var total int64
	for _, m := range r.forProduct(productID) {
		if m.IsReserved() {
			total += m.Quantity
		}
	}
	return total, nil
}

// UpdateReservationStatus transición condicional: solo si el estado actual es from.
func (r *MovementRepo) UpdateReservationStatus(ctx context.Context, id string, from, to entity.ReservationStatus) error {
	if r.tx != nil {
		for _, m := range r.tx.movements {
			if m.ID == id {
				return transition(m, from, to)
			}
		}
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("update reservation: %w", domain.ErrNotFound)
		}
		if err := transition(current, from, to); err != nil {
			return err
		}
		r.tx.statuses[id] = to
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	idx, ok := r.s.byID[id]
	if !ok {
		return fmt.Errorf("update reservation: %w", domain.ErrNotFound)
	}
	return transition(r.s.movements[idx], from, to)
}

func transition(m *entity.StockMovement, from, to entity.ReservationStatus) error {
	if m.Type != entity.MovementTypeReserved || m.ReservationStatus != from {
		return fmt.Errorf("%w: movimiento %s en estado %q", domain.ErrInvalidTransition, m.ID, m.ReservationStatus)
	}
	m.ReservationStatus = to
	return nil
}
