package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// MovementType tipo de movimiento de stock.
type MovementType string

// Tipos de movimiento.
const (
	MovementTypeIn         MovementType = "IN"         // entrada
	MovementTypeOut        MovementType = "OUT"        // salida
	MovementTypeAdjustment MovementType = "ADJUSTMENT" // ajuste por conteo físico
	MovementTypeReserved   MovementType = "RESERVED"   // reserva (solo contable, no mueve stock)
)

// Valid indica si el tipo es uno de los conocidos.
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjustment, MovementTypeReserved:
		return true
	}
	return false
}

// AdjustmentType dirección de un ajuste.
type AdjustmentType string

const (
	AdjustmentIncrease AdjustmentType = "INCREASE"
	AdjustmentDecrease AdjustmentType = "DECREASE"
)

// ReservationStatus estado de una reserva. RELEASED y FULFILLED son terminales.
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "RESERVED"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationFulfilled ReservationStatus = "FULFILLED"
)

// Terminal indica si el estado ya no admite transiciones.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationReleased || s == ReservationFulfilled
}

// StockMovement es un registro inmutable de un cambio de inventario.
// El único campo mutable es ReservationStatus, y solo en movimientos RESERVED.
type StockMovement struct {
	ID                string
	Sequence          int64 // orden de creación
	ProductID         string
	Type              MovementType
	Quantity          int64 // magnitud del cambio, siempre > 0
	PreviousStock     int64
	NewStock          int64
	ReferenceType     string
	ReferenceID       string
	Note              string
	AdjustmentType    AdjustmentType    // solo en ADJUSTMENT
	ReservationStatus ReservationStatus // solo en RESERVED
	CreatedAt         time.Time
	CreatedBy         string
}

// IsReserved indica si es una reserva todavía activa.
func (m *StockMovement) IsReserved() bool {
	return m.Type == MovementTypeReserved && m.ReservationStatus == ReservationReserved
}

// SignedDelta devuelve el cambio con signo que el movimiento aplica al stock.
// Las reservas no aplican cambio.
func (m *StockMovement) SignedDelta() int64 {
	switch m.Type {
	case MovementTypeIn:
		return m.Quantity
	case MovementTypeOut:
		return -m.Quantity
	case MovementTypeAdjustment:
		if m.AdjustmentType == AdjustmentDecrease {
			return -m.Quantity
		}
		return m.Quantity
	}
	return 0
}

// Transition cierra una reserva activa. Solo se permite RESERVED -> RELEASED | FULFILLED.
func (m *StockMovement) Transition(to ReservationStatus) error {
	if m.Type != MovementTypeReserved {
		return fmt.Errorf("%w: el movimiento %s no es una reserva", domain.ErrInvalidTransition, m.ID)
	}
	if m.ReservationStatus != ReservationReserved || !to.Terminal() {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, m.ReservationStatus, to)
	}
	m.ReservationStatus = to
	return nil
}
