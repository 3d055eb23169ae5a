package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Métodos de promedio soportados para la rotación.
const (
	TurnoverEndpoint     = "endpoint"
	TurnoverTimeWeighted = "time_weighted"
)

// TurnoverWindow periodo [From, To] sobre el que se mide la rotación.
type TurnoverWindow struct {
	From time.Time
	To   time.Time
}

// ProductHistory saldo de un producto al cierre de la ventana y los movimientos
// (sin reservas, en orden de creación) registrados dentro de ella.
type ProductHistory struct {
	ProductID string
	EndStock  int64
	Movements []*entity.StockMovement
}

// StartStock saldo del producto al inicio de la ventana.
func (h ProductHistory) StartStock() int64 {
	return h.EndStock - NetDelta(h.Movements)
}

// TurnoverCalculator calcula la rotación: unidades salidas en la ventana / stock promedio.
type TurnoverCalculator interface {
	Method() string
	Rate(window TurnoverWindow, histories []ProductHistory) decimal.Decimal
}

// NewTurnoverCalculator devuelve la implementación configurada.
func NewTurnoverCalculator(method string) (TurnoverCalculator, error) {
	switch method {
	case "", TurnoverEndpoint:
		return EndpointTurnover{}, nil
	case TurnoverTimeWeighted:
		return TimeWeightedTurnover{}, nil
	}
	return nil, fmt.Errorf("método de rotación desconocido: %q", method)
}

// EndpointTurnover promedia el saldo al inicio y al final de la ventana.
type EndpointTurnover struct{}

func (EndpointTurnover) Method() string { return TurnoverEndpoint }

func (EndpointTurnover) Rate(_ TurnoverWindow, histories []ProductHistory) decimal.Decimal {
	var start, end int64
	for _, h := range histories {
		start += h.StartStock()
		end += h.EndStock
	}
	avg := decimal.NewFromInt(start + end).Div(decimal.NewFromInt(2))
	return ratio(outQuantity(histories), avg)
}

// TimeWeightedTurnover integra el saldo en el tiempo y lo divide por la duración de la ventana.
type TimeWeightedTurnover struct{}

func (TimeWeightedTurnover) Method() string { return TurnoverTimeWeighted }

func (t TimeWeightedTurnover) Rate(window TurnoverWindow, histories []ProductHistory) decimal.Decimal {
	total := window.To.Sub(window.From)
	if total <= 0 {
		return EndpointTurnover{}.Rate(window, histories)
	}
	area := decimal.Zero
	for _, h := range histories {
		area = area.Add(balanceArea(window, h))
	}
	avg := area.Div(decimal.NewFromInt(int64(total)))
	return ratio(outQuantity(histories), avg)
}

// balanceArea suma saldo * duración de cada tramo en que el saldo fue constante.
func balanceArea(window TurnoverWindow, h ProductHistory) decimal.Decimal {
	area := decimal.Zero
	balance := h.StartStock()
	cursor := window.From
	for _, m := range h.Movements {
		at := clamp(m.CreatedAt, window.From, window.To)
		area = area.Add(decimal.NewFromInt(balance).Mul(decimal.NewFromInt(int64(at.Sub(cursor)))))
		balance += m.SignedDelta()
		cursor = at
	}
	return area.Add(decimal.NewFromInt(balance).Mul(decimal.NewFromInt(int64(window.To.Sub(cursor)))))
}

func clamp(t, from, to time.Time) time.Time {
	if t.Before(from) {
		return from
	}
	if t.After(to) {
		return to
	}
	return t
}

func outQuantity(histories []ProductHistory) int64 {
	var out int64
	for _, h := range histories {
		for _, m := range h.Movements {
			if m.Type == entity.MovementTypeOut {
				out += m.Quantity
			}
		}
	}
	return out
}

func ratio(out int64, avg decimal.Decimal) decimal.Decimal {
	if avg.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return decimal.NewFromInt(out).Div(avg).Round(4)
}
