package inventory

import (
	"fmt"
	"math"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Adjustment resultado de comparar el stock registrado con un conteo físico.
type Adjustment struct {
	Quantity int64 // magnitud de la diferencia, siempre > 0
	Type     entity.AdjustmentType
}

// CalculateAdjustment calcula el ajuste que lleva current a actual (servicio de dominio puro).
// Devuelve false cuando ambos valores coinciden y no hay nada que registrar.
// Si la diferencia no cabe en int64 falla con ErrInvalidQuantity.
func CalculateAdjustment(current, actual int64) (Adjustment, bool, error) {
	diff, err := ApplyDelta(actual, negate(current))
	if err != nil || current == math.MinInt64 {
		return Adjustment{}, false, fmt.Errorf("%w: ajuste de %d a %d fuera de rango", domain.ErrInvalidQuantity, current, actual)
	}
	switch {
	case diff > 0:
		return Adjustment{Quantity: diff, Type: entity.AdjustmentIncrease}, true, nil
	case diff < 0:
		if diff == math.MinInt64 {
			return Adjustment{}, false, fmt.Errorf("%w: ajuste de %d a %d fuera de rango", domain.ErrInvalidQuantity, current, actual)
		}
		return Adjustment{Quantity: -diff, Type: entity.AdjustmentDecrease}, true, nil
	}
	return Adjustment{}, false, nil
}

// ApplyDelta suma delta al saldo current. Falla con ErrInvalidQuantity si el resultado desborda int64.
func ApplyDelta(current, delta int64) (int64, error) {
	if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
		return current, fmt.Errorf("%w: el saldo %d no admite un cambio de %d", domain.ErrInvalidQuantity, current, delta)
	}
	return current + delta, nil
}

// negate -v; MinInt64 se satura y lo rechaza el llamador.
func negate(v int64) int64 {
	if v == math.MinInt64 {
		return math.MaxInt64
	}
	return -v
}
