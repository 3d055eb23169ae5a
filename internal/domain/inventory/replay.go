package inventory

import (
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Replay reconstruye el saldo de un producto aplicando sus movimientos en orden de creación
// desde cero. Las reservas se ignoran. Además de sumar, verifica que cada movimiento
// encadene con el anterior (PreviousStock == saldo acumulado, NewStock == PreviousStock + delta).
func Replay(movements []*entity.StockMovement) (int64, error) {
	var balance int64
	for _, m := range movements {
		if m.Quantity <= 0 {
			return balance, fmt.Errorf("%w: movimiento %d con cantidad %d", domain.ErrLedgerDrift, m.Sequence, m.Quantity)
		}
		if m.Type == entity.MovementTypeReserved {
			continue
		}
		if m.PreviousStock != balance {
			return balance, fmt.Errorf("%w: movimiento %d parte de %d, se esperaba %d",
				domain.ErrLedgerDrift, m.Sequence, m.PreviousStock, balance)
		}
		balance += m.SignedDelta()
		if m.NewStock != balance {
			return balance, fmt.Errorf("%w: movimiento %d termina en %d, se esperaba %d",
				domain.ErrLedgerDrift, m.Sequence, m.NewStock, balance)
		}
	}
	return balance, nil
}

// NetDelta suma los cambios con signo de una secuencia de movimientos.
func NetDelta(movements []*entity.StockMovement) int64 {
	var total int64
	for _, m := range movements {
		total += m.SignedDelta()
	}
	return total
}
