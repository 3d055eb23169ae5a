package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con el producto productID bloqueado en exclusiva,
// pasando repositorios atados a esa transacción. Commit si fn devuelve nil, Rollback en otro caso.
// Operaciones sobre productos distintos no se bloquean entre sí.
type TxRunner interface {
	Run(ctx context.Context, productID string, fn func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// Locker proveedor de exclusión mutua por clave (producto).
// Lock devuelve domain.ErrConcurrencyConflict si no obtiene el bloqueo a tiempo.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Clock fuente de tiempo inyectable.
type Clock interface {
	Now() time.Time
}

// SystemClock reloj del sistema en UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
