package memory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks con el producto bloqueado (Locker) y los cambios en buffer:
// Commit si fn devuelve nil, descarte en otro caso.
type TxRunner struct {
	store  *Store
	locker inventory.Locker
}

// NewTxRunner construye el runner sobre el almacén y el proveedor de bloqueos.
func NewTxRunner(store *Store, locker inventory.Locker) *TxRunner {
	return &TxRunner{store: store, locker: locker}
}

// Run bloquea productID, ejecuta fn con repos atados a la transacción y aplica o descarta los cambios.
func (r *TxRunner) Run(ctx context.Context, productID string, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	unlock, err := r.locker.Lock(ctx, productID)
	if err != nil {
		return err
	}
	defer unlock()

	t := newTx()
	if err := fn(&MovementRepo{s: r.store, tx: t}, &ProductRepo{s: r.store, tx: t}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.commit(t)
	return nil
}
