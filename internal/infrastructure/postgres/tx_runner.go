package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Ensure TxRunner implements inventory.TxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
// El bloqueo del producto lo toma el propio callback con GetForUpdate; locker (opcional)
// serializa además entre instancias antes de abrir la transacción.
type TxRunner struct {
	pool        *pgxpool.Pool
	locker      inventory.Locker
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. locker puede ser nil.
func NewTxRunner(pool *pgxpool.Pool, locker inventory.Locker, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, locker: locker, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, productID string, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, productID)
		if err != nil {
			return err
		}
		defer unlock()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		// SET no admite parámetros; el valor es un entero controlado por configuración.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(NewStockMovementRepository(tx), NewProductRepository(tx)); err != nil {
		return mapTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapTxError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
