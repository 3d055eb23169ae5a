package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	inv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// BalanceTracker mantiene el saldo en caché de cada producto (products.current_stock).
// Las escrituras ocurren solo con repositorios atados a la transacción del libro;
// las lecturas usan los repositorios del pool y aceptan snapshots eventualmente consistentes.
type BalanceTracker struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	clock     Clock
}

// NewBalanceTracker construye el tracker con los repositorios de lectura.
func NewBalanceTracker(products repository.ProductRepository, movements repository.StockMovementRepository, clock Clock) *BalanceTracker {
	return &BalanceTracker{products: products, movements: movements, clock: clock}
}

// ReplayReport resultado de reconstruir el saldo desde el historial.
type ReplayReport struct {
	ProductID     string `json:"product_id"`
	CachedStock   int64  `json:"cached_stock"`
	ReplayedStock int64  `json:"replayed_stock"`
	Movements     int    `json:"movements"`
	Consistent    bool   `json:"consistent"`
}

// Current lectura O(1) del saldo en caché.
func (b *BalanceTracker) Current(ctx context.Context, productID string) (int64, error) {
	product, err := b.products.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	if product == nil {
		return 0, domain.ErrNotFound
	}
	return product.CurrentStock, nil
}

// apply escribe newStock en el producto bloqueado y devuelve el saldo anterior.
func (b *BalanceTracker) apply(ctx context.Context, productRepo repository.ProductRepository, product *entity.Product, newStock int64) (int64, error) {
	previous := product.CurrentStock
	now := b.clock.Now()
	if err := productRepo.UpdateStock(ctx, product.ID, newStock, now); err != nil {
		return previous, err
	}
	product.CurrentStock = newStock
	product.UpdatedAt = now
	return previous, nil
}

// verify reconstruye el saldo con los repositorios de la transacción (producto ya bloqueado).
func (b *BalanceTracker) verify(ctx context.Context, movRepo repository.StockMovementRepository, product *entity.Product) (*ReplayReport, error) {
	movements, err := movRepo.ListForReplay(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	report := &ReplayReport{ProductID: product.ID, CachedStock: product.CurrentStock, Movements: len(movements)}
	replayed, err := inv.Replay(movements)
	report.ReplayedStock = replayed
	if err != nil {
		return report, err
	}
	if replayed != product.CurrentStock {
		return report, fmt.Errorf("%w: producto %s caché %d, historial %d",
			domain.ErrLedgerDrift, product.ID, product.CurrentStock, replayed)
	}
	report.Consistent = true
	return report, nil
}
