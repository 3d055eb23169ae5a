package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación en memoria de ProductRepository (con o sin transacción).
type ProductRepo struct {
	s  *Store
	tx *tx
}

// Create registra un producto. Fuera de transacción se aplica inmediatamente.
func (r *ProductRepo) Create(_ context.Context, product *entity.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.ReorderLevel < 0 || product.Price.IsNegative() {
		return domain.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.products[product.ID]; exists {
		return domain.ErrDuplicate
	}
	if r.tx != nil {
		if _, exists := r.tx.products[product.ID]; exists {
			return domain.ErrDuplicate
		}
		r.tx.products[product.ID] = *product
		return nil
	}
	p := *product
	r.s.products[p.ID] = &p
	return nil
}

// GetByID devuelve una copia del producto (con los cambios pendientes de la transacción).
func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	if r.tx != nil {
		if p, ok := r.tx.products[id]; ok {
			return &p, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

// GetForUpdate el TxRunner ya tiene el bloqueo del producto; equivale a GetByID.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

// UpdateStock fija el saldo en caché del producto.
func (r *ProductRepo) UpdateStock(ctx context.Context, id string, stock int64, at time.Time) error {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("update stock: %w", domain.ErrNotFound)
	}
	p.CurrentStock = stock
	p.UpdatedAt = at
	if r.tx != nil {
		r.tx.products[id] = *p
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[id] = p
	return nil
}

// ListActive productos activos ordenados por ID.
func (r *ProductRepo) ListActive(_ context.Context) ([]*entity.Product, error) {
	list := r.snapshot(func(p *entity.Product) bool { return p.IsActive })
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// ListLowStock productos activos con saldo <= punto de reorden, por saldo ascendente e ID.
func (r *ProductRepo) ListLowStock(_ context.Context) ([]*entity.Product, error) {
	list := r.snapshot(func(p *entity.Product) bool { return p.IsActive && p.NeedsReordering() })
	sort.Slice(list, func(i, j int) bool {
		if list[i].CurrentStock != list[j].CurrentStock {
			return list[i].CurrentStock < list[j].CurrentStock
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (r *ProductRepo) snapshot(keep func(*entity.Product) bool) []*entity.Product {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if keep(p) {
			c := *p
			list = append(list, &c)
		}
	}
	return list
}
