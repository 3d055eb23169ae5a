package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// CurrentStock solo se escribe mediante UpdateStock dentro de la transacción del libro.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// GetByID devuelve nil, nil si el producto no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate igual que GetByID pero bloquea el producto hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	UpdateStock(ctx context.Context, id string, stock int64, at time.Time) error
	ListActive(ctx context.Context) ([]*entity.Product, error)
	// ListLowStock productos activos con CurrentStock <= ReorderLevel, por stock ascendente e ID.
	ListLowStock(ctx context.Context) ([]*entity.Product, error)
}
