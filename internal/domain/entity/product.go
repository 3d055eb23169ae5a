package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto referenciado por el libro de stock.
// CurrentStock es una proyección en caché del historial de movimientos: solo cambia
// dentro de la misma transacción que registra el movimiento correspondiente.
type Product struct {
	ID           string
	SKU          string
	Name         string
	CurrentStock int64           // puede ser negativo si una salida lo autorizó
	ReorderLevel int64           // punto de reorden (>= 0)
	Price        decimal.Decimal // precio de venta (>= 0)
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NeedsReordering indica si el stock actual está en o por debajo del punto de reorden.
func (p *Product) NeedsReordering() bool {
	return p.CurrentStock <= p.ReorderLevel
}

// IsOutOfStock indica si no queda stock disponible (cero o negativo).
func (p *Product) IsOutOfStock() bool {
	return p.CurrentStock <= 0
}

// StockValue devuelve CurrentStock * Price.
func (p *Product) StockValue() decimal.Decimal {
	return decimal.NewFromInt(p.CurrentStock).Mul(p.Price)
}
