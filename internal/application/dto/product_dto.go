package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterProductRequest alta de un producto en el libro. El saldo inicial se registra
// como un movimiento IN, nunca escribiendo current_stock directamente.
type RegisterProductRequest struct {
	ID           string          `json:"id,omitempty"` // opcional; por defecto UUID nuevo
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	ReorderLevel int64           `json:"reorder_level"`
	Price        decimal.Decimal `json:"price"`
	InitialStock int64           `json:"initial_stock,omitempty"`
	IsActive     *bool           `json:"is_active,omitempty"` // por defecto true
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID           string          `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	CurrentStock int64           `json:"current_stock"`
	ReorderLevel int64           `json:"reorder_level"`
	Price        decimal.Decimal `json:"price"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
