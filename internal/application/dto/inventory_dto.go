package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
// Type: IN, OUT o ADJUSTMENT. Para ADJUSTMENT se envía actual_stock (conteo físico) en lugar de quantity.
type RegisterMovementRequest struct {
	ProductID     string `json:"product_id"`
	Type          string `json:"type"`
	Quantity      int64  `json:"quantity"`
	ActualStock   *int64 `json:"actual_stock,omitempty"`
	AllowNegative bool   `json:"allow_negative,omitempty"`
	ReferenceType string `json:"reference_type,omitempty"`
	ReferenceID   string `json:"reference_id,omitempty"`
	Note          string `json:"note,omitempty"`
}

// ReserveRequest body para POST /api/inventory/products/:id/reservations.
type ReserveRequest struct {
	Quantity      int64  `json:"quantity"`
	ReferenceID   string `json:"reference_id"`
	ReferenceType string `json:"reference_type,omitempty"`
	Note          string `json:"note,omitempty"`
}

// StockMovementDTO representación de un movimiento del libro.
type StockMovementDTO struct {
	ID                string    `json:"id"`
	Sequence          int64     `json:"sequence"`
	ProductID         string    `json:"product_id"`
	Type              string    `json:"type"`
	Quantity          int64     `json:"quantity"`
	PreviousStock     int64     `json:"previous_stock"`
	NewStock          int64     `json:"new_stock"`
	ReferenceType     string    `json:"reference_type,omitempty"`
	ReferenceID       string    `json:"reference_id,omitempty"`
	Note              string    `json:"note,omitempty"`
	AdjustmentType    string    `json:"adjustment_type,omitempty"`
	IsReserved        bool      `json:"is_reserved"`
	ReservationStatus string    `json:"reservation_status,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	CreatedBy         string    `json:"created_by,omitempty"`
}

// ProductStockDTO saldo de un producto (listado de stock bajo).
type ProductStockDTO struct {
	ProductID    string          `json:"product_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	CurrentStock int64           `json:"current_stock"`
	ReorderLevel int64           `json:"reorder_level"`
	Price        decimal.Decimal `json:"price"`
}

// StockLevelDTO respuesta de GET /products/:id/stock.
type StockLevelDTO struct {
	ProductID    string `json:"product_id"`
	CurrentStock int64  `json:"current_stock"`
	Reserved     int64  `json:"reserved"`
	Available    int64  `json:"available"` // current_stock - reserved
}

// AvailabilityDTO respuesta de GET /products/:id/availability.
type AvailabilityDTO struct {
	StockLevelDTO
	Quantity    int64 `json:"quantity"`
	IsAvailable bool  `json:"is_available"`
}

// StockSummaryDTO resumen de inventario para el dashboard.
type StockSummaryDTO struct {
	TotalProducts     int             `json:"total_products"`
	LowStockCount     int             `json:"low_stock_count"`
	OutOfStockCount   int             `json:"out_of_stock_count"`
	TotalStockValue   decimal.Decimal `json:"total_stock_value"`   // Σ current_stock * price
	StockTurnoverRate decimal.Decimal `json:"stock_turnover_rate"` // salidas de la ventana / stock promedio
	TurnoverMethod    string          `json:"turnover_method"`
	WindowFrom        time.Time       `json:"window_from"`
	WindowTo          time.Time       `json:"window_to"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un producto bajo su punto de reorden.
type ReplenishmentSuggestionDTO struct {
	ProductID           string          `json:"product_id"`
	SKU                 string          `json:"sku"`
	ProductName         string          `json:"product_name"`
	CurrentStock        int64           `json:"current_stock"`
	ReorderLevel        int64           `json:"reorder_level"`
	IdealStock          decimal.Decimal `json:"ideal_stock"`           // ReorderLevel * factor
	SuggestedOrderQty   int64           `json:"suggested_order_qty"`   // ceil(IdealStock) - CurrentStock
	UnitPrice           decimal.Decimal `json:"unit_price"`
	EstimatedOrderValue decimal.Decimal `json:"estimated_order_value"` // SuggestedOrderQty * UnitPrice
	Priority            int             `json:"priority"`              // 1 = más urgente
}
