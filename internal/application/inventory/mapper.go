package inventory

import (
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ToMovementResponse convierte un movimiento del libro a su DTO.
func ToMovementResponse(m *entity.StockMovement) *dto.StockMovementDTO {
	if m == nil {
		return nil
	}
	return &dto.StockMovementDTO{
		ID:                m.ID,
		Sequence:          m.Sequence,
		ProductID:         m.ProductID,
		Type:              string(m.Type),
		Quantity:          m.Quantity,
		PreviousStock:     m.PreviousStock,
		NewStock:          m.NewStock,
		ReferenceType:     m.ReferenceType,
		ReferenceID:       m.ReferenceID,
		Note:              m.Note,
		AdjustmentType:    string(m.AdjustmentType),
		IsReserved:        m.IsReserved(),
		ReservationStatus: string(m.ReservationStatus),
		CreatedAt:         m.CreatedAt,
		CreatedBy:         m.CreatedBy,
	}
}

// ToMovementResponses convierte una página de historial.
func ToMovementResponses(list []*entity.StockMovement) []*dto.StockMovementDTO {
	out := make([]*dto.StockMovementDTO, 0, len(list))
	for _, m := range list {
		out = append(out, ToMovementResponse(m))
	}
	return out
}

// ToProductStockResponse convierte un producto a su saldo resumido.
func ToProductStockResponse(p *entity.Product) dto.ProductStockDTO {
	return dto.ProductStockDTO{
		ProductID:    p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		CurrentStock: p.CurrentStock,
		ReorderLevel: p.ReorderLevel,
		Price:        p.Price,
	}
}
