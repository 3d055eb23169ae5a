package inventory

import (
	"context"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RegisterMovementFromRequest adapta el request HTTP a StockIn / StockOut / StockAdjustment según Type.
// Para ADJUSTMENT se usa ActualStock (conteo físico); puede devolver nil, nil si no hay diferencia.
func (l *MovementLedger) RegisterMovementFromRequest(ctx context.Context, userID string, in dto.RegisterMovementRequest) (*entity.StockMovement, error) {
	if in.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	switch entity.MovementType(strings.ToUpper(in.Type)) {
	case entity.MovementTypeIn:
		return l.StockIn(ctx, movementInput(userID, in))
	case entity.MovementTypeOut:
		return l.StockOut(ctx, movementInput(userID, in))
	case entity.MovementTypeAdjustment:
		if in.ActualStock == nil {
			return nil, domain.ErrInvalidQuantity
		}
		return l.StockAdjustment(ctx, AdjustmentInput{
			ProductID:   in.ProductID,
			ActualStock: *in.ActualStock,
			Note:        in.Note,
			CreatedBy:   userID,
		})
	}
	return nil, domain.ErrInvalidInput
}

func movementInput(userID string, in dto.RegisterMovementRequest) MovementInput {
	return MovementInput{
		ProductID:     in.ProductID,
		Quantity:      in.Quantity,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Note:          in.Note,
		CreatedBy:     userID,
		AllowNegative: in.AllowNegative,
	}
}

// ReserveFromRequest adapta el request HTTP a Reserve.
func (m *ReservationManager) ReserveFromRequest(ctx context.Context, userID, productID string, in dto.ReserveRequest) (*entity.StockMovement, error) {
	return m.Reserve(ctx, ReservationInput{
		ProductID:     productID,
		Quantity:      in.Quantity,
		ReferenceID:   in.ReferenceID,
		ReferenceType: in.ReferenceType,
		Note:          in.Note,
		CreatedBy:     userID,
	})
}
