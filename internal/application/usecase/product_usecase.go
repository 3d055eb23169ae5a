package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// openingReference tipo de referencia del movimiento de saldo inicial.
const openingReference = "opening_balance"

// ProductUseCase alta y consulta de productos. El stock solo cambia vía movimientos.
type ProductUseCase struct {
	repo   repository.ProductRepository
	ledger *inventory.MovementLedger
	clock  inventory.Clock
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository, ledger *inventory.MovementLedger, clock inventory.Clock) *ProductUseCase {
	return &ProductUseCase{repo: repo, ledger: ledger, clock: clock}
}

// Register crea el producto y, si hay saldo inicial, lo carga con un IN en la misma transacción.
func (uc *ProductUseCase) Register(ctx context.Context, userID string, in dto.RegisterProductRequest) (*dto.ProductResponse, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if in.SKU == "" || in.Name == "" || in.ReorderLevel < 0 || in.Price.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if in.InitialStock < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	now := uc.clock.Now()
	product := &entity.Product{
		ID:           in.ID,
		SKU:          in.SKU,
		Name:         in.Name,
		ReorderLevel: in.ReorderLevel,
		Price:        in.Price,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := uc.ledger.OpenProduct(ctx, product, inventory.MovementInput{
		ProductID:     product.ID,
		Quantity:      in.InitialStock,
		ReferenceType: openingReference,
		CreatedBy:     userID,
	}); err != nil {
		return nil, err
	}
	return uc.GetByID(ctx, product.ID)
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return toProductResponse(product), nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		CurrentStock: p.CurrentStock,
		ReorderLevel: p.ReorderLevel,
		Price:        p.Price,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
