package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	inv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// MovementLedger registra entradas, salidas y ajustes de forma transaccional: cada operación
// bloquea el producto, actualiza el saldo y agrega el movimiento en un único Commit/Rollback.
type MovementLedger struct {
	txRunner  TxRunner
	balances  *BalanceTracker
	movements repository.StockMovementRepository
	clock     Clock
	retry     RetryPolicy
	log       zerolog.Logger
}

// NewMovementLedger construye el libro de movimientos.
func NewMovementLedger(
	txRunner TxRunner,
	balances *BalanceTracker,
	movements repository.StockMovementRepository,
	clock Clock,
	retry RetryPolicy,
	log zerolog.Logger,
) *MovementLedger {
	return &MovementLedger{
		txRunner:  txRunner,
		balances:  balances,
		movements: movements,
		clock:     clock,
		retry:     retry,
		log:       log.With().Str("component", "movement_ledger").Logger(),
	}
}

// MovementInput entrada para StockIn / StockOut.
type MovementInput struct {
	ProductID     string
	Quantity      int64
	ReferenceType string // motivo: compra, venta, devolución, ...
	ReferenceID   string
	Note          string
	CreatedBy     string
	AllowNegative bool // solo StockOut: permite dejar el saldo en negativo
}

// AdjustmentInput entrada para StockAdjustment (resultado de un conteo físico).
type AdjustmentInput struct {
	ProductID   string
	ActualStock int64
	Note        string
	CreatedBy   string
}

type txFunc func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error

// atomic ejecuta fn con el producto bloqueado, reintentando solo conflictos de concurrencia.
func (l *MovementLedger) atomic(ctx context.Context, op, productID string, fn txFunc) error {
	return l.retry.Do(ctx, l.log, op, func() error {
		return l.txRunner.Run(ctx, productID, fn)
	})
}

// lockProduct obtiene el producto bloqueado dentro de la transacción.
func lockProduct(ctx context.Context, productRepo repository.ProductRepository, productID string) (*entity.Product, error) {
	product, err := productRepo.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	return product, nil
}

// StockIn suma quantity al saldo y registra un movimiento IN.
func (l *MovementLedger) StockIn(ctx context.Context, in MovementInput) (*entity.StockMovement, error) {
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	var out *entity.StockMovement
	err := l.atomic(ctx, "stock_in", in.ProductID, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		product, err := lockProduct(ctx, productRepo, in.ProductID)
		if err != nil {
			return err
		}
		out, err = l.record(ctx, movRepo, productRepo, product, &entity.StockMovement{
			Type:          entity.MovementTypeIn,
			Quantity:      in.Quantity,
			ReferenceType: in.ReferenceType,
			ReferenceID:   in.ReferenceID,
			Note:          in.Note,
			CreatedBy:     in.CreatedBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OpenProduct da de alta el producto y, si opening.Quantity > 0, registra su saldo inicial
// como IN en la misma transacción: si la entrada falla el producto tampoco queda creado.
func (l *MovementLedger) OpenProduct(ctx context.Context, product *entity.Product, opening MovementInput) (*entity.StockMovement, error) {
	if product.ID == "" {
		return nil, domain.ErrInvalidInput
	}
	if opening.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	var out *entity.StockMovement
	err := l.atomic(ctx, "open_product", product.ID, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		out = nil
		created := *product
		if err := productRepo.Create(ctx, &created); err != nil {
			return err
		}
		if opening.Quantity == 0 {
			return nil
		}
		locked, err := lockProduct(ctx, productRepo, created.ID)
		if err != nil {
			return err
		}
		out, err = l.record(ctx, movRepo, productRepo, locked, &entity.StockMovement{
			Type:          entity.MovementTypeIn,
			Quantity:      opening.Quantity,
			ReferenceType: opening.ReferenceType,
			ReferenceID:   opening.ReferenceID,
			Note:          opening.Note,
			CreatedBy:     opening.CreatedBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StockOut resta quantity del saldo y registra un movimiento OUT.
// Sin AllowNegative falla con ErrInsufficientStock si el saldo quedaría negativo.
func (l *MovementLedger) StockOut(ctx context.Context, in MovementInput) (*entity.StockMovement, error) {
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	var out *entity.StockMovement
	err := l.atomic(ctx, "stock_out", in.ProductID, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		product, err := lockProduct(ctx, productRepo, in.ProductID)
		if err != nil {
			return err
		}
		out, err = l.stockOutTx(ctx, movRepo, productRepo, product, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// stockOutTx ejecuta una salida con los repositorios de la transacción del llamador
// (producto ya bloqueado). La usa también ReservationManager.Fulfill.
func (l *MovementLedger) stockOutTx(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	product *entity.Product,
	in MovementInput,
) (*entity.StockMovement, error) {
	if !in.AllowNegative && product.CurrentStock < in.Quantity {
		return nil, fmt.Errorf("%w: producto %s tiene %d, se solicitan %d",
			domain.ErrInsufficientStock, product.ID, product.CurrentStock, in.Quantity)
	}
	return l.record(ctx, movRepo, productRepo, product, &entity.StockMovement{
		Type:          entity.MovementTypeOut,
		Quantity:      in.Quantity,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Note:          in.Note,
		CreatedBy:     in.CreatedBy,
	})
}

// StockAdjustment lleva el saldo al conteo físico ActualStock.
// Si ya coincide devuelve nil, nil y no registra nada.
func (l *MovementLedger) StockAdjustment(ctx context.Context, in AdjustmentInput) (*entity.StockMovement, error) {
	if in.ActualStock < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	var out *entity.StockMovement
	err := l.atomic(ctx, "stock_adjustment", in.ProductID, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		out = nil
		product, err := lockProduct(ctx, productRepo, in.ProductID)
		if err != nil {
			return err
		}
		adj, ok, err := inv.CalculateAdjustment(product.CurrentStock, in.ActualStock)
		if err != nil || !ok {
			return err
		}
		out, err = l.record(ctx, movRepo, productRepo, product, &entity.StockMovement{
			Type:           entity.MovementTypeAdjustment,
			Quantity:       adj.Quantity,
			AdjustmentType: adj.Type,
			ReferenceType:  "physical_count",
			Note:           in.Note,
			CreatedBy:      in.CreatedBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// record aplica el delta del movimiento al saldo y lo agrega al libro con sus snapshots.
func (l *MovementLedger) record(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	product *entity.Product,
	mov *entity.StockMovement,
) (*entity.StockMovement, error) {
	next, err := inv.ApplyDelta(product.CurrentStock, mov.SignedDelta())
	if err != nil {
		return nil, err
	}
	previous, err := l.balances.apply(ctx, productRepo, product, next)
	if err != nil {
		return nil, err
	}
	mov.ProductID = product.ID
	mov.PreviousStock = previous
	mov.NewStock = product.CurrentStock
	mov.CreatedAt = product.UpdatedAt
	if err := movRepo.Create(ctx, mov); err != nil {
		return nil, err
	}
	l.log.Debug().
		Str("product_id", product.ID).
		Str("type", string(mov.Type)).
		Int64("quantity", mov.Quantity).
		Int64("previous_stock", mov.PreviousStock).
		Int64("new_stock", mov.NewStock).
		Msg("movimiento registrado")
	return mov, nil
}

// GetCurrentStock lectura O(1) del saldo en caché; nunca reconstruye desde el historial.
func (l *MovementLedger) GetCurrentStock(ctx context.Context, productID string) (int64, error) {
	return l.balances.Current(ctx, productID)
}

// ValidateAvailability indica si quantity <= saldo - reservas activas.
func (l *MovementLedger) ValidateAvailability(ctx context.Context, productID string, quantity int64) (bool, error) {
	if quantity <= 0 {
		return false, domain.ErrInvalidQuantity
	}
	available, err := l.Available(ctx, productID)
	if err != nil {
		return false, err
	}
	return quantity <= available, nil
}

// Available saldo menos la suma de reservas activas.
func (l *MovementLedger) Available(ctx context.Context, productID string) (int64, error) {
	current, err := l.balances.Current(ctx, productID)
	if err != nil {
		return 0, err
	}
	reserved, err := l.movements.SumActiveReserved(ctx, productID)
	if err != nil {
		return 0, err
	}
	return current - reserved, nil
}

// StockLevel saldo en caché, reservas activas y disponible del producto.
func (l *MovementLedger) StockLevel(ctx context.Context, productID string) (*dto.StockLevelDTO, error) {
	current, err := l.balances.Current(ctx, productID)
	if err != nil {
		return nil, err
	}
	reserved, err := l.movements.SumActiveReserved(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &dto.StockLevelDTO{
		ProductID:    productID,
		CurrentStock: current,
		Reserved:     reserved,
		Available:    current - reserved,
	}, nil
}

// Availability igual que ValidateAvailability pero con el detalle del saldo usado.
func (l *MovementLedger) Availability(ctx context.Context, productID string, quantity int64) (*dto.AvailabilityDTO, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	level, err := l.StockLevel(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &dto.AvailabilityDTO{
		StockLevelDTO: *level,
		Quantity:      quantity,
		IsAvailable:   quantity <= level.Available,
	}, nil
}

// History historial paginado del producto, más reciente primero.
func (l *MovementLedger) History(ctx context.Context, productID string, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	if _, err := l.balances.Current(ctx, productID); err != nil {
		return nil, err
	}
	page := dto.PageRequest{Limit: filter.Limit, Offset: filter.Offset}
	page.DefaultPage()
	filter.Limit, filter.Offset = page.Limit, page.Offset
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return l.movements.ListByProduct(ctx, productID, filter)
}

// VerifyBalance reconstruye el saldo desde el historial con el producto bloqueado y lo compara
// con el valor en caché. Es una verificación de consistencia, no el mecanismo de lectura.
func (l *MovementLedger) VerifyBalance(ctx context.Context, productID string) (*ReplayReport, error) {
	var report *ReplayReport
	err := l.atomic(ctx, "verify_balance", productID, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		product, err := lockProduct(ctx, productRepo, productID)
		if err != nil {
			return err
		}
		report, err = l.balances.verify(ctx, movRepo, product)
		return err
	})
	if errors.Is(err, domain.ErrLedgerDrift) {
		l.log.Error().Err(err).Str("product_id", productID).Msg("descuadre entre saldo y libro")
	}
	return report, err
}
