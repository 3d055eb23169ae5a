package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

func newProductUseCase(t *testing.T) (*usecase.ProductUseCase, *inventory.MovementLedger) {
	t.Helper()
	store := memory.New()
	clock := inventory.SystemClock{}
	ledger := inventory.NewMovementLedger(
		memory.NewTxRunner(store, lock.NewKeyedLocker(time.Second)),
		inventory.NewBalanceTracker(store.Products(), store.Movements(), clock),
		store.Movements(), clock, inventory.DefaultRetryPolicy(), zerolog.Nop(),
	)
	return usecase.NewProductUseCase(store.Products(), ledger, clock), ledger
}

func TestProductUseCase_RegisterConSaldoInicial(t *testing.T) {
	uc, ledger := newProductUseCase(t)
	ctx := context.Background()

	p, err := uc.Register(ctx, "admin", dto.RegisterProductRequest{
		SKU: " SKU-1 ", Name: "Tornillo", ReorderLevel: 5, Price: decimal.RequireFromString("1.25"), InitialStock: 40,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "SKU-1", p.SKU)
	assert.Equal(t, int64(40), p.CurrentStock)
	assert.True(t, p.IsActive)

	history, err := ledger.History(ctx, p.ID, repository.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1, "el saldo inicial entra como movimiento")
	assert.Equal(t, "opening_balance", history[0].ReferenceType)
	assert.Equal(t, "admin", history[0].CreatedBy)

	report, err := ledger.VerifyBalance(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestProductUseCase_Validaciones(t *testing.T) {
	uc, _ := newProductUseCase(t)
	ctx := context.Background()
	inactive := false

	tests := []struct {
		name string
		in   dto.RegisterProductRequest
		want error
	}{
		{"sin sku", dto.RegisterProductRequest{Name: "x"}, domain.ErrInvalidInput},
		{"sin nombre", dto.RegisterProductRequest{SKU: "x"}, domain.ErrInvalidInput},
		{"reorden negativo", dto.RegisterProductRequest{SKU: "x", Name: "x", ReorderLevel: -1}, domain.ErrInvalidInput},
		{"precio negativo", dto.RegisterProductRequest{SKU: "x", Name: "x", Price: decimal.NewFromInt(-1)}, domain.ErrInvalidInput},
		{"saldo inicial negativo", dto.RegisterProductRequest{SKU: "x", Name: "x", InitialStock: -1}, domain.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Register(ctx, "", tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	p, err := uc.Register(ctx, "", dto.RegisterProductRequest{ID: "p1", SKU: "A", Name: "A", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	assert.Zero(t, p.CurrentStock)

	_, err = uc.Register(ctx, "", dto.RegisterProductRequest{ID: "p1", SKU: "B", Name: "B"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = uc.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// failingMovements rechaza cualquier alta de movimiento.
type failingMovements struct {
	repository.StockMovementRepository
}

var errDiscoLleno = errors.New("disco lleno")

func (failingMovements) Create(context.Context, *entity.StockMovement) error { return errDiscoLleno }

// failingRunner ejecuta sobre el runner real pero con failingMovements.
type failingRunner struct {
	inner inventory.TxRunner
}

func (r failingRunner) Run(ctx context.Context, productID string, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	return r.inner.Run(ctx, productID, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		return fn(failingMovements{movRepo}, productRepo)
	})
}

func TestProductUseCase_SaldoInicialFallidoNoDejaProducto(t *testing.T) {
	store := memory.New()
	clock := inventory.SystemClock{}
	runner := memory.NewTxRunner(store, lock.NewKeyedLocker(time.Second))
	newUseCase := func(r inventory.TxRunner) *usecase.ProductUseCase {
		ledger := inventory.NewMovementLedger(r,
			inventory.NewBalanceTracker(store.Products(), store.Movements(), clock),
			store.Movements(), clock, inventory.DefaultRetryPolicy(), zerolog.Nop())
		return usecase.NewProductUseCase(store.Products(), ledger, clock)
	}
	ctx := context.Background()
	in := dto.RegisterProductRequest{ID: "p9", SKU: "SKU-9", Name: "Arandela", InitialStock: 5}

	_, err := newUseCase(failingRunner{inner: runner}).Register(ctx, "", in)
	require.ErrorIs(t, err, errDiscoLleno)

	uc := newUseCase(runner)
	_, err = uc.GetByID(ctx, "p9")
	assert.ErrorIs(t, err, domain.ErrNotFound, "el alta se revierte junto con el saldo inicial")

	p, err := uc.Register(ctx, "", in)
	require.NoError(t, err, "reintentar no choca con un duplicado")
	assert.Equal(t, int64(5), p.CurrentStock)
}
