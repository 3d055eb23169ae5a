package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

var at = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*memory.Store, *memory.TxRunner) {
	t.Helper()
	s := memory.New()
	require.NoError(t, s.Products().Create(context.Background(), &entity.Product{ID: "p1", IsActive: true, Price: decimal.NewFromInt(1)}))
	return s, memory.NewTxRunner(s, lock.NewKeyedLocker(time.Second))
}

func inMovement(productID string, prev, q int64) *entity.StockMovement {
	return &entity.StockMovement{
		ProductID: productID, Type: entity.MovementTypeIn, Quantity: q,
		PreviousStock: prev, NewStock: prev + q, CreatedAt: at,
	}
}

func TestProductRepo_Create(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	p := &entity.Product{IsActive: true}
	require.NoError(t, s.Products().Create(ctx, p))
	assert.NotEmpty(t, p.ID, "se asigna un ID si viene vacío")

	assert.ErrorIs(t, s.Products().Create(ctx, &entity.Product{ID: p.ID}), domain.ErrDuplicate)
	assert.ErrorIs(t, s.Products().Create(ctx, &entity.Product{ReorderLevel: -1}), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.Products().Create(ctx, &entity.Product{Price: decimal.NewFromInt(-1)}), domain.ErrInvalidInput)

	missing, err := s.Products().GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProductRepo_DevuelveCopias(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	p, err := s.Products().GetByID(ctx, "p1")
	require.NoError(t, err)
	p.CurrentStock = 1000

	again, err := s.Products().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, again.CurrentStock)
}

func TestTxRunner_CommitAplicaTodo(t *testing.T) {
	s, runner := newStore(t)
	ctx := context.Background()

	err := runner.Run(ctx, "p1", func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		require.NoError(t, productRepo.UpdateStock(ctx, "p1", 5, at))
		require.NoError(t, movRepo.Create(ctx, inMovement("p1", 0, 5)))

		// la propia transacción ve sus cambios; fuera aún no
		p, err := productRepo.GetForUpdate(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, int64(5), p.CurrentStock)
		outside, err := s.Products().GetByID(ctx, "p1")
		require.NoError(t, err)
		assert.Zero(t, outside.CurrentStock)
		return nil
	})
	require.NoError(t, err)

	p, err := s.Products().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.CurrentStock)
	assert.Equal(t, at, p.UpdatedAt)

	list, err := s.Movements().ListForReplay(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].Sequence)
}

func TestTxRunner_ErrorDescartaCambios(t *testing.T) {
	s, runner := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := runner.Run(ctx, "p1", func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		require.NoError(t, productRepo.UpdateStock(ctx, "p1", 5, at))
		require.NoError(t, movRepo.Create(ctx, inMovement("p1", 0, 5)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.Products().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, p.CurrentStock)
	list, err := s.Movements().ListForReplay(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTxRunner_ContextoCanceladoNoConfirma(t *testing.T) {
	s, runner := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := runner.Run(ctx, "p1", func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		require.NoError(t, productRepo.UpdateStock(ctx, "p1", 5, at))
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	p, err := s.Products().GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Zero(t, p.CurrentStock)
}

func TestMovementRepo_Restricciones(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	bad := inMovement("p1", 0, 0)
	assert.ErrorIs(t, s.Movements().Create(ctx, bad), domain.ErrInvalidQuantity)

	bad = inMovement("p1", 0, 1)
	bad.Type = "GIFT"
	assert.ErrorIs(t, s.Movements().Create(ctx, bad), domain.ErrInvalidInput)
}

func TestMovementRepo_TransicionCondicional(t *testing.T) {
	s, runner := newStore(t)
	ctx := context.Background()
	res := &entity.StockMovement{
		ProductID: "p1", Type: entity.MovementTypeReserved, Quantity: 2,
		ReferenceID: "o-1", ReservationStatus: entity.ReservationReserved, CreatedAt: at,
	}
	require.NoError(t, s.Movements().Create(ctx, res))

	sum, err := s.Movements().SumActiveReserved(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum)

	err = runner.Run(ctx, "p1", func(movRepo repository.StockMovementRepository, _ repository.ProductRepository) error {
		if err := movRepo.UpdateReservationStatus(ctx, res.ID, entity.ReservationReserved, entity.ReservationReleased); err != nil {
			return err
		}
		active, err := movRepo.FindActiveReservation(ctx, "p1", "o-1")
		require.NoError(t, err)
		assert.Nil(t, active, "la transacción ve su propia transición")
		return nil
	})
	require.NoError(t, err)

	stored, err := s.Movements().GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationReleased, stored.ReservationStatus)

	err = s.Movements().UpdateReservationStatus(ctx, res.ID, entity.ReservationReserved, entity.ReservationFulfilled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	sum, err = s.Movements().SumActiveReserved(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestMovementRepo_ListBetweenExcluyeReservas(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Movements().Create(ctx, inMovement("p1", 0, 3)))
	require.NoError(t, s.Movements().Create(ctx, &entity.StockMovement{
		ProductID: "p1", Type: entity.MovementTypeReserved, Quantity: 1, ReferenceID: "o-1",
		ReservationStatus: entity.ReservationReserved, CreatedAt: at,
	}))
	late := inMovement("p1", 3, 2)
	late.CreatedAt = at.Add(48 * time.Hour)
	require.NoError(t, s.Movements().Create(ctx, late))

	list, err := s.Movements().ListBetween(ctx, at, at.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.MovementTypeIn, list[0].Type)
}
