package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func reserve(t *testing.T, f *fixture, productID, ref string, q int64) *entity.StockMovement {
	t.Helper()
	mov, err := f.reservations.Reserve(context.Background(), inventory.ReservationInput{
		ProductID: productID, Quantity: q, ReferenceID: ref, CreatedBy: testUser,
	})
	require.NoError(t, err)
	return mov
}

func TestReserve_NoTocaSaldo(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p1", 10, 0, "1")

	mov := reserve(t, f, "p1", "o-1", 4)
	assert.Equal(t, entity.MovementTypeReserved, mov.Type)
	assert.Equal(t, entity.ReservationReserved, mov.ReservationStatus)
	assert.True(t, mov.IsReserved())
	assert.Equal(t, int64(10), mov.PreviousStock)
	assert.Equal(t, int64(10), mov.NewStock)
	assert.Equal(t, "order", mov.ReferenceType)
	assert.Equal(t, int64(10), f.stock(t, "p1"))

	reserved, err := f.reservations.ActiveReservedQuantity(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), reserved)
}

func TestReserve_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", 10, 0, "1")
	reserve(t, f, "p1", "o-1", 7)

	tests := []struct {
		name string
		in   inventory.ReservationInput
		want error
	}{
		{name: "cantidad cero", in: inventory.ReservationInput{ProductID: "p1", Quantity: 0, ReferenceID: "o-2"}, want: domain.ErrInvalidQuantity},
		{name: "sin referencia", in: inventory.ReservationInput{ProductID: "p1", Quantity: 1}, want: domain.ErrInvalidInput},
		{name: "supera disponible", in: inventory.ReservationInput{ProductID: "p1", Quantity: 4, ReferenceID: "o-2"}, want: domain.ErrInsufficientStock},
		{name: "referencia activa", in: inventory.ReservationInput{ProductID: "p1", Quantity: 1, ReferenceID: "o-1"}, want: domain.ErrReservationExists},
		{name: "producto inexistente", in: inventory.ReservationInput{ProductID: "nope", Quantity: 1, ReferenceID: "o-3"}, want: domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reservations.Reserve(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// justo lo disponible sí entra
	reserve(t, f, "p1", "o-2", 3)
	reserved, err := f.reservations.ActiveReservedQuantity(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), reserved)
}

func TestRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", 10, 0, "1")
	mov := reserve(t, f, "p1", "o-1", 6)

	released, err := f.reservations.Release(ctx, "p1", "o-1")
	require.NoError(t, err)
	assert.True(t, released)

	stored, err := f.store.Movements().GetByID(ctx, mov.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationReleased, stored.ReservationStatus)

	released, err = f.reservations.Release(ctx, "p1", "o-1")
	require.NoError(t, err)
	assert.False(t, released, "una reserva liberada no vuelve a liberarse")

	ok, err := f.ledger.ValidateAvailability(ctx, "p1", 10)
	require.NoError(t, err)
	assert.True(t, ok)

	// la referencia queda libre para una nueva reserva
	reserve(t, f, "p1", "o-1", 2)
}

func TestFulfill_RegistraSalidaYCierraReserva(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", 10, 0, "1")
	res := reserve(t, f, "p1", "o-1", 4)

	out, err := f.reservations.Fulfill(ctx, "p1", "o-1", "picker")
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeOut, out.Type)
	assert.Equal(t, int64(4), out.Quantity)
	assert.Equal(t, "o-1", out.ReferenceID)
	assert.Equal(t, "picker", out.CreatedBy)
	assert.Equal(t, int64(6), f.stock(t, "p1"))

	stored, err := f.store.Movements().GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationFulfilled, stored.ReservationStatus)

	reserved, err := f.reservations.ActiveReservedQuantity(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, reserved)

	_, err = f.reservations.Fulfill(ctx, "p1", "o-1", "picker")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	released, err := f.reservations.Release(ctx, "p1", "o-1")
	require.NoError(t, err)
	assert.False(t, released)
}

func TestFulfill_RevalidaSaldo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", 10, 0, "1")
	reserve(t, f, "p1", "o-1", 8)

	// una salida directa no consulta reservas
	_, err := f.ledger.StockOut(ctx, inventory.MovementInput{ProductID: "p1", Quantity: 5})
	require.NoError(t, err)

	_, err = f.reservations.Fulfill(ctx, "p1", "o-1", testUser)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(5), f.stock(t, "p1"))

	reserved, err := f.reservations.ActiveReservedQuantity(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), reserved, "la reserva sigue activa tras el rechazo")
}

func TestReserve_ConcurrenteNoSobrevende(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p1", 10, 0, "1")

	var (
		wg sync.WaitGroup
		ok atomic.Int64
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.reservations.Reserve(context.Background(), inventory.ReservationInput{
				ProductID: "p1", Quantity: 3, ReferenceID: fmt.Sprintf("o-%d", i),
			})
			if err == nil {
				ok.Add(1)
				return
			}
			if !errors.Is(err, domain.ErrInsufficientStock) {
				t.Errorf("error inesperado: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(3), ok.Load())
	reserved, err := f.reservations.ActiveReservedQuantity(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(9), reserved)
	assert.Equal(t, int64(10), f.stock(t, "p1"))
}

func TestReserve_MismaReferenciaConcurrente(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p1", 100, 0, "1")

	var (
		wg sync.WaitGroup
		ok atomic.Int64
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.reservations.Reserve(context.Background(), inventory.ReservationInput{
				ProductID: "p1", Quantity: 1, ReferenceID: "o-1",
			})
			if err == nil {
				ok.Add(1)
				return
			}
			if !errors.Is(err, domain.ErrReservationExists) {
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), ok.Load())
}

func TestFulfill_ConcurrenteExactamenteUnaVez(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p1", 10, 0, "1")
	reserve(t, f, "p1", "o-1", 4)

	var (
		wg       sync.WaitGroup
		ok       atomic.Int64
		notFound atomic.Int64
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.reservations.Fulfill(context.Background(), "p1", "o-1", testUser)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrNotFound):
				notFound.Add(1)
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), ok.Load())
	assert.Equal(t, int64(19), notFound.Load())
	assert.Equal(t, int64(6), f.stock(t, "p1"))
}
