package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	inv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stock-ledger/internal/infrastructure/redis"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

type services struct {
	ledger       *inventory.MovementLedger
	reservations *inventory.ReservationManager
	monitor      *inventory.ReplenishmentMonitor
	products     *usecase.ProductUseCase
}

// storage repositorios de lectura y el runner transaccional del backend elegido.
type storage struct {
	txRunner  inventory.TxRunner
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	close     func()
}

// buildServices cablea el backend (postgres o memoria), el bloqueo y los servicios del libro.
func buildServices(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*services, func(), error) {
	var (
		st  *storage
		err error
	)
	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		st = newMemoryStorage(cfg)
	default:
		st, err = newPostgresStorage(ctx, cfg, log)
	}
	if err != nil {
		return nil, nil, err
	}

	turnover, err := inv.NewTurnoverCalculator(cfg.Ledger.TurnoverMethod)
	if err != nil {
		st.close()
		return nil, nil, err
	}

	clock := inventory.SystemClock{}
	retry := inventory.RetryPolicy{
		MaxRetries:      uint64(cfg.Ledger.MaxRetries),
		InitialInterval: cfg.Ledger.RetryInitial,
		MaxInterval:     inventory.DefaultRetryPolicy().MaxInterval,
	}
	balances := inventory.NewBalanceTracker(st.products, st.movements, clock)
	ledger := inventory.NewMovementLedger(st.txRunner, balances, st.movements, clock, retry, log)
	monitor := inventory.NewReplenishmentMonitor(st.products, st.movements, turnover, inventory.ReplenishmentConfig{
		TurnoverWindow:      cfg.Ledger.TurnoverWindow(),
		ReorderTargetFactor: decimal.NewFromFloat(cfg.Ledger.ReorderTargetFactor),
	}, clock)

	return &services{
		ledger:       ledger,
		reservations: inventory.NewReservationManager(ledger),
		monitor:      monitor,
		products:     usecase.NewProductUseCase(st.products, ledger, clock),
	}, st.close, nil
}

func newMemoryStorage(cfg *config.Config) *storage {
	store := memory.New()
	return &storage{
		txRunner:  memory.NewTxRunner(store, lock.NewKeyedLocker(cfg.Ledger.LockTimeout)),
		products:  store.Products(),
		movements: store.Movements(),
		close:     func() {},
	}
}

func newPostgresStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migraciones: %w", err)
	}

	closers := []func(){pool.Close}
	var locker inventory.Locker
	if cfg.Ledger.Lock == config.LockRedis {
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("conexión a Redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		locker = infraredis.NewProductLock(client, infraredis.ProductLockConfig{
			Timeout: cfg.Ledger.LockTimeout,
		}, log)
	}

	return &storage{
		txRunner:  postgres.NewTxRunner(pool, locker, cfg.Ledger.LockTimeout),
		products:  postgres.NewProductRepository(pool),
		movements: postgres.NewStockMovementRepository(pool),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}
