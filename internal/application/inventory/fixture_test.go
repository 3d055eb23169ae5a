package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	inv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var testNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

const testUser = "user-1"

// testClock reloj manual y seguro para goroutines.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fixture servicios del libro cableados sobre el backend en memoria.
type fixture struct {
	store        *memory.Store
	locker       *lock.KeyedLocker
	clock        *testClock
	ledger       *inventory.MovementLedger
	reservations *inventory.ReservationManager
	monitor      *inventory.ReplenishmentMonitor
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	lockTimeout time.Duration
	retry       inventory.RetryPolicy
	wrap        func(inventory.TxRunner) inventory.TxRunner
	turnover    inv.TurnoverCalculator
}

func withLockTimeout(d time.Duration) fixtureOption {
	return func(c *fixtureConfig) { c.lockTimeout = d }
}

func withRetry(p inventory.RetryPolicy) fixtureOption {
	return func(c *fixtureConfig) { c.retry = p }
}

func withTxRunner(wrap func(inventory.TxRunner) inventory.TxRunner) fixtureOption {
	return func(c *fixtureConfig) { c.wrap = wrap }
}

func withTurnover(calc inv.TurnoverCalculator) fixtureOption {
	return func(c *fixtureConfig) { c.turnover = calc }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{
		lockTimeout: 5 * time.Second,
		retry:       inventory.RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
		turnover:    inv.EndpointTurnover{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := memory.New()
	locker := lock.NewKeyedLocker(cfg.lockTimeout)
	var runner inventory.TxRunner = memory.NewTxRunner(store, locker)
	if cfg.wrap != nil {
		runner = cfg.wrap(runner)
	}
	clock := &testClock{now: testNow}
	balances := inventory.NewBalanceTracker(store.Products(), store.Movements(), clock)
	ledger := inventory.NewMovementLedger(runner, balances, store.Movements(), clock, cfg.retry, zerolog.Nop())
	return &fixture{
		store:        store,
		locker:       locker,
		clock:        clock,
		ledger:       ledger,
		reservations: inventory.NewReservationManager(ledger),
		monitor: inventory.NewReplenishmentMonitor(store.Products(), store.Movements(), cfg.turnover,
			inventory.DefaultReplenishmentConfig(), clock),
	}
}

// product crea un producto activo con saldo 0 y, si stock > 0, lo carga con un IN.
func (f *fixture) product(t *testing.T, id string, stock, reorderLevel int64, price string) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID:           id,
		SKU:          "SKU-" + id,
		Name:         "Producto " + id,
		ReorderLevel: reorderLevel,
		Price:        decimal.RequireFromString(price),
		IsActive:     true,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	if stock > 0 {
		_, err := f.ledger.StockIn(context.Background(), inventory.MovementInput{
			ProductID: id, Quantity: stock, ReferenceType: "purchase", CreatedBy: testUser,
		})
		require.NoError(t, err)
	}
	return p
}

func (f *fixture) stock(t *testing.T, id string) int64 {
	t.Helper()
	s, err := f.ledger.GetCurrentStock(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (f *fixture) history(t *testing.T, id string) []*entity.StockMovement {
	t.Helper()
	list, err := f.store.Movements().ListForReplay(context.Background(), id)
	require.NoError(t, err)
	return list
}

// txRunnerFunc adapta una función al puerto TxRunner.
type txRunnerFunc func(ctx context.Context, productID string, fn func(repository.StockMovementRepository, repository.ProductRepository) error) error

func (f txRunnerFunc) Run(ctx context.Context, productID string, fn func(repository.StockMovementRepository, repository.ProductRepository) error) error {
	return f(ctx, productID, fn)
}
