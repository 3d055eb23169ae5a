package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

var _ inventory.Locker = (*KeyedLocker)(nil)

// KeyedLocker exclusión mutua por clave dentro del proceso: un semáforo de peso 1 por producto.
// Las entradas se eliminan cuando nadie las usa.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
	timeout time.Duration
}

type keyedEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// NewKeyedLocker timeout es la espera máxima por el bloqueo; 0 = solo el contexto.
func NewKeyedLocker(timeout time.Duration) *KeyedLocker {
	return &KeyedLocker{entries: make(map[string]*keyedEntry), timeout: timeout}
}

// Lock espera el bloqueo de key. Si vence el timeout devuelve domain.ErrConcurrencyConflict;
// si se cancela ctx devuelve el error del contexto.
func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &keyedEntry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	acquireCtx, cancel := ctx, context.CancelFunc(func() {})
	if l.timeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, l.timeout)
	}
	defer cancel()

	if err := e.sem.Acquire(acquireCtx, 1); err != nil {
		l.release(key, e, false)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: bloqueo de %s no disponible tras %s", domain.ErrConcurrencyConflict, key, l.timeout)
	}
	var once sync.Once
	return func() { once.Do(func() { l.release(key, e, true) }) }, nil
}

func (l *KeyedLocker) release(key string, e *keyedEntry, held bool) {
	if held {
		e.sem.Release(1)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
