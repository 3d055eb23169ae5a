package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

var _ inventory.Locker = (*ProductLock)(nil)

// unlockScript borra la clave solo si sigue siendo del mismo dueño (token).
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ProductLock bloqueo distribuido por producto (SET NX PX + liberación con Lua),
// para varias instancias del servicio sobre la misma base.
// Clave: {prefix}:{product_id}; valor: token aleatorio del dueño.
type ProductLock struct {
	client        *redis.Client
	prefix        string
	ttl           time.Duration
	timeout       time.Duration
	retryInterval time.Duration
	log           zerolog.Logger
}

// ProductLockConfig parámetros del bloqueo.
type ProductLockConfig struct {
	Prefix        string
	TTL           time.Duration // expiración de seguridad si el dueño cae
	Timeout       time.Duration // espera máxima para obtenerlo
	RetryInterval time.Duration
}

// NewProductLock construye el bloqueo distribuido.
func NewProductLock(client *redis.Client, cfg ProductLockConfig, log zerolog.Logger) *ProductLock {
	if cfg.Prefix == "" {
		cfg.Prefix = "stock-ledger:lock"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 25 * time.Millisecond
	}
	return &ProductLock{
		client:        client,
		prefix:        cfg.Prefix,
		ttl:           cfg.TTL,
		timeout:       cfg.Timeout,
		retryInterval: cfg.RetryInterval,
		log:           log,
	}
}

// Lock intenta SET NX hasta obtenerlo o agotar el timeout (domain.ErrConcurrencyConflict).
func (l *ProductLock) Lock(ctx context.Context, productID string) (func(), error) {
	key := l.key(productID)
	token := uuid.New().String()

	acquireCtx, cancel := ctx, context.CancelFunc(func() {})
	if l.timeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, l.timeout)
	}
	defer cancel()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-acquireCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: bloqueo %s ocupado", domain.ErrConcurrencyConflict, key)
		case <-timer.C:
		}

		ok, err := l.client.SetNX(acquireCtx, key, token, l.ttl).Result()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, fmt.Errorf("%w: bloqueo %s ocupado", domain.ErrConcurrencyConflict, key)
			}
			return nil, fmt.Errorf("redis set nx %s: %w", key, err)
		}
		if ok {
			return func() { l.unlock(key, token) }, nil
		}
		timer.Reset(l.retryInterval)
	}
}

func (l *ProductLock) unlock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := unlockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("liberar bloqueo redis")
	}
}

func (l *ProductLock) key(productID string) string {
	return fmt.Sprintf("%s:%s", l.prefix, productID)
}
