package inventory

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// RetryPolicy reintentos acotados ante domain.ErrConcurrencyConflict.
// Los errores de validación nunca se reintentan.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy 3 reintentos empezando en 20ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialInterval: 20 * time.Millisecond, MaxInterval: 500 * time.Millisecond}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, p.MaxRetries), ctx)
}

// Do ejecuta fn y la repite mientras falle con un error transitorio.
func (p RetryPolicy) Do(ctx context.Context, log zerolog.Logger, op string, fn func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := fn()
		if err == nil || domain.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		log.Warn().Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("conflicto de concurrencia, reintentando")
	})
}
