package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/vitrina-stock/internal/application/inventory"
	"github.com/jhoicas/vitrina-stock/internal/domain/repository"
)

// Ensure TxRunner implements inventory.TxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)

// ErrRetriesExhausted la transacción siguió chocando con bloqueos después de todos los reintentos.
var ErrRetriesExhausted = errors.New("postgres: reintentos agotados por contención de bloqueos")

// TxOptions límites de espera de cada transacción.
type TxOptions struct {
	LockTimeout time.Duration // SET LOCAL lock_timeout; 0 = el del servidor
	MaxRetries  int
	BaseBackoff time.Duration
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
	opts TxOptions
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, opts TxOptions) *TxRunner {
	return &TxRunner{pool: pool, opts: opts}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Si la tx falla por lock_timeout, deadlock o serialización se repite completa con backoff exponencial.
func (r *TxRunner) Run(ctx context.Context, fn func(
	invRepo repository.InventoryRepository,
	ledgerRepo repository.LedgerRepository,
	productRepo repository.ProductRepository,
) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = r.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		if attempt >= r.opts.MaxRetries {
			return fmt.Errorf("%w (%d intentos): %v", ErrRetriesExhausted, attempt+1, err)
		}
		select {
		case <-time.After(r.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(
	invRepo repository.InventoryRepository,
	ledgerRepo repository.LedgerRepository,
	productRepo repository.ProductRepository,
) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.opts.LockTimeout > 0 {
		// set_config(..., true) equivale a SET LOCAL y admite parámetros
		timeout := fmt.Sprintf("%dms", r.opts.LockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", timeout); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(NewInventoryRepository(tx), NewLedgerRepository(tx), NewProductRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// backoff base * 2^attempt con jitter de hasta la mitad.
func (r *TxRunner) backoff(attempt int) time.Duration {
	base := r.opts.BaseBackoff
	if base <= 0 {
		base = 10 * time.Millisecond
	}
	d := base << attempt
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}
