package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger-api/internal/application/stock"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// Ensure TxRunner implements stock.TxRunner.
var _ stock.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
// Es el gateway de persistencia del motor: el scope transaccional más el
// SELECT FOR UPDATE sobre la fila del producto serializan a los escritores
// concurrentes del mismo scope.
type TxRunner struct {
	pool *pgxpool.Pool
	// lockTimeout acota la espera por locks dentro de la tx; 0 = sin límite.
	// Un timeout se traduce a domain.ErrTransient, no a un resultado de negocio.
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace
// Commit o Rollback. El rollback diferido cubre también errores levantados
// dentro del callback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	ledger repository.LedgerRepository,
	catalog repository.CatalogRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return translateErr(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		// SET LOCAL expira con la tx; no contamina la conexión del pool.
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
			return translateErr(fmt.Errorf("set lock_timeout: %w", err))
		}
	}

	ledgerRepo := NewLedgerRepository(tx)
	catalogRepo := NewCatalogRepository(tx)

	if err := fn(ledgerRepo, catalogRepo); err != nil {
		return translateErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translateErr(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
