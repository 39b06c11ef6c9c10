package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tidianefall/cliniq-api/internal/application/billing"
)

var _ billing.TxRunner = (*TxRunner)(nil)

// TxRunner exécute des callbacks dans une transaction PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construit le runner avec le pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run démarre une transaction, exécute fn avec des repos attachés à la tx,
// puis Commit ou Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos billing.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := billing.Repos{
		Patients:   NewPatientRepository(tx),
		Products:   NewProductRepository(tx),
		Invoices:   NewInvoiceRepository(tx),
		Payments:   NewPaymentRepository(tx),
		Operations: NewOperationRepository(tx),
	}

	if err := fn(repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
