package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/cartaporte-api/internal/domain/repository"
)

var _ repository.UnitOfWork = (*TxRunner)(nil)

// TxRunner unidad de trabajo sobre una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(Repositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repositories arma los repos sobre q (pool para lecturas sueltas, tx dentro de Run).
func Repositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Clients:   NewClientRepository(q),
		Companies: NewCompanyRepository(q),
		Invoices:  NewInvoiceRepository(q),
	}
}
