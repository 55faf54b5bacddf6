package repository

import "context"

// Repositories repos atados a una misma transacción.
type Repositories struct {
	Clients   ClientGateway
	Companies CompanyGateway
	Invoices  InvoiceRepository
}

// UnitOfWork ejecuta fn dentro de una transacción: Commit si fn retorna nil, Rollback si no.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(repos Repositories) error) error
}
