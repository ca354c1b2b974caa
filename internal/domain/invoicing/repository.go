package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ExportQuery selects finalized-or-later invoices for a ledger export
type ExportQuery struct {
	From     time.Time
	To       time.Time
	IssuerID *uuid.UUID // nil means all issuers
}

// InvoiceRepository defines the persistence interface for invoices
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its sequential number within a scope
	FindByNumber(ctx context.Context, issuerID *uuid.UUID, docType DocumentType, fiscalYear int, number int64) (*Invoice, error)

	// FindExportable returns invoices in an exportable status whose issue
	// date falls within the query range, ordered by issue date ascending
	FindExportable(ctx context.Context, query ExportQuery) ([]*Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// Delete removes a draft invoice
	Delete(ctx context.Context, id uuid.UUID) error
}

// TxRepositories bundles the repositories bound to one transaction
type TxRepositories struct {
	Invoices  InvoiceRepository
	Sequences SequenceRepository
}

// TxManager runs a function inside one atomic transaction. Everything the
// function does through the provided repositories commits or rolls back
// as a unit: number allocation, status transition and invoice persistence
// are never observable separately.
type TxManager interface {
	Do(ctx context.Context, fn func(repos TxRepositories) error) error
}

// SequenceRepository defines the persistence interface for sequence
// counters. FindOrCreateForUpdate must hold an exclusive lock on the
// returned counter until the enclosing transaction ends.
type SequenceRepository interface {
	// FindOrCreateForUpdate locates the counter whose period contains the
	// date for the given scope, creating it with LastNumber zero when the
	// scope has never been seen, and locks it for the transaction
	FindOrCreateForUpdate(ctx context.Context, issuerID *uuid.UUID, date time.Time, docType DocumentType) (*SequenceCounter, error)

	// Save persists the incremented counter
	Save(ctx context.Context, counter *SequenceCounter) error
}
