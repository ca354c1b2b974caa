package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/facture/backend/internal/domain/invoicing"
)

// GormTxManager implements invoicing.TxManager on a GORM connection.
// Repositories handed to the callback are bound to one transaction, so a
// number allocation and the invoice state change it belongs to commit or
// roll back together.
type GormTxManager struct {
	db      *gorm.DB
	fyStart invoicing.FiscalYearStart
}

// NewGormTxManager creates a new GormTxManager
func NewGormTxManager(db *gorm.DB, fyStart invoicing.FiscalYearStart) *GormTxManager {
	return &GormTxManager{db: db, fyStart: fyStart}
}

// Do runs fn inside a single database transaction
func (m *GormTxManager) Do(ctx context.Context, fn func(repos invoicing.TxRepositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(invoicing.TxRepositories{
			Invoices:  NewGormInvoiceRepository(tx, m.fyStart),
			Sequences: NewGormSequenceRepository(tx, m.fyStart),
		})
	})
}

// GormNumberAllocator implements invoicing.NumberAllocator by running a
// locked counter increment in its own transaction. It exists for callers
// that need a number outside an invoice finalization, such as backfills.
type GormNumberAllocator struct {
	tx invoicing.TxManager
}

// NewGormNumberAllocator creates a new GormNumberAllocator
func NewGormNumberAllocator(tx invoicing.TxManager) *GormNumberAllocator {
	return &GormNumberAllocator{tx: tx}
}

// AllocateNumber mints the next sequential number for the scope
func (a *GormNumberAllocator) AllocateNumber(ctx context.Context, issuerID *uuid.UUID, date time.Time, docType invoicing.DocumentType) (int64, error) {
	var number int64
	err := a.tx.Do(ctx, func(repos invoicing.TxRepositories) error {
		counter, err := repos.Sequences.FindOrCreateForUpdate(ctx, issuerID, date, docType)
		if err != nil {
			return err
		}
		number = counter.Next()
		return repos.Sequences.Save(ctx, counter)
	})
	if err != nil {
		return 0, err
	}
	return number, nil
}
