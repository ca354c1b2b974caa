package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/facture/backend/internal/domain/invoicing"
	"github.com/facture/backend/internal/domain/shared"
	"github.com/facture/backend/internal/infrastructure/persistence/models"
)

// GormSequenceRepository implements invoicing.SequenceRepository using GORM.
// It must run inside a transaction: the row lock taken by
// FindOrCreateForUpdate lives until that transaction commits or rolls
// back, which is what keeps numbering gap-free under concurrency.
type GormSequenceRepository struct {
	db      *gorm.DB
	fyStart invoicing.FiscalYearStart
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB, fyStart invoicing.FiscalYearStart) *GormSequenceRepository {
	return &GormSequenceRepository{db: db, fyStart: fyStart}
}

// FindOrCreateForUpdate locates the counter for the scope containing the
// date, creating it when the scope has never issued a number, and locks
// the row for the remainder of the transaction. Two transactions racing
// to create the same scope are resolved by the unique index: the loser
// surfaces a transient conflict and the caller reruns its transaction,
// which then finds the winner's row. Re-selecting in place is not an
// option on postgres, where the failed insert has already aborted the
// transaction.
func (r *GormSequenceRepository) FindOrCreateForUpdate(ctx context.Context, issuerID *uuid.UUID, date time.Time, docType invoicing.DocumentType) (*invoicing.SequenceCounter, error) {
	fiscalYear := r.fyStart.YearOf(date)

	counter, err := r.findForUpdate(ctx, issuerID, fiscalYear, docType)
	if err == nil {
		return counter, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translateLockError(err)
	}

	fresh := invoicing.NewSequenceCounter(issuerID, docType, date, r.fyStart)
	var model models.SequenceCounterModel
	model.FromDomain(fresh)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrConcurrencyConflict
		}
		return nil, translateLockError(err)
	}
	return model.ToDomain(), nil
}

// Save persists the incremented counter
func (r *GormSequenceRepository) Save(ctx context.Context, counter *invoicing.SequenceCounter) error {
	var model models.SequenceCounterModel
	model.FromDomain(counter)
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *GormSequenceRepository) findForUpdate(ctx context.Context, issuerID *uuid.UUID, fiscalYear int, docType invoicing.DocumentType) (*invoicing.SequenceCounter, error) {
	query := r.db.WithContext(ctx).
		Where("fiscal_year = ? AND document_type = ?", fiscalYear, docType.String())
	if issuerID == nil {
		query = query.Where("issuer_id IS NULL")
	} else {
		query = query.Where("issuer_id = ?", *issuerID)
	}
	// SQLite serializes writers at the connection level; it neither
	// supports nor needs FOR UPDATE.
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.SequenceCounterModel
	if err := query.First(&model).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// isUniqueViolation reports whether the error is a unique index violation
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key value")
}

// translateLockError maps lock contention to the domain's transient
// conflict error so callers know the whole transaction is retryable.
// The postgres driver is pgx-based, so driver errors arrive as
// *pgconn.PgError; the string checks cover sqlite's busy states.
func translateLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return shared.ErrConcurrencyConflict
		}
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return shared.ErrConcurrencyConflict
	}
	return err
}
