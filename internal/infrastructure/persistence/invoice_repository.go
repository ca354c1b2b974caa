package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/facture/backend/internal/domain/invoicing"
	"github.com/facture/backend/internal/domain/shared"
	"github.com/facture/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements invoicing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db      *gorm.DB
	fyStart invoicing.FiscalYearStart
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB, fyStart invoicing.FiscalYearStart) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db, fyStart: fyStart}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByNumber finds an invoice by its sequential number within a scope.
// The fiscal year is translated to an issue-date range, so number lookup
// stays consistent with the numbering periods.
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, issuerID *uuid.UUID, docType invoicing.DocumentType, fiscalYear int, number int64) (*invoicing.Invoice, error) {
	anchor := time.Date(fiscalYear, r.fyStart.Month, r.fyStart.Day, 0, 0, 0, 0, time.UTC)
	start, end := r.fyStart.PeriodOf(anchor)

	query := r.db.WithContext(ctx).
		Where("document_type = ? AND number = ?", docType.String(), number).
		Where("issue_date >= ? AND issue_date < ?", start, end)
	query = scopeIssuer(query, issuerID)

	var model models.InvoiceModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindExportable returns invoices in an exportable status whose issue date
// falls within the query range, ordered by issue date then number
func (r *GormInvoiceRepository) FindExportable(ctx context.Context, q invoicing.ExportQuery) ([]*invoicing.Invoice, error) {
	statuses := make([]string, 0, len(invoicing.ExportableStatuses()))
	for _, s := range invoicing.ExportableStatuses() {
		statuses = append(statuses, s.String())
	}

	query := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("issue_date >= ? AND issue_date <= ?", q.From, q.To)
	query = scopeIssuer(query, q.IssuerID)

	var invoiceModels []models.InvoiceModel
	if err := query.Order("issue_date ASC, number ASC").Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]*invoicing.Invoice, 0, len(invoiceModels))
	for i := range invoiceModels {
		inv, err := invoiceModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	var model models.InvoiceModel
	if err := model.FromDomain(invoice); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// Delete removes a draft invoice. Finalized invoices are immutable and
// must be voided through cancellation or a credit note.
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, invoicing.InvoiceStatusDraft.String()).
		Delete(&models.InvoiceModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// scopeIssuer filters by issuer, treating a nil issuer as the
// single-issuer installation scope
func scopeIssuer(query *gorm.DB, issuerID *uuid.UUID) *gorm.DB {
	if issuerID == nil {
		return query
	}
	return query.Where("issuer_id = ?", *issuerID)
}
