package accounting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facture/backend/internal/domain/accounting"
	"github.com/facture/backend/internal/domain/invoicing"
	"github.com/facture/backend/internal/domain/shared"
	"github.com/facture/backend/internal/domain/shared/valueobject"
	"github.com/facture/backend/internal/infrastructure/logger"
)

// stubInvoiceRepo serves a fixed invoice list to the export service
type stubInvoiceRepo struct {
	invoices  []*invoicing.Invoice
	err       error
	lastQuery invoicing.ExportQuery
	lastCtx   context.Context
}

func (r *stubInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	return nil, shared.ErrNotFound
}

func (r *stubInvoiceRepo) FindByNumber(ctx context.Context, issuerID *uuid.UUID, docType invoicing.DocumentType, fiscalYear int, number int64) (*invoicing.Invoice, error) {
	return nil, shared.ErrNotFound
}

func (r *stubInvoiceRepo) FindExportable(ctx context.Context, query invoicing.ExportQuery) ([]*invoicing.Invoice, error) {
	r.lastQuery = query
	r.lastCtx = ctx
	return r.invoices, r.err
}

func (r *stubInvoiceRepo) Save(ctx context.Context, inv *invoicing.Invoice) error { return nil }
func (r *stubInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error         { return nil }

func testChart() accounting.ChartOfAccounts {
	return accounting.ChartOfAccounts{
		JournalCode:  "VE",
		JournalLabel: "Ventes",
		Customer:     accounting.Account{Number: "411000", Label: "Clients"},
		Sales:        accounting.Account{Number: "706000", Label: "Prestations de services"},
		VATByRate: map[string]accounting.Account{
			"20": {Number: "445712", Label: "TVA collectée 20%"},
		},
		VATFallback: accounting.Account{Number: "445710", Label: "TVA collectée"},
	}
}

func finalizedInvoice(t *testing.T, docType invoicing.DocumentType, number int64, issueDate time.Time) *invoicing.Invoice {
	t.Helper()
	inv, err := invoicing.NewInvoice(nil, docType, "Acme SARL", "C0042", issueDate, nil)
	require.NoError(t, err)
	unitPrice, err := valueobject.NewMoneyFromString("100.00")
	require.NoError(t, err)
	line := invoicing.NewInvoiceLine("Consulting", decimal.NewFromInt(3), unitPrice, decimal.NewFromInt(20))
	require.NoError(t, inv.AddLine(line))
	require.NoError(t, inv.Finalize(number))
	inv.ClearDomainEvents()
	return inv
}

func TestExportService_ExportLedger(t *testing.T) {
	issueDate := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	repo := &stubInvoiceRepo{invoices: []*invoicing.Invoice{
		finalizedInvoice(t, invoicing.DocumentTypeInvoice, 1, issueDate),
	}}
	service := NewExportService(repo, testChart())

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	output, err := service.ExportLedger(context.Background(), from, to, nil)
	require.NoError(t, err)

	lines := strings.Split(output, "\n")
	// Header plus customer, sales and one VAT row.
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "JournalCode|JournalLib|EcritureNum|"))

	customer := strings.Split(lines[1], "|")
	require.Len(t, customer, 18)
	assert.Equal(t, "VE", customer[0])
	assert.Equal(t, "411000", customer[4])
	assert.Equal(t, "C0042", customer[6])
	assert.Equal(t, "FA-2025-00001", customer[8])
	assert.Equal(t, "20250315", customer[3])
	assert.Equal(t, "360.00", customer[11]) // debit
	assert.Equal(t, "0.00", customer[12])   // credit

	sales := strings.Split(lines[2], "|")
	assert.Equal(t, "706000", sales[4])
	assert.Equal(t, "0.00", sales[11])
	assert.Equal(t, "300.00", sales[12])

	vat := strings.Split(lines[3], "|")
	assert.Equal(t, "445712", vat[4])
	assert.Equal(t, "0.00", vat[11])
	assert.Equal(t, "60.00", vat[12])
}

func TestExportService_ExportLedger_CreditNoteInvertsPolarity(t *testing.T) {
	issueDate := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	repo := &stubInvoiceRepo{invoices: []*invoicing.Invoice{
		finalizedInvoice(t, invoicing.DocumentTypeCreditNote, 1, issueDate),
	}}
	service := NewExportService(repo, testChart())

	output, err := service.ExportLedger(context.Background(), issueDate, issueDate, nil)
	require.NoError(t, err)

	lines := strings.Split(output, "\n")
	require.Len(t, lines, 4)

	customer := strings.Split(lines[1], "|")
	assert.Equal(t, "AV-2025-00001", customer[8])
	assert.Equal(t, "0.00", customer[11])
	assert.Equal(t, "360.00", customer[12]) // receivable credited

	sales := strings.Split(lines[2], "|")
	assert.Equal(t, "300.00", sales[11]) // sales debited
	assert.Equal(t, "0.00", sales[12])
}

func TestExportService_ExportLedger_BalancedOutput(t *testing.T) {
	issueDate := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	repo := &stubInvoiceRepo{invoices: []*invoicing.Invoice{
		finalizedInvoice(t, invoicing.DocumentTypeInvoice, 1, issueDate),
		finalizedInvoice(t, invoicing.DocumentTypeCreditNote, 1, issueDate),
		finalizedInvoice(t, invoicing.DocumentTypeInvoice, 2, issueDate.AddDate(0, 1, 0)),
	}}
	service := NewExportService(repo, testChart())

	output, err := service.ExportLedger(context.Background(), issueDate, issueDate.AddDate(0, 2, 0), nil)
	require.NoError(t, err)

	lines := strings.Split(output, "\n")
	debit := decimal.Zero
	credit := decimal.Zero
	for _, line := range lines[1:] {
		fields := strings.Split(line, "|")
		require.Len(t, fields, 18)
		d, err := decimal.NewFromString(fields[11])
		require.NoError(t, err)
		c, err := decimal.NewFromString(fields[12])
		require.NoError(t, err)
		debit = debit.Add(d)
		credit = credit.Add(c)
	}
	assert.True(t, debit.Equal(credit), "debit %s != credit %s", debit, credit)
}

func TestExportService_ExportLedger_EmptyPeriod(t *testing.T) {
	repo := &stubInvoiceRepo{}
	service := NewExportService(repo, testChart())

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	output, err := service.ExportLedger(context.Background(), from, to, nil)
	require.NoError(t, err)

	assert.NotContains(t, output, "\n")
	assert.Equal(t, 18, len(strings.Split(output, "|")))
	assert.Equal(t, from, repo.lastQuery.From)
	assert.Equal(t, to, repo.lastQuery.To)
}

func TestExportService_ExportLedger_IssuerFilterForwarded(t *testing.T) {
	repo := &stubInvoiceRepo{}
	service := NewExportService(repo, testChart())

	issuer := uuid.New()
	_, err := service.ExportLedger(context.Background(), time.Now(), time.Now(), &issuer)
	require.NoError(t, err)
	require.NotNil(t, repo.lastQuery.IssuerID)
	assert.Equal(t, issuer, *repo.lastQuery.IssuerID)
}

func TestExportService_ExportLedger_TagsQueriesWithExportID(t *testing.T) {
	repo := &stubInvoiceRepo{}
	service := NewExportService(repo, testChart())

	_, err := service.ExportLedger(context.Background(), time.Now(), time.Now(), nil)
	require.NoError(t, err)

	// The repository context carries the run identifier so traced SQL
	// can be tied to the export run.
	require.NotNil(t, repo.lastCtx)
	first := logger.GetExportID(repo.lastCtx)
	assert.NotEmpty(t, first)

	// Each run gets its own identifier.
	_, err = service.ExportLedger(context.Background(), time.Now(), time.Now(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, logger.GetExportID(repo.lastCtx))
}

func TestExportService_ExportLedger_RepositoryError(t *testing.T) {
	boom := errors.New("connection refused")
	repo := &stubInvoiceRepo{err: boom}
	service := NewExportService(repo, testChart())

	_, err := service.ExportLedger(context.Background(), time.Now(), time.Now(), nil)
	assert.ErrorIs(t, err, boom)
}
