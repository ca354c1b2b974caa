package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/facture/backend/internal/domain/accounting"
	"github.com/facture/backend/internal/domain/invoicing"
	"github.com/facture/backend/internal/infrastructure/logger"
)

// ExportService produces FEC ledger exports for a reporting period
type ExportService struct {
	invoices invoicing.InvoiceRepository
	exporter *accounting.Exporter
	logger   *zap.Logger
}

// ExportServiceOption is a functional option for configuring ExportService
type ExportServiceOption func(*ExportService)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) ExportServiceOption {
	return func(s *ExportService) {
		s.logger = logger
	}
}

// NewExportService creates a new ExportService
func NewExportService(invoices invoicing.InvoiceRepository, chart accounting.ChartOfAccounts, opts ...ExportServiceOption) *ExportService {
	s := &ExportService{
		invoices: invoices,
		exporter: accounting.NewExporter(chart),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportLedger renders the FEC text for every exportable invoice issued
// within [from, to], optionally restricted to one issuer. Totals are
// re-derived per invoice at export time. Each run carries its own export
// identifier, stamped on the service logs and on the traced SQL.
func (s *ExportService) ExportLedger(ctx context.Context, from, to time.Time, issuerID *uuid.UUID) (string, error) {
	started := time.Now()
	ctx, log := logger.WithExportID(ctx, s.logger, uuid.NewString())

	invoices, err := s.invoices.FindExportable(ctx, invoicing.ExportQuery{
		From:     from,
		To:       to,
		IssuerID: issuerID,
	})
	if err != nil {
		return "", err
	}

	output := s.exporter.Export(invoices)

	log.Info("ledger export completed",
		zap.Int("invoice_count", len(invoices)),
		zap.Time("period_start", from),
		zap.Time("period_end", to),
		zap.Duration("duration", time.Since(started)),
	)
	return output, nil
}
