package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/facture/backend/internal/domain/invoicing"
	"github.com/facture/backend/internal/domain/shared"
	"github.com/facture/backend/internal/domain/shared/valueobject"
)

// InvoiceService provides application-level invoice operations. Mutations
// return the domain events raised during the operation; the caller
// dispatches them after the transaction has durably committed, so event
// subscribers never observe a finalization that was rolled back.
type InvoiceService struct {
	invoices invoicing.InvoiceRepository
	tx       invoicing.TxManager
	logger   *zap.Logger
}

// InvoiceServiceOption is a functional option for configuring InvoiceService
type InvoiceServiceOption func(*InvoiceService)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.logger = logger
	}
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(invoices invoicing.InvoiceRepository, tx invoicing.TxManager, opts ...InvoiceServiceOption) *InvoiceService {
	s := &InvoiceService{
		invoices: invoices,
		tx:       tx,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDraftInput carries the data for a new draft invoice
type CreateDraftInput struct {
	IssuerID     *uuid.UUID
	Type         invoicing.DocumentType
	CustomerName string
	CustomerCode string
	IssueDate    time.Time
	DueDate      *time.Time
	Lines        []invoicing.InvoiceLine
}

// CreateDraft creates and persists a draft invoice
func (s *InvoiceService) CreateDraft(ctx context.Context, input CreateDraftInput) (*invoicing.Invoice, error) {
	inv, err := invoicing.NewInvoice(input.IssuerID, input.Type, input.CustomerName, input.CustomerCode, input.IssueDate, input.DueDate)
	if err != nil {
		return nil, err
	}
	for _, line := range input.Lines {
		if err := inv.AddLine(line); err != nil {
			return nil, err
		}
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		return nil, err
	}
	s.logger.Info("draft invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("document_type", inv.Type.String()),
	)
	return inv, nil
}

// GetInvoice loads one invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	return s.invoices.FindByID(ctx, id)
}

// Finalize allocates the next sequential number for the invoice's scope
// and transitions it from draft to finalized, all within one atomic
// transaction. On any failure the whole transaction rolls back, so no
// number is burned without a matching finalized invoice. A
// shared.ErrConcurrencyConflict result is transient: rerun Finalize.
func (s *InvoiceService) Finalize(ctx context.Context, invoiceID uuid.UUID) ([]shared.DomainEvent, error) {
	var events []shared.DomainEvent

	err := s.tx.Do(ctx, func(repos invoicing.TxRepositories) error {
		inv, err := repos.Invoices.FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}

		counter, err := repos.Sequences.FindOrCreateForUpdate(ctx, inv.IssuerID, inv.IssueDate, inv.Type)
		if err != nil {
			return err
		}
		number := counter.Next()
		if err := repos.Sequences.Save(ctx, counter); err != nil {
			return err
		}

		if err := inv.Finalize(number); err != nil {
			return err
		}
		if err := repos.Invoices.Save(ctx, inv); err != nil {
			return err
		}

		events = inv.GetDomainEvents()
		inv.ClearDomainEvents()
		return nil
	})
	if err != nil {
		if shared.IsTransient(err) {
			s.logger.Warn("finalize hit a sequence conflict, caller should retry",
				zap.String("invoice_id", invoiceID.String()),
			)
		}
		return nil, err
	}

	s.logger.Info("invoice finalized",
		zap.String("invoice_id", invoiceID.String()),
	)
	return events, nil
}

// RecordPayment registers a payment received against an invoice
func (s *InvoiceService) RecordPayment(ctx context.Context, invoiceID uuid.UUID, amount valueobject.Money, paidAt time.Time, reference string) ([]shared.DomainEvent, error) {
	return s.mutate(ctx, invoiceID, func(inv *invoicing.Invoice) error {
		return inv.RecordPayment(amount, paidAt, reference)
	})
}

// MarkSent marks a finalized invoice as sent to the customer
func (s *InvoiceService) MarkSent(ctx context.Context, invoiceID uuid.UUID) ([]shared.DomainEvent, error) {
	return s.mutate(ctx, invoiceID, func(inv *invoicing.Invoice) error {
		return inv.MarkSent()
	})
}

// Cancel voids an invoice
func (s *InvoiceService) Cancel(ctx context.Context, invoiceID uuid.UUID, reason string) ([]shared.DomainEvent, error) {
	return s.mutate(ctx, invoiceID, func(inv *invoicing.Invoice) error {
		return inv.Cancel(reason)
	})
}

// mutate loads an invoice, applies a domain operation and saves it,
// returning the raised events
func (s *InvoiceService) mutate(ctx context.Context, invoiceID uuid.UUID, op func(*invoicing.Invoice) error) ([]shared.DomainEvent, error) {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := op(inv); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		return nil, err
	}
	events := inv.GetDomainEvents()
	inv.ClearDomainEvents()
	return events, nil
}
