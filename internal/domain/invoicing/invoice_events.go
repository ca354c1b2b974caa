package invoicing

import (
	"time"

	"github.com/google/uuid"

	"github.com/facture/backend/internal/domain/shared"
)

// InvoiceFinalizedEvent is raised when a draft receives its sequential
// number and becomes immutable
type InvoiceFinalizedEvent struct {
	shared.BaseDomainEvent
	InvoiceID    uuid.UUID    `json:"invoice_id"`
	IssuerID     *uuid.UUID   `json:"issuer_id,omitempty"`
	Type         DocumentType `json:"document_type"`
	Number       int64        `json:"number"`
	IssueDate    time.Time    `json:"issue_date"`
	TotalExclVAT string       `json:"total_excl_vat"`
	TotalVAT     string       `json:"total_vat"`
	TotalInclVAT string       `json:"total_incl_vat"`
}

// NewInvoiceFinalizedEvent creates a new InvoiceFinalizedEvent
func NewInvoiceFinalizedEvent(inv *Invoice) *InvoiceFinalizedEvent {
	totals := inv.ComputeTotals()
	var number int64
	if inv.Number != nil {
		number = *inv.Number
	}
	return &InvoiceFinalizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceFinalized", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		IssuerID:        inv.IssuerID,
		Type:            inv.Type,
		Number:          number,
		IssueDate:       inv.IssueDate,
		TotalExclVAT:    totals.SubtotalAfterDiscount.StringFixed(),
		TotalVAT:        totals.TotalVAT.StringFixed(),
		TotalInclVAT:    totals.TotalInclVAT.StringFixed(),
	}
}

// InvoiceSentEvent is raised when a finalized invoice is marked as sent
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Number    *int64    `json:"number,omitempty"`
}

// NewInvoiceSentEvent creates a new InvoiceSentEvent
func NewInvoiceSentEvent(inv *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceSent", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
	}
}

// PaymentRecordedEvent is raised for every payment registered on an invoice
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	PaymentID uuid.UUID `json:"payment_id"`
	Amount    string    `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
	Reference string    `json:"reference,omitempty"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(inv *Invoice, payment Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRecorded", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		PaymentID:       payment.ID,
		Amount:          payment.Amount.StringFixed(),
		PaidAt:          payment.PaidAt,
		Reference:       payment.Reference,
	}
}

// InvoicePaidEvent is raised when the remaining balance reaches zero
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	TotalPaid string    `json:"total_paid"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaid", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		TotalPaid:       inv.TotalPaid().StringFixed(),
	}
}

// InvoiceCancelledEvent is raised when an invoice is voided
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Reason    string    `json:"reason,omitempty"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice, reason string) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCancelled", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		Reason:          reason,
	}
}
