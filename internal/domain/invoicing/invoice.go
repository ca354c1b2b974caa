package invoicing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facture/backend/internal/domain/shared"
	"github.com/facture/backend/internal/domain/shared/valueobject"
)

// DocumentType distinguishes invoices from credit notes. Both share the
// same computation rules; only the ledger polarity differs.
type DocumentType string

const (
	DocumentTypeInvoice    DocumentType = "INVOICE"
	DocumentTypeCreditNote DocumentType = "CREDIT_NOTE"
)

// IsValid checks if the document type is valid
func (t DocumentType) IsValid() bool {
	return t == DocumentTypeInvoice || t == DocumentTypeCreditNote
}

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusFinalized     InvoiceStatus = "FINALIZED"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusFinalized, InvoiceStatusSent,
		InvoiceStatusPaid, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue,
		InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsExportable returns true for statuses at or beyond finalization.
// Drafts and cancelled invoices never reach the accounting ledger.
func (s InvoiceStatus) IsExportable() bool {
	switch s {
	case InvoiceStatusFinalized, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusPartiallyPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// CanBeEdited returns true if lines and discounts may still change
func (s InvoiceStatus) CanBeEdited() bool {
	return s == InvoiceStatusDraft
}

// CanAcceptPayment returns true if payments can be recorded in this status
func (s InvoiceStatus) CanAcceptPayment() bool {
	switch s {
	case InvoiceStatusFinalized, InvoiceStatusSent, InvoiceStatusPartiallyPaid,
		InvoiceStatusOverdue:
		return true
	}
	return false
}

// ExportableStatuses lists every status included in ledger exports
func ExportableStatuses() []InvoiceStatus {
	return []InvoiceStatus{
		InvoiceStatusFinalized,
		InvoiceStatusSent,
		InvoiceStatusPaid,
		InvoiceStatusPartiallyPaid,
		InvoiceStatusOverdue,
	}
}

// Discount expresses either a fixed amount or a percentage reduction.
// When both are set, the fixed amount takes priority.
type Discount struct {
	Amount  *valueobject.Money `json:"amount,omitempty"`
	Percent *decimal.Decimal   `json:"percent,omitempty"`
}

// IsSet returns true if either discount form is configured
func (d Discount) IsSet() bool {
	return d.Amount != nil || d.Percent != nil
}

// AppliedTo returns the discount value for a given base amount
func (d Discount) AppliedTo(base valueobject.Money) valueobject.Money {
	if d.Amount != nil {
		return *d.Amount
	}
	if d.Percent != nil {
		return base.MultiplyDecimal(d.Percent.Div(decimal.NewFromInt(100)))
	}
	return valueobject.Zero()
}

// FixedDiscount builds a fixed-amount discount
func FixedDiscount(amount valueobject.Money) Discount {
	return Discount{Amount: &amount}
}

// PercentDiscount builds a percentage discount
func PercentDiscount(percent decimal.Decimal) Discount {
	return Discount{Percent: &percent}
}

// InvoiceLine is one billed position on an invoice
type InvoiceLine struct {
	ID          uuid.UUID         `json:"id"`
	Description string            `json:"description"`
	Quantity    decimal.Decimal   `json:"quantity"`
	UnitPrice   valueobject.Money `json:"unit_price"`
	VATRate     decimal.Decimal   `json:"vat_rate"` // percentage, e.g. 20 for 20%
	Discount    Discount          `json:"discount"`
}

// NewInvoiceLine creates an invoice line without a discount
func NewInvoiceLine(description string, quantity decimal.Decimal, unitPrice valueobject.Money, vatRate decimal.Decimal) InvoiceLine {
	return InvoiceLine{
		ID:          uuid.New(),
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		VATRate:     vatRate,
	}
}

// UnitPriceAfterDiscount returns the unit price with the line discount applied
func (l InvoiceLine) UnitPriceAfterDiscount() valueobject.Money {
	return l.UnitPrice.Subtract(l.Discount.AppliedTo(l.UnitPrice))
}

// TotalBeforeVAT returns the discounted unit price times the quantity
func (l InvoiceLine) TotalBeforeVAT() valueobject.Money {
	return l.UnitPriceAfterDiscount().MultiplyDecimal(l.Quantity)
}

// VAT returns this line's own VAT, ignoring any global discount
func (l InvoiceLine) VAT() valueobject.Money {
	return l.TotalBeforeVAT().MultiplyDecimal(l.VATRate.Div(decimal.NewFromInt(100)))
}

// Payment records money received against an invoice
type Payment struct {
	ID        uuid.UUID         `json:"id"`
	Amount    valueobject.Money `json:"amount"`
	PaidAt    time.Time         `json:"paid_at"`
	Reference string            `json:"reference,omitempty"`
}

// NewPayment creates a payment record
func NewPayment(amount valueobject.Money, paidAt time.Time, reference string) Payment {
	return Payment{
		ID:        uuid.New(),
		Amount:    amount,
		PaidAt:    paidAt,
		Reference: reference,
	}
}

// Invoice is the aggregate root for a commercial invoice or credit note.
// Totals are never cached on the aggregate as authoritative state: they are
// derived from lines, discounts and payments on demand. The snapshot fields
// persisted at finalization exist for reporting only.
type Invoice struct {
	shared.BaseAggregateRoot
	IssuerID       *uuid.UUID
	CustomerName   string
	CustomerCode   string // auxiliary account code in ledger exports
	Type           DocumentType
	Status         InvoiceStatus
	Number         *int64 // assigned exactly once, at finalization
	IssueDate      time.Time
	DueDate        *time.Time
	Lines          []InvoiceLine
	GlobalDiscount Discount
	Payments       []Payment
	FinalizedAt    *time.Time
	SentAt         *time.Time
	PaidAt         *time.Time
	CancelledAt    *time.Time
	CancelReason   string
}

// NewInvoice creates a draft invoice
func NewInvoice(issuerID *uuid.UUID, docType DocumentType, customerName, customerCode string, issueDate time.Time, dueDate *time.Time) (*Invoice, error) {
	if !docType.IsValid() {
		return nil, shared.ErrInvalidInput
	}
	if customerName == "" {
		return nil, shared.ErrInvalidInput
	}
	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		IssuerID:          issuerID,
		CustomerName:      customerName,
		CustomerCode:      customerCode,
		Type:              docType,
		Status:            InvoiceStatusDraft,
		IssueDate:         issueDate,
		DueDate:           dueDate,
		Lines:             make([]InvoiceLine, 0),
		Payments:          make([]Payment, 0),
	}, nil
}

// AddLine appends a line to a draft invoice
func (i *Invoice) AddLine(line InvoiceLine) error {
	if !i.Status.CanBeEdited() {
		return shared.ErrInvalidState
	}
	i.Lines = append(i.Lines, line)
	return nil
}

// UpdateLine replaces the line with the same ID
func (i *Invoice) UpdateLine(line InvoiceLine) error {
	if !i.Status.CanBeEdited() {
		return shared.ErrInvalidState
	}
	for idx := range i.Lines {
		if i.Lines[idx].ID == line.ID {
			i.Lines[idx] = line
			return nil
		}
	}
	return shared.ErrNotFound
}

// RemoveLine deletes the line with the given ID
func (i *Invoice) RemoveLine(lineID uuid.UUID) error {
	if !i.Status.CanBeEdited() {
		return shared.ErrInvalidState
	}
	for idx := range i.Lines {
		if i.Lines[idx].ID == lineID {
			i.Lines = append(i.Lines[:idx], i.Lines[idx+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

// SetGlobalDiscount configures the invoice-level discount on a draft
func (i *Invoice) SetGlobalDiscount(d Discount) error {
	if !i.Status.CanBeEdited() {
		return shared.ErrInvalidState
	}
	i.GlobalDiscount = d
	return nil
}

// ClearGlobalDiscount removes the invoice-level discount on a draft
func (i *Invoice) ClearGlobalDiscount() error {
	if !i.Status.CanBeEdited() {
		return shared.ErrInvalidState
	}
	i.GlobalDiscount = Discount{}
	return nil
}

// Finalize assigns the sequential number and transitions draft -> finalized.
// The number must come from the sequence allocator, inside the same
// transaction that persists this invoice; a finalized invoice can never be
// renumbered.
func (i *Invoice) Finalize(number int64) error {
	if i.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState
	}
	if i.Number != nil {
		return shared.ErrInvalidState
	}
	if len(i.Lines) == 0 {
		return shared.ErrInvalidInput
	}
	now := time.Now()
	i.Number = &number
	i.Status = InvoiceStatusFinalized
	i.FinalizedAt = &now
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceFinalizedEvent(i))
	return nil
}

// Reference returns the document reference carried on ledger rows,
// built from the document type, issue year and sequential number.
// Drafts have no reference.
func (i *Invoice) Reference() string {
	if i.Number == nil {
		return ""
	}
	prefix := "FA"
	if i.Type == DocumentTypeCreditNote {
		prefix = "AV"
	}
	return fmt.Sprintf("%s-%d-%05d", prefix, i.IssueDate.Year(), *i.Number)
}

// MarkSent transitions finalized -> sent
func (i *Invoice) MarkSent() error {
	if i.Status != InvoiceStatusFinalized {
		return shared.ErrInvalidState
	}
	now := time.Now()
	i.Status = InvoiceStatusSent
	i.SentAt = &now
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceSentEvent(i))
	return nil
}

// RecordPayment registers a received payment and moves the invoice to
// paid or partially-paid according to the remaining balance.
func (i *Invoice) RecordPayment(amount valueobject.Money, paidAt time.Time, reference string) error {
	if !i.Status.CanAcceptPayment() {
		return shared.ErrInvalidState
	}
	if !amount.IsPositive() && i.Type == DocumentTypeInvoice {
		return shared.ErrInvalidInput
	}
	payment := NewPayment(amount, paidAt, reference)
	i.Payments = append(i.Payments, payment)
	i.AddDomainEvent(NewPaymentRecordedEvent(i, payment))

	if i.IsFullyPaid() {
		now := time.Now()
		i.Status = InvoiceStatusPaid
		i.PaidAt = &now
		i.AddDomainEvent(NewInvoicePaidEvent(i))
	} else if i.IsPartiallyPaid() {
		i.Status = InvoiceStatusPartiallyPaid
	}
	i.IncrementVersion()
	return nil
}

// MarkOverdue flags an unpaid invoice whose due date has passed
func (i *Invoice) MarkOverdue(now time.Time) error {
	if !i.IsOverdue(now) {
		return shared.ErrInvalidState
	}
	if i.Status == InvoiceStatusOverdue {
		return nil
	}
	i.Status = InvoiceStatusOverdue
	i.IncrementVersion()
	return nil
}

// Cancel voids the invoice. Paid invoices cannot be cancelled; issue a
// credit note instead.
func (i *Invoice) Cancel(reason string) error {
	switch i.Status {
	case InvoiceStatusPaid, InvoiceStatusPartiallyPaid, InvoiceStatusCancelled:
		return shared.ErrInvalidState
	}
	now := time.Now()
	i.Status = InvoiceStatusCancelled
	i.CancelledAt = &now
	i.CancelReason = reason
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceCancelledEvent(i, reason))
	return nil
}
