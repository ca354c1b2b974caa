package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/facture/backend/internal/domain/invoicing"
	"github.com/facture/backend/internal/domain/shared/valueobject"
)

// InvoiceModel is the GORM model for invoicing.Invoice.
// Lines, the global discount and payments are stored as JSON documents:
// they are only ever read and written through the aggregate, never
// queried individually.
type InvoiceModel struct {
	AggregateModel
	IssuerID       *uuid.UUID `gorm:"type:uuid;index"`
	CustomerName   string     `gorm:"not null"`
	CustomerCode   string
	DocumentType   string    `gorm:"not null;index"`
	Status         string    `gorm:"not null;index"`
	Number         *int64    `gorm:"index"`
	IssueDate      time.Time `gorm:"not null;index"`
	DueDate        *time.Time
	LinesJSON      string `gorm:"column:lines;type:jsonb;not null;default:'[]'"`
	GlobalDiscount string `gorm:"column:global_discount;type:jsonb;not null;default:'{}'"`
	PaymentsJSON   string `gorm:"column:payments;type:jsonb;not null;default:'[]'"`
	FinalizedAt    *time.Time
	SentAt         *time.Time
	PaidAt         *time.Time
	CancelledAt    *time.Time
	CancelReason   string

	// Totals snapshot for reporting queries. Written on every save,
	// never read back into the aggregate: the domain re-derives totals
	// from the lines.
	TotalExclVAT valueobject.Money `gorm:"type:bigint;not null;default:0"`
	TotalVAT     valueobject.Money `gorm:"type:bigint;not null;default:0"`
	TotalInclVAT valueobject.Money `gorm:"type:bigint;not null;default:0"`
}

// TableName specifies the table name for InvoiceModel
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain invoice
func (m *InvoiceModel) ToDomain() (*invoicing.Invoice, error) {
	var lines []invoicing.InvoiceLine
	if m.LinesJSON != "" {
		if err := json.Unmarshal([]byte(m.LinesJSON), &lines); err != nil {
			return nil, fmt.Errorf("invoice %s: parse lines: %w", m.ID, err)
		}
	}

	var discount invoicing.Discount
	if m.GlobalDiscount != "" {
		if err := json.Unmarshal([]byte(m.GlobalDiscount), &discount); err != nil {
			return nil, fmt.Errorf("invoice %s: parse global discount: %w", m.ID, err)
		}
	}

	var payments []invoicing.Payment
	if m.PaymentsJSON != "" {
		if err := json.Unmarshal([]byte(m.PaymentsJSON), &payments); err != nil {
			return nil, fmt.Errorf("invoice %s: parse payments: %w", m.ID, err)
		}
	}

	inv := &invoicing.Invoice{
		IssuerID:       m.IssuerID,
		CustomerName:   m.CustomerName,
		CustomerCode:   m.CustomerCode,
		Type:           invoicing.DocumentType(m.DocumentType),
		Status:         invoicing.InvoiceStatus(m.Status),
		Number:         m.Number,
		IssueDate:      m.IssueDate,
		DueDate:        m.DueDate,
		Lines:          lines,
		GlobalDiscount: discount,
		Payments:       payments,
		FinalizedAt:    m.FinalizedAt,
		SentAt:         m.SentAt,
		PaidAt:         m.PaidAt,
		CancelledAt:    m.CancelledAt,
		CancelReason:   m.CancelReason,
	}
	m.PopulateAggregateRoot(&inv.BaseAggregateRoot)
	return inv, nil
}

// FromDomain populates the persistence model from a domain invoice
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) error {
	linesJSON, err := json.Marshal(inv.Lines)
	if err != nil {
		return fmt.Errorf("invoice %s: serialize lines: %w", inv.ID, err)
	}
	discountJSON, err := json.Marshal(inv.GlobalDiscount)
	if err != nil {
		return fmt.Errorf("invoice %s: serialize global discount: %w", inv.ID, err)
	}
	paymentsJSON, err := json.Marshal(inv.Payments)
	if err != nil {
		return fmt.Errorf("invoice %s: serialize payments: %w", inv.ID, err)
	}

	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.IssuerID = inv.IssuerID
	m.CustomerName = inv.CustomerName
	m.CustomerCode = inv.CustomerCode
	m.DocumentType = inv.Type.String()
	m.Status = inv.Status.String()
	m.Number = inv.Number
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.LinesJSON = string(linesJSON)
	m.GlobalDiscount = string(discountJSON)
	m.PaymentsJSON = string(paymentsJSON)
	m.FinalizedAt = inv.FinalizedAt
	m.SentAt = inv.SentAt
	m.PaidAt = inv.PaidAt
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason

	totals := inv.ComputeTotals()
	m.TotalExclVAT = totals.SubtotalAfterDiscount
	m.TotalVAT = totals.TotalVAT
	m.TotalInclVAT = totals.TotalInclVAT
	return nil
}

// SequenceCounterModel is the GORM model for invoicing.SequenceCounter.
// The scope columns carry a unique index so a scope can never gain a
// second counter, even under a concurrent create race.
type SequenceCounterModel struct {
	BaseModel
	IssuerID     *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_sequence_scope"`
	FiscalYear   int        `gorm:"not null;uniqueIndex:idx_sequence_scope"`
	DocumentType string     `gorm:"not null;uniqueIndex:idx_sequence_scope"`
	PeriodStart  time.Time  `gorm:"not null"`
	PeriodEnd    time.Time  `gorm:"not null"`
	// No default tag: a fresh counter writes 0 explicitly, keeping the
	// insert a plain exec instead of an insert-returning
	LastNumber int64 `gorm:"not null"`
}

// TableName specifies the table name for SequenceCounterModel
func (SequenceCounterModel) TableName() string {
	return "sequence_counters"
}

// ToDomain converts the persistence model to a domain sequence counter
func (m *SequenceCounterModel) ToDomain() *invoicing.SequenceCounter {
	return &invoicing.SequenceCounter{
		BaseEntity:   m.BaseModel.ToDomain(),
		IssuerID:     m.IssuerID,
		FiscalYear:   m.FiscalYear,
		DocumentType: invoicing.DocumentType(m.DocumentType),
		PeriodStart:  m.PeriodStart,
		PeriodEnd:    m.PeriodEnd,
		LastNumber:   m.LastNumber,
	}
}

// FromDomain populates the persistence model from a domain sequence counter
func (m *SequenceCounterModel) FromDomain(c *invoicing.SequenceCounter) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.IssuerID = c.IssuerID
	m.FiscalYear = c.FiscalYear
	m.DocumentType = c.DocumentType.String()
	m.PeriodStart = c.PeriodStart
	m.PeriodEnd = c.PeriodEnd
	m.LastNumber = c.LastNumber
}
