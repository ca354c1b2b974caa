package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/facture/backend/internal/domain/shared"
)

// FiscalYearStart is the configured first day of the accounting year.
// A fiscal year starting April 1st is {Month: time.April, Day: 1}.
type FiscalYearStart struct {
	Month time.Month
	Day   int
}

// DefaultFiscalYearStart is the calendar year (January 1st)
var DefaultFiscalYearStart = FiscalYearStart{Month: time.January, Day: 1}

// YearOf returns the fiscal year a date belongs to. A date before the
// fiscal-year start within its own calendar year falls into the previous
// fiscal year. The fiscal year is labelled by the calendar year it starts in.
func (s FiscalYearStart) YearOf(date time.Time) int {
	boundary := time.Date(date.Year(), s.Month, s.Day, 0, 0, 0, 0, date.Location())
	if date.Before(boundary) {
		return date.Year() - 1
	}
	return date.Year()
}

// PeriodOf returns the [start, end) range of the fiscal year containing
// the given date. The end bound is exclusive: it is the start of the next
// fiscal year.
func (s FiscalYearStart) PeriodOf(date time.Time) (time.Time, time.Time) {
	year := s.YearOf(date)
	start := time.Date(year, s.Month, s.Day, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// SequenceScope is the partition key for invoice numbering: numbers are
// sequential and gap-free within one issuer, fiscal year and document type.
type SequenceScope struct {
	IssuerID     *uuid.UUID
	FiscalYear   int
	DocumentType DocumentType
}

// SequenceCounter tracks the last number issued within one scope. One
// counter exists per scope, created lazily on the first allocation. Its
// LastNumber only ever increases.
type SequenceCounter struct {
	shared.BaseEntity
	IssuerID     *uuid.UUID
	FiscalYear   int
	DocumentType DocumentType
	PeriodStart  time.Time
	PeriodEnd    time.Time // exclusive
	LastNumber   int64
}

// NewSequenceCounter creates a counter spanning the fiscal year that
// contains the given date, with no numbers issued yet
func NewSequenceCounter(issuerID *uuid.UUID, docType DocumentType, date time.Time, fyStart FiscalYearStart) *SequenceCounter {
	start, end := fyStart.PeriodOf(date)
	return &SequenceCounter{
		BaseEntity:   shared.NewBaseEntity(),
		IssuerID:     issuerID,
		FiscalYear:   fyStart.YearOf(date),
		DocumentType: docType,
		PeriodStart:  start,
		PeriodEnd:    end,
		LastNumber:   0,
	}
}

// Contains reports whether the date falls inside this counter's period
func (c *SequenceCounter) Contains(date time.Time) bool {
	return !date.Before(c.PeriodStart) && date.Before(c.PeriodEnd)
}

// Next increments and returns the next sequential number. Callers must
// hold exclusive access to the counter for the duration of their
// transaction; Next itself carries no locking.
func (c *SequenceCounter) Next() int64 {
	c.LastNumber++
	return c.LastNumber
}

// NumberAllocator mints sequential invoice numbers. Implementations must
// guarantee that two concurrent allocations within the same scope never
// return the same number and that a rolled-back transaction does not
// advance the counter. A contended lock surfaces as
// shared.ErrConcurrencyConflict, which the caller retries by rerunning
// its whole finalize transaction.
type NumberAllocator interface {
	AllocateNumber(ctx context.Context, issuerID *uuid.UUID, date time.Time, docType DocumentType) (int64, error)
}
