package invoicing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryNumberAllocator mints sequential numbers without a database.
// Counters live in process memory, one mutex-guarded value per scope.
// Intended for tests and embedded single-process use; it cannot share
// the caller's transaction, so a failed finalize does leave a gap here.
type InMemoryNumberAllocator struct {
	mu       sync.Mutex
	fyStart  FiscalYearStart
	counters map[string]int64
}

// NewInMemoryNumberAllocator creates an allocator with no numbers issued
func NewInMemoryNumberAllocator(fyStart FiscalYearStart) *InMemoryNumberAllocator {
	return &InMemoryNumberAllocator{
		fyStart:  fyStart,
		counters: make(map[string]int64),
	}
}

// AllocateNumber returns the next number for the scope containing the date
func (a *InMemoryNumberAllocator) AllocateNumber(ctx context.Context, issuerID *uuid.UUID, date time.Time, docType DocumentType) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	issuer := ""
	if issuerID != nil {
		issuer = issuerID.String()
	}
	key := fmt.Sprintf("%s|%d|%s", issuer, a.fyStart.YearOf(date), docType)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[key]++
	return a.counters[key], nil
}

var _ NumberAllocator = (*InMemoryNumberAllocator)(nil)
