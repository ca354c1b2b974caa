package invoicing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiscalYearStart_YearOf(t *testing.T) {
	april := FiscalYearStart{Month: time.April, Day: 1}

	tests := []struct {
		name string
		fy   FiscalYearStart
		date time.Time
		want int
	}{
		{"calendar year start", DefaultFiscalYearStart, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 2025},
		{"calendar year first day", DefaultFiscalYearStart, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 2025},
		{"calendar year last day", DefaultFiscalYearStart, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), 2025},
		{"april start, before boundary", april, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), 2024},
		{"april start, on boundary", april, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), 2025},
		{"april start, after boundary", april, time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC), 2025},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fy.YearOf(tt.date))
		})
	}
}

func TestFiscalYearStart_PeriodOf(t *testing.T) {
	april := FiscalYearStart{Month: time.April, Day: 1}

	start, end := april.PeriodOf(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = april.PeriodOf(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestNewSequenceCounter(t *testing.T) {
	issuer := uuid.New()
	date := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	c := NewSequenceCounter(&issuer, DocumentTypeInvoice, date, DefaultFiscalYearStart)

	assert.Equal(t, 2025, c.FiscalYear)
	assert.Equal(t, int64(0), c.LastNumber)
	assert.True(t, c.Contains(date))
	assert.True(t, c.Contains(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, c.Contains(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, c.Contains(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestSequenceCounter_Next(t *testing.T) {
	c := NewSequenceCounter(nil, DocumentTypeInvoice, time.Now(), DefaultFiscalYearStart)

	require.Equal(t, int64(1), c.Next())
	require.Equal(t, int64(2), c.Next())
	require.Equal(t, int64(3), c.Next())
	assert.Equal(t, int64(3), c.LastNumber)
}

func TestInMemoryNumberAllocator_ScopesAreIndependent(t *testing.T) {
	a := NewInMemoryNumberAllocator(DefaultFiscalYearStart)
	ctx := context.Background()
	issuer := uuid.New()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	n, err := a.AllocateNumber(ctx, &issuer, date, DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = a.AllocateNumber(ctx, &issuer, date, DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Credit notes, other issuers and other fiscal years each start at 1.
	n, err = a.AllocateNumber(ctx, &issuer, date, DocumentTypeCreditNote)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = a.AllocateNumber(ctx, nil, date, DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = a.AllocateNumber(ctx, &issuer, date.AddDate(1, 0, 0), DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInMemoryNumberAllocator_ConcurrentAllocationsAreUnique(t *testing.T) {
	a := NewInMemoryNumberAllocator(DefaultFiscalYearStart)
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	numbers := make(map[int64]bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := a.AllocateNumber(context.Background(), nil, date, DocumentTypeInvoice)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				numbers[n] = true
			}
		}()
	}
	wg.Wait()

	require.Len(t, numbers, workers)
	for want := int64(1); want <= workers; want++ {
		assert.True(t, numbers[want], "number %d was never issued", want)
	}
}
