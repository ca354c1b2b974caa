package invoicing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facture/backend/internal/domain/shared"
	"github.com/facture/backend/internal/domain/shared/valueobject"
)

func TestInvoiceStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  InvoiceStatus
		isValid bool
	}{
		{InvoiceStatusDraft, true},
		{InvoiceStatusFinalized, true},
		{InvoiceStatusSent, true},
		{InvoiceStatusPaid, true},
		{InvoiceStatusPartiallyPaid, true},
		{InvoiceStatusOverdue, true},
		{InvoiceStatusCancelled, true},
		{InvoiceStatus("INVALID"), false},
		{InvoiceStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestInvoiceStatus_IsExportable(t *testing.T) {
	assert.False(t, InvoiceStatusDraft.IsExportable())
	assert.False(t, InvoiceStatusCancelled.IsExportable())
	for _, s := range ExportableStatuses() {
		assert.True(t, s.IsExportable(), s)
	}
}

func TestNewInvoice_Validation(t *testing.T) {
	_, err := NewInvoice(nil, DocumentType("BAD"), "Customer", "", time.Now(), nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = NewInvoice(nil, DocumentTypeInvoice, "", "", time.Now(), nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	inv, err := NewInvoice(nil, DocumentTypeCreditNote, "Customer", "C1", time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusDraft, inv.Status)
	assert.Nil(t, inv.Number)
}

func TestInvoice_LineEditing(t *testing.T) {
	inv := createTestInvoice(t)
	line := addLine(t, inv, "1", "100.00", "20")

	line.Description = "updated"
	require.NoError(t, inv.UpdateLine(line))
	assert.Equal(t, "updated", inv.Lines[0].Description)

	require.NoError(t, inv.RemoveLine(line.ID))
	assert.Empty(t, inv.Lines)

	assert.ErrorIs(t, inv.RemoveLine(uuid.New()), shared.ErrNotFound)
	assert.ErrorIs(t, inv.UpdateLine(line), shared.ErrNotFound)
}

func TestInvoice_EditingLockedAfterFinalize(t *testing.T) {
	inv := createTestInvoice(t)
	line := addLine(t, inv, "1", "100.00", "20")
	require.NoError(t, inv.Finalize(7))

	assert.ErrorIs(t, inv.AddLine(line), shared.ErrInvalidState)
	assert.ErrorIs(t, inv.UpdateLine(line), shared.ErrInvalidState)
	assert.ErrorIs(t, inv.RemoveLine(line.ID), shared.ErrInvalidState)
	assert.ErrorIs(t, inv.SetGlobalDiscount(FixedDiscount(valueobject.MustMoneyFromString("1.00"))), shared.ErrInvalidState)
	assert.ErrorIs(t, inv.ClearGlobalDiscount(), shared.ErrInvalidState)
}

func TestInvoice_Finalize(t *testing.T) {
	inv := createTestInvoice(t)
	addLine(t, inv, "1", "100.00", "20")

	require.NoError(t, inv.Finalize(42))
	assert.Equal(t, InvoiceStatusFinalized, inv.Status)
	require.NotNil(t, inv.Number)
	assert.Equal(t, int64(42), *inv.Number)
	assert.NotNil(t, inv.FinalizedAt)

	events := inv.GetDomainEvents()
	require.Len(t, events, 1)
	finalized, ok := events[0].(*InvoiceFinalizedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(42), finalized.Number)
	assert.Equal(t, "120.00", finalized.TotalInclVAT)
}

func TestInvoice_FinalizeTwice(t *testing.T) {
	inv := createTestInvoice(t)
	addLine(t, inv, "1", "100.00", "20")
	require.NoError(t, inv.Finalize(1))
	assert.ErrorIs(t, inv.Finalize(2), shared.ErrInvalidState)
}

func TestInvoice_FinalizeWithoutLines(t *testing.T) {
	inv := createTestInvoice(t)
	assert.ErrorIs(t, inv.Finalize(1), shared.ErrInvalidInput)
}

func TestInvoice_MarkSent(t *testing.T) {
	inv := createTestInvoice(t)
	addLine(t, inv, "1", "100.00", "20")

	assert.ErrorIs(t, inv.MarkSent(), shared.ErrInvalidState)

	require.NoError(t, inv.Finalize(1))
	require.NoError(t, inv.MarkSent())
	assert.Equal(t, InvoiceStatusSent, inv.Status)
	assert.NotNil(t, inv.SentAt)
}

func TestInvoice_RecordPaymentOnDraft(t *testing.T) {
	inv := createTestInvoice(t)
	addLine(t, inv, "1", "100.00", "20")
	err := inv.RecordPayment(valueobject.MustMoneyFromString("10.00"), time.Now(), "")
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestInvoice_Cancel(t *testing.T) {
	inv := createTestInvoice(t)
	addLine(t, inv, "1", "100.00", "20")
	require.NoError(t, inv.Cancel("duplicate"))
	assert.Equal(t, InvoiceStatusCancelled, inv.Status)
	assert.Equal(t, "duplicate", inv.CancelReason)

	assert.ErrorIs(t, inv.Cancel("again"), shared.ErrInvalidState)
}

func TestInvoice_CancelPaidRejected(t *testing.T) {
	inv := finalizedTestInvoice(t, nil)
	require.NoError(t, inv.RecordPayment(valueobject.MustMoneyFromString("1200.00"), time.Now(), ""))
	assert.ErrorIs(t, inv.Cancel("too late"), shared.ErrInvalidState)
}

func TestInvoice_MarkOverdue(t *testing.T) {
	past := time.Now().AddDate(0, 0, -5)
	inv := finalizedTestInvoice(t, &past)

	require.NoError(t, inv.MarkOverdue(time.Now()))
	assert.Equal(t, InvoiceStatusOverdue, inv.Status)

	// Idempotent once overdue
	require.NoError(t, inv.MarkOverdue(time.Now()))
}

func TestInvoice_MarkOverdueNotDue(t *testing.T) {
	future := time.Now().AddDate(0, 0, 5)
	inv := finalizedTestInvoice(t, &future)
	assert.ErrorIs(t, inv.MarkOverdue(time.Now()), shared.ErrInvalidState)
}

func TestInvoice_DomainEventsLifecycle(t *testing.T) {
	inv := finalizedTestInvoice(t, nil)
	inv.ClearDomainEvents()

	require.NoError(t, inv.RecordPayment(valueobject.MustMoneyFromString("1200.00"), time.Now(), "ref"))
	types := make([]string, 0)
	for _, e := range inv.GetDomainEvents() {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []string{"PaymentRecorded", "InvoicePaid"}, types)
}
