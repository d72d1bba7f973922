package reporting

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRetrospective_Empty(t *testing.T) {
	report := GenerateRetrospective(nil)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.TotalSubmissions)
	assert.NotNil(t, report.AmountByCurrency)
	assert.NotNil(t, report.ErrorBreakdown)
}

func TestGenerateRetrospective_Aggregates(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	entries := []OrderLogEntry{
		{Timestamp: base, MerchantOrderID: "MO-1", OrderID: "order_1", Status: StatusCreated, AmountMinor: 2000, Currency: "usd"},
		{Timestamp: base.Add(1 * time.Minute), MerchantOrderID: "MO-1", Status: StatusDuplicate},
		{Timestamp: base.Add(2 * time.Minute), MerchantOrderID: "MO-2", Status: StatusInFlight, ErrorCode: "DUPLICATE_IN_FLIGHT"},
		{Timestamp: base.Add(3 * time.Minute), MerchantOrderID: "MO-3", Status: StatusRejected, ErrorCode: "RequireEmail"},
		{Timestamp: base.Add(4 * time.Minute), MerchantOrderID: "MO-4", Status: StatusFailed, ErrorCode: "STORE_ERROR"},
		{Timestamp: base.Add(5 * time.Minute), MerchantOrderID: "MO-5", OrderID: "order_5", Status: StatusLinkFailed, AmountMinor: 1500, Currency: "eur", ErrorCode: "PAYMENT_LINK_FAILED"},
	}

	report := GenerateRetrospective(entries)

	assert.Equal(t, 6, report.TotalSubmissions)
	assert.Equal(t, 2, report.OrdersCreated, "created and link-failed both count as created orders")
	assert.Equal(t, 1, report.DuplicatesSuppressed)
	assert.Equal(t, 1, report.InFlightRejections)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.PaymentLinkFailures)

	assert.Equal(t, int64(2000), report.AmountByCurrency["usd"])
	assert.Equal(t, int64(1500), report.AmountByCurrency["eur"])

	assert.Equal(t, 1, report.ErrorBreakdown["STORE_ERROR"])
	assert.Equal(t, 1, report.ErrorBreakdown["RequireEmail"])

	assert.Equal(t, base, report.DateFrom)
	assert.Equal(t, base.Add(5*time.Minute), report.DateTo)
}

func TestRecorder_StampsAndCaps(t *testing.T) {
	rec := NewRecorder(3)
	for i := 0; i < 5; i++ {
		rec.Record(OrderLogEntry{MerchantOrderID: string(rune('a' + i)), Status: StatusCreated})
	}

	entries := rec.Entries()
	require.Len(t, entries, 3, "oldest entries should be dropped past the cap")
	assert.Equal(t, "c", entries[0].MerchantOrderID)
	assert.Equal(t, "e", entries[2].MerchantOrderID)
	assert.False(t, entries[0].Timestamp.IsZero(), "Record should stamp missing timestamps")
}

func TestRecorder_ConcurrentRecord(t *testing.T) {
	rec := NewRecorder(0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Record(OrderLogEntry{Status: StatusCreated})
		}()
	}
	wg.Wait()
	assert.Len(t, rec.Entries(), 20)
}
