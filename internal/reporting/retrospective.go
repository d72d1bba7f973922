// Package reporting summarizes order submission activity. The
// coordinator records one entry per submission outcome; the retrospective
// aggregates them for the operator-facing report endpoint.
package reporting

import (
	"sync"
	"time"
)

// Submission outcomes recorded by the coordinator.
const (
	StatusCreated    = "CREATED"     // new order created
	StatusDuplicate  = "DUPLICATE"   // resolved to an existing order
	StatusInFlight   = "IN_FLIGHT"   // rejected by the in-flight guard
	StatusRejected   = "REJECTED"    // failed validation or screening
	StatusFailed     = "FAILED"      // store failure during creation
	StatusLinkFailed = "LINK_FAILED" // order created, payment linkage swallowed an error
)

// OrderLogEntry is one recorded submission outcome. AmountMinor is the
// order total in minor units; zero for rejected submissions.
type OrderLogEntry struct {
	Timestamp       time.Time
	MerchantOrderID string
	OrderID         string
	Status          string
	AmountMinor     int64
	Currency        string
	ErrorCode       string
}

// Recorder is a bounded, thread-safe append-only log of submission
// outcomes. When the cap is reached the oldest entries are dropped.
type Recorder struct {
	mu      sync.Mutex
	entries []OrderLogEntry
	cap     int
}

// NewRecorder creates a Recorder keeping at most capacity entries.
// capacity <= 0 means unbounded.
func NewRecorder(capacity int) *Recorder {
	return &Recorder{cap: capacity}
}

// Record appends an entry, stamping Timestamp when unset.
func (r *Recorder) Record(entry OrderLogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	if r.cap > 0 && len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []OrderLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OrderLogEntry(nil), r.entries...)
}

// RetrospectiveReport summarizes submission activity over the recorded
// window.
type RetrospectiveReport struct {
	TotalSubmissions     int              `json:"total_submissions"`
	OrdersCreated        int              `json:"orders_created"`
	DuplicatesSuppressed int              `json:"duplicates_suppressed"`
	InFlightRejections   int              `json:"in_flight_rejections"`
	Rejected             int              `json:"rejected"`
	Failed               int              `json:"failed"`
	PaymentLinkFailures  int              `json:"payment_link_failures"`
	AmountByCurrency     map[string]int64 `json:"amount_by_currency"`
	ErrorBreakdown       map[string]int   `json:"error_breakdown"`
	DateFrom             time.Time        `json:"date_from"`
	DateTo               time.Time        `json:"date_to"`
}

// GenerateRetrospective aggregates a slice of entries. Created and
// link-failed submissions both count as created orders; only created
// orders contribute to AmountByCurrency.
func GenerateRetrospective(entries []OrderLogEntry) *RetrospectiveReport {
	report := &RetrospectiveReport{
		AmountByCurrency: make(map[string]int64),
		ErrorBreakdown:   make(map[string]int),
	}
	if len(entries) == 0 {
		return report
	}

	report.DateFrom = entries[0].Timestamp
	report.DateTo = entries[0].Timestamp

	for _, entry := range entries {
		report.TotalSubmissions++
		if entry.Timestamp.Before(report.DateFrom) {
			report.DateFrom = entry.Timestamp
		}
		if entry.Timestamp.After(report.DateTo) {
			report.DateTo = entry.Timestamp
		}

		switch entry.Status {
		case StatusCreated, StatusLinkFailed:
			report.OrdersCreated++
			report.AmountByCurrency[entry.Currency] += entry.AmountMinor
			if entry.Status == StatusLinkFailed {
				report.PaymentLinkFailures++
			}
		case StatusDuplicate:
			report.DuplicatesSuppressed++
		case StatusInFlight:
			report.InFlightRejections++
		case StatusRejected:
			report.Rejected++
		case StatusFailed:
			report.Failed++
		}

		if entry.ErrorCode != "" {
			report.ErrorBreakdown[entry.ErrorCode]++
		}
	}
	return report
}
