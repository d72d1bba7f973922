// Package order implements the idempotent order-creation protocol: a
// process-local in-flight guard keyed by merchant order id, a durable
// re-check against recent persisted orders, and the create/link workflow
// against the order store.
//
// Both guards are process-local. Two server instances can still create
// duplicate orders for the same merchant order id, and the durable
// re-check only inspects a bounded window of recent orders, so the
// exactly-once guarantee is best effort beyond that window. This is an
// accepted limitation of the in-memory design, not something the
// coordinator tries to paper over.
package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/yourorg/checkout-orchestrator/internal/inflight"
	"github.com/yourorg/checkout-orchestrator/internal/metrics"
	"github.com/yourorg/checkout-orchestrator/internal/money"
	"github.com/yourorg/checkout-orchestrator/internal/reporting"
	"github.com/yourorg/checkout-orchestrator/internal/screening"
	"github.com/yourorg/checkout-orchestrator/internal/store"
)

// displayIDPrefix is used when the caller supplied no merchant order id.
const displayIDPrefix = "31N-"

// Order statuses written by the coordinator.
const (
	statusPending  = "pending"
	statusCaptured = "captured"
)

var (
	// ErrInvalidRequest rejects a submission before any lock or store
	// interaction.
	ErrInvalidRequest = errors.New("order: invalid request")
	// ErrDuplicateInFlight means the same merchant order id is being
	// processed by a concurrent request in this process.
	ErrDuplicateInFlight = errors.New("order: merchant order id already being processed")
	// ErrNoRegionAvailable means no region is configured at all.
	ErrNoRegionAvailable = errors.New("order: no region available")
)

// StoreError wraps an unrecoverable order-store failure during creation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("order: store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// Options tune the coordinator.
type Options struct {
	// DuplicateScanWindow is how many recent orders the durable
	// idempotency check inspects, newest first.
	DuplicateScanWindow int
	// ProviderTag identifies the payment gateway in order metadata and
	// payment records.
	ProviderTag string
	// Screener, when set, runs acceptance rules during validation.
	Screener *screening.Screener
	// Recorder, when set, receives one entry per submission outcome.
	Recorder *reporting.Recorder
}

const defaultScanWindow = 100

// Coordinator owns the in-flight registry and orchestrates order
// creation, region resolution, and payment linkage.
type Coordinator struct {
	store    store.Store
	locks    *inflight.Registry
	screener *screening.Screener
	recorder *reporting.Recorder

	scanWindow  int
	providerTag string
	now         func() time.Time
}

// NewCoordinator creates a Coordinator. The store is required; the
// registry may be shared with other components or nil for a private one.
func NewCoordinator(s store.Store, locks *inflight.Registry, opts Options) *Coordinator {
	if s == nil {
		panic("order store cannot be nil")
	}
	if locks == nil {
		locks = inflight.NewRegistry()
	}
	window := opts.DuplicateScanWindow
	if window <= 0 {
		window = defaultScanWindow
	}
	tag := opts.ProviderTag
	if tag == "" {
		tag = "hosted-gateway"
	}
	return &Coordinator{
		store:       s,
		locks:       locks,
		screener:    opts.Screener,
		recorder:    opts.Recorder,
		scanWindow:  window,
		providerTag: tag,
		now:         time.Now,
	}
}

// Submit materializes one order for the request. For a given merchant
// order id, at most one order is created no matter how many concurrent
// or retried submissions arrive at this process; repeats resolve to the
// existing order with Duplicate set.
func (c *Coordinator) Submit(ctx context.Context, req MerchantOrderRequest) (OrderResult, error) {
	tracer := otel.Tracer("order")
	ctx, span := tracer.Start(ctx, "Coordinator.Submit")
	defer span.End()

	timer := time.Now()
	defer func() {
		metrics.SubmitDurationSeconds().Observe(time.Since(timer).Seconds())
	}()

	// Validation runs before the lock so acquisition failures never need
	// cleanup of partial state.
	if err := c.validate(req); err != nil {
		metrics.ValidationRejectedTotal().Inc()
		c.record(reporting.OrderLogEntry{
			MerchantOrderID: req.MerchantOrderID,
			Status:          reporting.StatusRejected,
			ErrorCode:       "INVALID_REQUEST",
		})
		return OrderResult{}, err
	}

	// An empty merchant order id carries no idempotency key: there is
	// nothing to lock on and nothing to re-check against.
	if req.MerchantOrderID != "" {
		release, ok := c.locks.TryAcquire(req.MerchantOrderID)
		if !ok {
			metrics.DuplicateInFlightTotal().Inc()
			c.record(reporting.OrderLogEntry{
				MerchantOrderID: req.MerchantOrderID,
				Status:          reporting.StatusInFlight,
				ErrorCode:       "DUPLICATE_IN_FLIGHT",
			})
			return OrderResult{}, fmt.Errorf("%w: %s", ErrDuplicateInFlight, req.MerchantOrderID)
		}
		metrics.InFlightLocks().Inc()
		defer func() {
			release()
			metrics.InFlightLocks().Dec()
		}()

		existing, err := c.findExisting(ctx, req.MerchantOrderID)
		if err != nil {
			return OrderResult{}, err
		}
		if existing != nil {
			metrics.DuplicatesSuppressedTotal().Inc()
			c.record(reporting.OrderLogEntry{
				MerchantOrderID: req.MerchantOrderID,
				OrderID:         existing.ID,
				Status:          reporting.StatusDuplicate,
			})
			return OrderResult{OrderID: existing.ID, DisplayID: existing.DisplayID, Duplicate: true}, nil
		}
	}

	return c.create(ctx, req)
}

func (c *Coordinator) validate(req MerchantOrderRequest) error {
	if req.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}
	if len(req.LineItems) == 0 {
		return fmt.Errorf("%w: at least one line item is required", ErrInvalidRequest)
	}
	if req.ShippingAddress == nil || req.ShippingAddress.CountryCode == "" {
		return fmt.Errorf("%w: shipping address with country code is required", ErrInvalidRequest)
	}

	if c.screener != nil {
		total, _ := req.Total.Float64()
		ok, failedRule, err := c.screener.Evaluate(screening.Parameters{
			Total:              total,
			ItemCount:          len(req.LineItems),
			HasEmail:           req.Email != "",
			HasShippingAddress: req.ShippingAddress != nil,
			Currency:           strings.ToLower(req.CurrencyCode),
		})
		if err != nil {
			return fmt.Errorf("%w: screening: %v", ErrInvalidRequest, err)
		}
		if !ok {
			return fmt.Errorf("%w: rejected by rule %s", ErrInvalidRequest, failedRule)
		}
	}
	return nil
}

// findExisting scans a bounded newest-first window of persisted orders
// for one whose metadata carries the merchant order id. The window keeps
// the scan cheap on stores without an indexed metadata lookup; it also
// means duplicates older than the window go undetected.
func (c *Coordinator) findExisting(ctx context.Context, merchantOrderID string) (*store.Order, error) {
	orders, _, err := c.store.ListOrders(ctx, store.ListOrdersFilter{
		Limit:       c.scanWindow,
		NewestFirst: true,
	})
	if err != nil {
		return nil, &StoreError{Op: "list orders", Err: err}
	}
	for i := range orders {
		if orders[i].Metadata[store.MetaMerchantOrderID] == merchantOrderID {
			return &orders[i], nil
		}
	}
	return nil, nil
}

// resolveRegion picks the region whose country list contains the
// shipping country (case-insensitive); with no match the first region is
// the default.
func (c *Coordinator) resolveRegion(ctx context.Context, countryCode string) (store.Region, error) {
	regions, err := c.store.ListRegions(ctx)
	if err != nil {
		return store.Region{}, &StoreError{Op: "list regions", Err: err}
	}
	if len(regions) == 0 {
		return store.Region{}, ErrNoRegionAvailable
	}

	want := strings.ToLower(countryCode)
	for _, region := range regions {
		for _, country := range region.Countries {
			if strings.ToLower(country) == want {
				return region, nil
			}
		}
	}
	return regions[0], nil
}

func (c *Coordinator) create(ctx context.Context, req MerchantOrderRequest) (OrderResult, error) {
	region, err := c.resolveRegion(ctx, req.ShippingAddress.CountryCode)
	if err != nil {
		c.record(reporting.OrderLogEntry{
			MerchantOrderID: req.MerchantOrderID,
			Status:          reporting.StatusFailed,
			ErrorCode:       "NO_REGION",
		})
		return OrderResult{}, err
	}

	displayID := req.MerchantOrderID
	if displayID == "" {
		displayID = displayIDPrefix + strconv.FormatInt(c.now().Unix(), 10)
	}

	items := make([]store.LineItem, len(req.LineItems))
	for i, item := range req.LineItems {
		items[i] = store.LineItem{
			Title:     item.Title,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: money.MinorUnits(item.UnitPrice),
			Metadata: map[string]string{
				"sku":   item.SKU,
				"index": strconv.Itoa(i),
			},
		}
	}

	shipping := storeAddress(req.ShippingAddress)
	billing := shipping
	if req.BillingAddress != nil {
		billing = storeAddress(req.BillingAddress)
	}

	created, err := c.store.CreateOrder(ctx, store.CreateOrderInput{
		DisplayID:       displayID,
		Email:           req.Email,
		CurrencyCode:    strings.ToLower(req.CurrencyCode),
		Status:          statusPending,
		RegionID:        region.ID,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Items:           items,
		ShippingMethods: []store.ShippingMethod{{
			Name:   req.ShippingMethodName,
			Amount: money.MinorUnits(req.ShippingTotal),
		}},
		Metadata: map[string]string{
			store.MetaMerchantOrderID: req.MerchantOrderID,
			store.MetaPaymentIntentID: req.PaymentIntentID,
			store.MetaDisplayID:       displayID,
			store.MetaPaymentProvider: c.providerTag,
		},
	})
	if err != nil {
		storeErr := &StoreError{Op: "create order", Err: err}
		c.record(reporting.OrderLogEntry{
			MerchantOrderID: req.MerchantOrderID,
			Status:          reporting.StatusFailed,
			ErrorCode:       "STORE_ERROR",
		})
		return OrderResult{}, storeErr
	}

	totalMinor := money.MinorUnits(req.Total)
	status := reporting.StatusCreated
	errorCode := ""

	// Payment linkage is best effort. The order already exists; a
	// failure here is logged and swallowed, never rolled back.
	if err := c.linkPayment(ctx, created, req, totalMinor); err != nil {
		log.Printf("coordinator: payment linkage for order %s (merchant order %q) failed: %v",
			created.ID, req.MerchantOrderID, err)
		metrics.PaymentLinkFailuresTotal().Inc()
		status = reporting.StatusLinkFailed
		errorCode = "PAYMENT_LINK_FAILED"
	}

	metrics.OrdersCreatedTotal().Inc()
	c.record(reporting.OrderLogEntry{
		MerchantOrderID: req.MerchantOrderID,
		OrderID:         created.ID,
		Status:          status,
		AmountMinor:     totalMinor,
		Currency:        strings.ToLower(req.CurrencyCode),
		ErrorCode:       errorCode,
	})
	return OrderResult{OrderID: created.ID, DisplayID: created.DisplayID}, nil
}

// linkPayment records the externally captured payment against the order:
// a payment collection, a captured payment, and a status bump.
func (c *Coordinator) linkPayment(ctx context.Context, created store.Order, req MerchantOrderRequest, totalMinor int64) error {
	collection, err := c.store.CreatePaymentCollection(ctx, store.PaymentCollection{
		OrderID:      created.ID,
		CurrencyCode: strings.ToLower(req.CurrencyCode),
		Amount:       totalMinor,
		Status:       "completed",
	})
	if err != nil {
		return fmt.Errorf("create payment collection: %w", err)
	}

	if _, err := c.store.CreatePayment(ctx, store.Payment{
		CollectionID: collection.ID,
		OrderID:      created.ID,
		Provider:     c.providerTag,
		ProviderRef:  req.PaymentIntentID,
		Amount:       totalMinor,
		CurrencyCode: strings.ToLower(req.CurrencyCode),
	}); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	captured := statusCaptured
	if _, err := c.store.UpdateOrder(ctx, created.ID, store.UpdateOrderInput{Status: &captured}); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (c *Coordinator) record(entry reporting.OrderLogEntry) {
	if c.recorder != nil {
		c.recorder.Record(entry)
	}
}
