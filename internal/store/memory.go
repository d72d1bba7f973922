package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-protected in-memory Store. It is the default
// backend for the server and the fixture for tests. State does not
// survive a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	orders      []Order
	regions     []Region
	collections []PaymentCollection
	payments    []Payment

	// Failure hooks for tests. When set, the corresponding call returns
	// the error instead of mutating state.
	CreateOrderErr             error
	CreatePaymentCollectionErr error
	CreatePaymentErr           error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// CreateOrder assigns an id and creation time and appends the order.
func (m *MemoryStore) CreateOrder(_ context.Context, in CreateOrderInput) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateOrderErr != nil {
		return Order{}, m.CreateOrderErr
	}

	order := Order{
		ID:              "order_" + uuid.NewString(),
		DisplayID:       in.DisplayID,
		Email:           in.Email,
		CurrencyCode:    in.CurrencyCode,
		Status:          in.Status,
		RegionID:        in.RegionID,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		Items:           append([]LineItem(nil), in.Items...),
		ShippingMethods: append([]ShippingMethod(nil), in.ShippingMethods...),
		Metadata:        copyMetadata(in.Metadata),
		CreatedAt:       time.Now().UTC(),
	}
	m.orders = append(m.orders, order)
	return order, nil
}

// GetOrder returns the order with the given id or ErrNotFound.
func (m *MemoryStore) GetOrder(_ context.Context, id string) (Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
}

// UpdateOrder applies the non-nil fields of in to the stored order.
// Metadata entries are merged, not replaced.
func (m *MemoryStore) UpdateOrder(_ context.Context, id string, in UpdateOrderInput) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.orders {
		if m.orders[i].ID != id {
			continue
		}
		if in.Status != nil {
			m.orders[i].Status = *in.Status
		}
		if len(in.Metadata) > 0 {
			if m.orders[i].Metadata == nil {
				m.orders[i].Metadata = make(map[string]string)
			}
			for k, v := range in.Metadata {
				m.orders[i].Metadata[k] = v
			}
		}
		return m.orders[i], nil
	}
	return Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
}

// ListOrders returns orders honoring the filter and the total count of
// stored orders before the limit was applied.
func (m *MemoryStore) ListOrders(_ context.Context, filter ListOrdersFilter) ([]Order, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := append([]Order(nil), m.orders...)
	if filter.NewestFirst {
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		})
	}
	total := len(result)
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, total, nil
}

// ListRegions returns all configured regions in insertion order.
func (m *MemoryStore) ListRegions(_ context.Context) ([]Region, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Region(nil), m.regions...), nil
}

// CreateRegion stores a region, assigning an id when absent.
func (m *MemoryStore) CreateRegion(_ context.Context, region Region) (Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if region.ID == "" {
		region.ID = "reg_" + uuid.NewString()
	}
	m.regions = append(m.regions, region)
	return region, nil
}

// CreatePaymentCollection stores a payment collection, assigning an id
// and creation time when absent.
func (m *MemoryStore) CreatePaymentCollection(_ context.Context, pc PaymentCollection) (PaymentCollection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreatePaymentCollectionErr != nil {
		return PaymentCollection{}, m.CreatePaymentCollectionErr
	}
	if pc.ID == "" {
		pc.ID = "paycol_" + uuid.NewString()
	}
	if pc.CreatedAt.IsZero() {
		pc.CreatedAt = time.Now().UTC()
	}
	m.collections = append(m.collections, pc)
	return pc, nil
}

// CreatePayment stores a captured payment record.
func (m *MemoryStore) CreatePayment(_ context.Context, p Payment) (Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreatePaymentErr != nil {
		return Payment{}, m.CreatePaymentErr
	}
	if p.ID == "" {
		p.ID = "pay_" + uuid.NewString()
	}
	if p.CapturedAt.IsZero() {
		p.CapturedAt = time.Now().UTC()
	}
	m.payments = append(m.payments, p)
	return p, nil
}

// ListPayments returns the payments linked to orderID.
func (m *MemoryStore) ListPayments(_ context.Context, orderID string) ([]Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			result = append(result, p)
		}
	}
	return result, nil
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
