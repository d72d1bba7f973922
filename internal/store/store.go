// Package store defines the order-management data model consumed by the
// coordinator, together with two implementations: an in-memory store used
// by tests and the default server configuration, and a BoltDB-backed
// store for single-file durable deployments.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Metadata keys the coordinator writes on every order it creates.
// MetaMerchantOrderID is the idempotency lookup key.
const (
	MetaMerchantOrderID = "merchant_order_id"
	MetaPaymentIntentID = "payment_intent_id"
	MetaDisplayID       = "display_id"
	MetaPaymentProvider = "payment_provider"
)

// Address is a structured postal address. Optional fields are empty
// strings, never absent, to keep persisted records uniform.
type Address struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address1    string `json:"address_1"`
	Address2    string `json:"address_2"`
	City        string `json:"city"`
	Province    string `json:"province"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
}

// LineItem is one order line in store shape. UnitPrice is in integer
// minor units. The quantity counters start at zero and are advanced by
// fulfillment machinery outside this service.
type LineItem struct {
	Title             string            `json:"title"`
	SKU               string            `json:"sku"`
	Quantity          int               `json:"quantity"`
	FulfilledQuantity int               `json:"fulfilled_quantity"`
	ReturnedQuantity  int               `json:"returned_quantity"`
	ShippedQuantity   int               `json:"shipped_quantity"`
	UnitPrice         int64             `json:"unit_price"`
	Metadata          map[string]string `json:"metadata"`
}

// ShippingMethod is a named shipping charge, amount in minor units.
type ShippingMethod struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// Order is a persisted order record.
type Order struct {
	ID              string            `json:"id"`
	DisplayID       string            `json:"display_id"`
	Email           string            `json:"email"`
	CurrencyCode    string            `json:"currency_code"`
	Status          string            `json:"status"`
	RegionID        string            `json:"region_id"`
	ShippingAddress Address           `json:"shipping_address"`
	BillingAddress  Address           `json:"billing_address"`
	Items           []LineItem        `json:"items"`
	ShippingMethods []ShippingMethod  `json:"shipping_methods"`
	Metadata        map[string]string `json:"metadata"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Region groups countries that share currency and payment configuration.
type Region struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	CurrencyCode string   `json:"currency_code"`
	Countries    []string `json:"countries"`
}

// PaymentCollection groups the payments recorded against one order.
type PaymentCollection struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	CurrencyCode string    `json:"currency_code"`
	Amount       int64     `json:"amount"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Payment records an externally captured payment linked to an order.
type Payment struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	OrderID      string    `json:"order_id"`
	Provider     string    `json:"provider"`
	ProviderRef  string    `json:"provider_ref"`
	Amount       int64     `json:"amount"`
	CurrencyCode string    `json:"currency_code"`
	CapturedAt   time.Time `json:"captured_at"`
}

// CreateOrderInput carries the fields for a new order. The store assigns
// ID and CreatedAt.
type CreateOrderInput struct {
	DisplayID       string
	Email           string
	CurrencyCode    string
	Status          string
	RegionID        string
	ShippingAddress Address
	BillingAddress  Address
	Items           []LineItem
	ShippingMethods []ShippingMethod
	Metadata        map[string]string
}

// UpdateOrderInput carries the mutable order fields. Nil pointers leave
// the stored value unchanged.
type UpdateOrderInput struct {
	Status   *string
	Metadata map[string]string
}

// ListOrdersFilter bounds and orders an order listing. Limit <= 0 means
// no limit. NewestFirst orders by descending creation time, which is what
// the coordinator's duplicate scan depends on.
type ListOrdersFilter struct {
	Limit       int
	NewestFirst bool
}

// Store is the canonical order-management contract. ListRegions always
// returns a plain slice; there is deliberately no wrapped or polymorphic
// shape for callers to unpick.
type Store interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	UpdateOrder(ctx context.Context, id string, in UpdateOrderInput) (Order, error)
	ListOrders(ctx context.Context, filter ListOrdersFilter) ([]Order, int, error)

	ListRegions(ctx context.Context) ([]Region, error)
	CreateRegion(ctx context.Context, region Region) (Region, error)

	CreatePaymentCollection(ctx context.Context, pc PaymentCollection) (PaymentCollection, error)
	CreatePayment(ctx context.Context, p Payment) (Payment, error)
	ListPayments(ctx context.Context, orderID string) ([]Payment, error)
}
