package order

import (
	"github.com/shopspring/decimal"

	"github.com/yourorg/checkout-orchestrator/internal/store"
)

// AddressInput is the request shape of a postal address. All fields are
// optional except the country code on the shipping address, which drives
// region resolution.
type AddressInput struct {
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

// LineItemInput is one requested order line. UnitPrice is a major-unit
// decimal amount; it may arrive as a JSON number or string.
type LineItemInput struct {
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	SKU       string          `json:"sku,omitempty"`
}

// MerchantOrderRequest is a request to materialize one order.
// MerchantOrderID is the caller-supplied idempotency key, compared by
// exact value; when empty the submission gets no idempotency protection
// and a generated display id.
type MerchantOrderRequest struct {
	MerchantOrderID    string          `json:"merchant_order_id"`
	Email              string          `json:"email"`
	CurrencyCode       string          `json:"currency_code"`
	LineItems          []LineItemInput `json:"line_items"`
	ShippingAddress    *AddressInput   `json:"shipping_address"`
	BillingAddress     *AddressInput   `json:"billing_address,omitempty"`
	ShippingMethodName string          `json:"shipping_method_name"`
	ShippingTotal      decimal.Decimal `json:"shipping_total"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	TaxTotal           decimal.Decimal `json:"tax_total"`
	Total              decimal.Decimal `json:"total"`
	PaymentIntentID    string          `json:"payment_intent_id"`
}

// OrderResult reports the outcome of a submission. Duplicate is true
// when the request resolved to a previously created order.
type OrderResult struct {
	OrderID   string `json:"order_id"`
	DisplayID string `json:"display_id"`
	Duplicate bool   `json:"duplicate"`
}

// storeAddress converts an optional request address into store shape,
// with empty strings for every absent field.
func storeAddress(in *AddressInput) store.Address {
	if in == nil {
		return store.Address{}
	}
	return store.Address{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Address1:    in.Address1,
		Address2:    in.Address2,
		City:        in.City,
		Province:    in.Province,
		PostalCode:  in.PostalCode,
		CountryCode: in.CountryCode,
		Phone:       in.Phone,
	}
}
