// Package gateway is the REST client for the hosted payment processor.
// It authenticates with an API key pair, caches the bearer credential in
// process, and exposes the payment-intent operations the checkout flow
// needs. The client performs no retries; a circuit breaker fails calls
// fast while the gateway is unhealthy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/yourorg/checkout-orchestrator/internal/gateway/circuitbreaker"
)

// Operation names used with the circuit breaker.
const (
	opLogin         = "login"
	opCreateIntent  = "create_intent"
	opConfirmIntent = "confirm_intent"
	opFetchIntent   = "fetch_intent"
)

// tokenExpiryBuffer is how close to expiry a cached token may get before
// it is treated as expired and refreshed.
const tokenExpiryBuffer = 60 * time.Second

// ErrCircuitOpen is returned when the breaker is rejecting calls to an
// operation.
var ErrCircuitOpen = errors.New("gateway: circuit open")

// APIError is the gateway's error envelope, surfaced verbatim so callers
// can log the processor's own code and message.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// PaymentIntent is the gateway's representation of an authorized or
// captured payment.
type PaymentIntent struct {
	ID              string            `json:"id"`
	ClientSecret    string            `json:"client_secret"`
	Status          string            `json:"status"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	MerchantOrderID string            `json:"merchant_order_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// CreateIntentParams are the inputs for a new payment intent. Amount is
// in minor units.
type CreateIntentParams struct {
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	MerchantOrderID string            `json:"merchant_order_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// ConfirmIntentParams confirm an intent with either an inline payment
// method object or a saved payment method id.
type ConfirmIntentParams struct {
	PaymentMethod   map[string]any `json:"payment_method,omitempty"`
	PaymentMethodID string         `json:"payment_method_id,omitempty"`
	ReturnURL       string         `json:"return_url,omitempty"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Config for the gateway client.
type Config struct {
	BaseURL  string
	ClientID string
	APIKey   string
}

// Client talks to the payment gateway. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	cfg        Config

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a gateway client. A nil httpClient gets a default
// with a 10 second timeout; a nil breaker gets default settings.
func NewClient(cfg Config, httpClient *http.Client, breaker *circuitbreaker.Breaker) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.Config{})
	}
	return &Client{httpClient: httpClient, breaker: breaker, cfg: cfg}
}

// AccessToken returns a bearer credential, reusing the cached one until
// it is within 60 seconds of expiry. Refreshes are serialized so
// concurrent callers trigger at most one login.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > tokenExpiryBuffer {
		return c.token, nil
	}

	if !c.breaker.Allow(opLogin) {
		return "", fmt.Errorf("login: %w", ErrCircuitOpen)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v1/authentication/login", nil)
	if err != nil {
		return "", fmt.Errorf("gateway: build login request: %w", err)
	}
	req.Header.Set("x-client-id", c.cfg.ClientID)
	req.Header.Set("x-api-key", c.cfg.APIKey)

	var login loginResponse
	if err := c.do(req, opLogin, &login); err != nil {
		return "", err
	}
	if login.Token == "" {
		return "", fmt.Errorf("gateway: login returned an empty token")
	}

	c.token = login.Token
	c.tokenExpiry = login.ExpiresAt
	return c.token, nil
}

// CreatePaymentIntent creates a payment intent at the gateway.
func (c *Client) CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (PaymentIntent, error) {
	return c.intentCall(ctx, opCreateIntent, http.MethodPost, "/api/v1/pa/payment_intents/create", params)
}

// ConfirmPaymentIntent confirms an existing payment intent.
func (c *Client) ConfirmPaymentIntent(ctx context.Context, id string, params ConfirmIntentParams) (PaymentIntent, error) {
	return c.intentCall(ctx, opConfirmIntent, http.MethodPost, "/api/v1/pa/payment_intents/"+id+"/confirm", params)
}

// GetPaymentIntent fetches a payment intent by id.
func (c *Client) GetPaymentIntent(ctx context.Context, id string) (PaymentIntent, error) {
	return c.intentCall(ctx, opFetchIntent, http.MethodGet, "/api/v1/pa/payment_intents/"+id, nil)
}

func (c *Client) intentCall(ctx context.Context, op, method, path string, body any) (PaymentIntent, error) {
	if !c.breaker.Allow(op) {
		return PaymentIntent{}, fmt.Errorf("%s: %w", op, ErrCircuitOpen)
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return PaymentIntent{}, err
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return PaymentIntent{}, fmt.Errorf("gateway: encode %s body: %w", op, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("gateway: build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var intent PaymentIntent
	if err := c.do(req, op, &intent); err != nil {
		return PaymentIntent{}, err
	}
	return intent, nil
}

// do executes the request, records breaker outcomes, and decodes the
// response into out. Non-2xx responses are decoded into an APIError.
func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure(op)
		return fmt.Errorf("gateway: %s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure(op)
		return fmt.Errorf("gateway: read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Client errors are the caller's problem, not a sign of gateway
		// ill-health; only server errors trip the breaker.
		if resp.StatusCode >= http.StatusInternalServerError {
			c.breaker.RecordFailure(op)
		} else {
			c.breaker.RecordSuccess(op)
		}
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = string(respBody)
		}
		return apiErr
	}

	c.breaker.RecordSuccess(op)
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("gateway: decode %s response: %w", op, err)
		}
	}
	return nil
}
