package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-orchestrator/internal/gateway"
	"github.com/yourorg/checkout-orchestrator/internal/gateway/circuitbreaker"
)

// fakeGateway serves the login and payment-intent endpoints and counts
// login calls so token-cache behavior can be asserted.
type fakeGateway struct {
	logins      atomic.Int64
	tokenTTL    time.Duration
	intentError int // when non-zero, intent endpoints return this status
}

func (f *fakeGateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/authentication/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-client-id") == "" || r.Header.Get("x-api-key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"code": "unauthorized", "message": "missing credentials"})
			return
		}
		f.logins.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"token":      "tok_test",
			"expires_at": time.Now().Add(f.tokenTTL),
		})
	})
	mux.HandleFunc("POST /api/v1/pa/payment_intents/create", func(w http.ResponseWriter, r *http.Request) {
		if f.intentError != 0 {
			w.WriteHeader(f.intentError)
			json.NewEncoder(w).Encode(map[string]string{"code": "processor_error", "message": "upstream failure"})
			return
		}
		var params gateway.CreateIntentParams
		json.NewDecoder(r.Body).Decode(&params)
		json.NewEncoder(w).Encode(gateway.PaymentIntent{
			ID:              "int_123",
			ClientSecret:    "secret_123",
			Status:          "REQUIRES_PAYMENT_METHOD",
			Amount:          params.Amount,
			Currency:        params.Currency,
			MerchantOrderID: params.MerchantOrderID,
		})
	})
	mux.HandleFunc("POST /api/v1/pa/payment_intents/int_123/confirm", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gateway.PaymentIntent{ID: "int_123", Status: "SUCCEEDED"})
	})
	mux.HandleFunc("GET /api/v1/pa/payment_intents/int_123", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(gateway.PaymentIntent{ID: "int_123", Status: "SUCCEEDED"})
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeGateway, breaker *circuitbreaker.Breaker) *gateway.Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return gateway.NewClient(gateway.Config{
		BaseURL:  srv.URL,
		ClientID: "client-id",
		APIKey:   "api-key",
	}, srv.Client(), breaker)
}

func TestClient_AccessTokenIsCached(t *testing.T) {
	fake := &fakeGateway{tokenTTL: time.Hour}
	client := newTestClient(t, fake, nil)
	ctx := context.Background()

	token, err := client.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok_test", token)

	_, err = client.AccessToken(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, fake.logins.Load(), "second call should reuse the cached token")
}

func TestClient_TokenNearExpiryIsRefreshed(t *testing.T) {
	// TTL below the 60s buffer: every call should treat the token as
	// expired and log in again.
	fake := &fakeGateway{tokenTTL: 30 * time.Second}
	client := newTestClient(t, fake, nil)
	ctx := context.Background()

	_, err := client.AccessToken(ctx)
	require.NoError(t, err)
	_, err = client.AccessToken(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fake.logins.Load())
}

func TestClient_CreateConfirmFetchIntent(t *testing.T) {
	fake := &fakeGateway{tokenTTL: time.Hour}
	client := newTestClient(t, fake, nil)
	ctx := context.Background()

	intent, err := client.CreatePaymentIntent(ctx, gateway.CreateIntentParams{
		Amount:          2000,
		Currency:        "usd",
		MerchantOrderID: "MO-1001",
	})
	require.NoError(t, err)
	assert.Equal(t, "int_123", intent.ID)
	assert.Equal(t, int64(2000), intent.Amount)
	assert.Equal(t, "MO-1001", intent.MerchantOrderID)

	confirmed, err := client.ConfirmPaymentIntent(ctx, "int_123", gateway.ConfirmIntentParams{
		PaymentMethodID: "pm_1",
		ReturnURL:       "https://shop.example.com/done",
	})
	require.NoError(t, err)
	assert.Equal(t, "SUCCEEDED", confirmed.Status)

	fetched, err := client.GetPaymentIntent(ctx, "int_123")
	require.NoError(t, err)
	assert.Equal(t, "SUCCEEDED", fetched.Status)
}

func TestClient_ServerErrorsSurfaceAPIError(t *testing.T) {
	fake := &fakeGateway{tokenTTL: time.Hour, intentError: http.StatusBadGateway}
	client := newTestClient(t, fake, nil)

	_, err := client.CreatePaymentIntent(context.Background(), gateway.CreateIntentParams{Amount: 100, Currency: "usd"})
	require.Error(t, err)

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "processor_error", apiErr.Code)
}

func TestClient_BreakerFailsFastWhenOpen(t *testing.T) {
	fake := &fakeGateway{tokenTTL: time.Hour, intentError: http.StatusInternalServerError}
	breaker := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2, OpenTimeout: time.Minute})
	client := newTestClient(t, fake, breaker)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.CreatePaymentIntent(ctx, gateway.CreateIntentParams{Amount: 100, Currency: "usd"})
		require.Error(t, err)
	}

	_, err := client.CreatePaymentIntent(ctx, gateway.CreateIntentParams{Amount: 100, Currency: "usd"})
	assert.ErrorIs(t, err, gateway.ErrCircuitOpen, "third call should be rejected without hitting the wire")
	assert.Equal(t, circuitbreaker.Open, breaker.StateOf("create_intent"))
}
