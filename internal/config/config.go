// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
)

// Config holds everything the server and seed commands need.
type Config struct {
	ListenAddr string

	StoreBackend string
	BoltPath     string

	// DuplicateScanWindow is how many recent orders the durable
	// idempotency check inspects. Duplicates older than this window are
	// not detected; see the coordinator docs.
	DuplicateScanWindow int

	GatewayBaseURL  string
	GatewayClientID string
	GatewayAPIKey   string

	// PaymentProviderTag identifies the gateway in order metadata and
	// payment records.
	PaymentProviderTag string
}

// Load reads the environment, applying defaults for unset variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:          getenv("LISTEN_ADDR", ":8080"),
		StoreBackend:        getenv("ORDER_STORE", StoreMemory),
		BoltPath:            getenv("BOLT_PATH", "checkout.db"),
		DuplicateScanWindow: 100,
		GatewayBaseURL:      getenv("GATEWAY_BASE_URL", "https://api.gateway.example.com"),
		GatewayClientID:     os.Getenv("GATEWAY_CLIENT_ID"),
		GatewayAPIKey:       os.Getenv("GATEWAY_API_KEY"),
		PaymentProviderTag:  getenv("PAYMENT_PROVIDER_TAG", "hosted-gateway"),
	}

	if raw := os.Getenv("DUPLICATE_SCAN_WINDOW"); raw != "" {
		window, err := strconv.Atoi(raw)
		if err != nil || window <= 0 {
			return Config{}, fmt.Errorf("config: DUPLICATE_SCAN_WINDOW must be a positive integer, got %q", raw)
		}
		cfg.DuplicateScanWindow = window
	}

	if cfg.StoreBackend != StoreMemory && cfg.StoreBackend != StoreBolt {
		return Config{}, fmt.Errorf("config: ORDER_STORE must be %q or %q, got %q", StoreMemory, StoreBolt, cfg.StoreBackend)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
