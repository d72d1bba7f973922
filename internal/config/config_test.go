package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-orchestrator/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, config.StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 100, cfg.DuplicateScanWindow)
	assert.Equal(t, "hosted-gateway", cfg.PaymentProviderTag)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("ORDER_STORE", "bolt")
	t.Setenv("BOLT_PATH", "/tmp/orders.db")
	t.Setenv("DUPLICATE_SCAN_WINDOW", "25")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, config.StoreBolt, cfg.StoreBackend)
	assert.Equal(t, "/tmp/orders.db", cfg.BoltPath)
	assert.Equal(t, 25, cfg.DuplicateScanWindow)
}

func TestLoad_InvalidScanWindow(t *testing.T) {
	t.Setenv("DUPLICATE_SCAN_WINDOW", "zero")
	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("DUPLICATE_SCAN_WINDOW", "-5")
	_, err = config.Load()
	assert.Error(t, err)
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("ORDER_STORE", "postgres")
	_, err := config.Load()
	assert.Error(t, err)
}
