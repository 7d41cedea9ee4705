package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SHIPPING_TAX_RATE", "SHIPMENT_INC_VAT", "SERVER_PORT", "ALLOWED_ORIGINS", "KAFKA_BROKERS", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Tax.ShipmentIncVAT)
	assert.True(t, cfg.Tax.ShippingTaxRate.IsZero())
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SHIPPING_TAX_RATE", " 0.25 ")
	t.Setenv("SHIPMENT_INC_VAT", "true")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_TTL_SECONDS", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.25", cfg.Tax.ShippingTaxRate.String())
	assert.True(t, cfg.Tax.ShipmentIncVAT)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.Redis.TTL)
}

func TestLoad_RejectsBadTaxRate(t *testing.T) {
	t.Setenv("SHIPPING_TAX_RATE", "25%")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SHIPPING_TAX_RATE", "-0.1")
	_, err = Load()
	assert.Error(t, err)
}
