package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, PaymentProviderSandbox, cfg.Payments.Provider)
	assert.Equal(t, 30*time.Minute, cfg.Payments.IntentTTL)
	assert.Equal(t, LockBackendMemory, cfg.Locks.Backend)
	assert.Equal(t, 30*time.Second, cfg.Locks.TTL)
	assert.Equal(t, 10*time.Second, cfg.Payments.GatewayTimeout)
	assert.Equal(t, "*/5 * * * *", cfg.Sweeps.Schedule)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PAYMENT_PROVIDER", "Stripe")
	t.Setenv("PAYMENT_INTENT_TTL", "0s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SETTLEMENT_WORKERS", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, PaymentProviderStripe, cfg.Payments.Provider)
	assert.Equal(t, time.Duration(0), cfg.Payments.IntentTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 4, cfg.Settlement.Workers)
}

func TestLockTTLOutlivesGatewayTimeout(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LOCK_TTL", "10s")
	t.Setenv("PAYMENT_GATEWAY_TIMEOUT", "20s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, cfg.Payments.GatewayTimeout)
	assert.Equal(t, 25*time.Second, cfg.Locks.TTL)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("not-a-duration", time.Minute))
	assert.Equal(t, 5*time.Second, parseDuration("5s", time.Minute))
}
