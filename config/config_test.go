package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:dev.db")
	t.Setenv("PORT", "")
	t.Setenv("STORE_TIMEOUT", "")
	t.Setenv("DEBUG_ENDPOINTS", "")

	cfg, _ := Load()
	require.Equal(t, "5200", cfg.Port)
	require.Equal(t, 5*time.Second, cfg.StoreTimeout)
	require.False(t, cfg.DebugEndpoints)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/vibe")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("DEBUG_ENDPOINTS", "yes")
	t.Setenv("DISPATCH_WORKERS", "8")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co/")

	cfg, _ := Load()
	require.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	require.True(t, cfg.DebugEndpoints)
	require.Equal(t, 8, cfg.DispatchWorkers)
	require.Equal(t, "https://abc.supabase.co", cfg.SupabaseURL)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:dev.db")
	t.Setenv("DISPATCH_WORKERS", "many")
	t.Setenv("RECONCILE_INTERVAL", "soon")

	cfg, _ := Load()
	require.Equal(t, 4, cfg.DispatchWorkers)
	require.Equal(t, time.Hour, cfg.ReconcileInterval)
}

func TestValidate(t *testing.T) {
	cfg := Config{DispatchWorkers: 0, DispatchQueue: 1, StoreTimeout: time.Second, ReconcileInterval: time.Minute}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
	require.Contains(t, err.Error(), "DISPATCH_WORKERS")
}

func TestAllowedOriginsList(t *testing.T) {
	cfg := Config{AllowedOrigins: " http://a.test , ,http://b.test"}
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOriginsList())
}

func TestR2Enabled(t *testing.T) {
	require.False(t, R2Config{AccountID: "x"}.Enabled())
	require.True(t, R2Config{AccountID: "a", AccessKeyID: "b", AccessKeySecret: "c", Bucket: "d"}.Enabled())
}
