package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabaseURL    string
	LogMode        string
	AllowedOrigins string

	// Optional bearer token the gateway must present. Empty disables the check.
	GatewayServiceToken string

	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string // when set, stream tokens are verified locally (HS256)

	DiscordWebhookURL string
	DebugEndpoints    bool

	StoreTimeout time.Duration

	DispatchWorkers int
	DispatchQueue   int

	ReconcileInterval time.Duration
	ReconcileRepair   bool

	HeatmapCacheSize int
	HeatmapCacheTTL  time.Duration

	R2 R2Config
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// Enabled reports whether enough R2 settings are present to upload.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.AccessKeySecret != "" && r.Bucket != ""
}

// Load reads .env (if present) and the process environment. The bool result reports whether a
// .env file was found.
func Load() (Config, bool) {
	dotenv := godotenv.Load() == nil

	cfg := Config{
		Port:                envString("PORT", "5200"),
		DatabaseURL:         envString("DATABASE_URL", ""),
		LogMode:             envString("LOG_MODE", "development"),
		AllowedOrigins:      envString("ALLOWED_ORIGINS", "http://localhost:3000"),
		GatewayServiceToken: envString("GATEWAY_SERVICE_TOKEN", ""),
		SupabaseURL:         strings.TrimRight(envString("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:     envString("SUPABASE_ANON_KEY", ""),
		SupabaseJWTSecret:   envString("SUPABASE_JWT_SECRET", ""),
		DiscordWebhookURL:   envString("DISCORD_WEBHOOK_URL", ""),
		DebugEndpoints:      envBool("DEBUG_ENDPOINTS", false),
		StoreTimeout:        envDuration("STORE_TIMEOUT", 5*time.Second),
		DispatchWorkers:     envInt("DISPATCH_WORKERS", 4),
		DispatchQueue:       envInt("DISPATCH_QUEUE", 256),
		ReconcileInterval:   envDuration("RECONCILE_INTERVAL", time.Hour),
		ReconcileRepair:     envBool("RECONCILE_REPAIR", false),
		HeatmapCacheSize:    envInt("HEATMAP_CACHE_SIZE", 1024),
		HeatmapCacheTTL:     envDuration("HEATMAP_CACHE_TTL", 30*time.Second),
		R2: R2Config{
			AccountID:       envString("CLOUDFLARE_ACCOUNT_ID", ""),
			AccessKeyID:     envString("R2_ACCESS_KEY_ID", ""),
			AccessKeySecret: envString("R2_ACCESS_KEY_SECRET", ""),
			Bucket:          envString("R2_BUCKET_NAME", ""),
		},
	}
	return cfg, dotenv
}

func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.DispatchWorkers <= 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_WORKERS must be positive, got %d", c.DispatchWorkers))
	}
	if c.DispatchQueue <= 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_QUEUE must be positive, got %d", c.DispatchQueue))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout))
	}
	if c.ReconcileInterval <= 0 {
		errs = append(errs, fmt.Errorf("RECONCILE_INTERVAL must be positive, got %s", c.ReconcileInterval))
	}
	return errors.Join(errs...)
}

// AllowedOriginsList splits ALLOWED_ORIGINS on commas and trims each entry.
func (c Config) AllowedOriginsList() []string {
	var out []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

func envString(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func envDuration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
