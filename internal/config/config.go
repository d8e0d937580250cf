package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	xenv "github.com/viiraa/healthsync/internal/env"
)

const DefaultDashboardURL = "https://viiraa.com/dashboard"

type Config struct {
	Environment xenv.Environment `env:"ENVIRONMENT" envDefault:"development"`

	Supabase  Supabase
	Vital     Vital
	Dashboard Dashboard
	PostHog   PostHog

	// RedisURL, when set, switches the credential store to redis.
	RedisURL string `env:"REDIS_URL"`
}

type Supabase struct {
	URL     string `env:"SUPABASE_URL,notEmpty"`
	AnonKey string `env:"SUPABASE_ANON_KEY,notEmpty"`
}

type Vital struct {
	APIKey string `env:"VITAL_API_KEY"`

	// SyncInterval is the period of the recurring background sync.
	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"1h"`

	// SyncGracePeriod is how long SyncNow waits after triggering the
	// fire-and-forget upload before reporting success.
	SyncGracePeriod time.Duration `env:"SYNC_GRACE_PERIOD" envDefault:"1500ms"`
}

type Dashboard struct {
	URL string `env:"DASHBOARD_URL" envDefault:"https://viiraa.com/dashboard"`

	// ListenAddr is where the local bridge proxy serves the dashboard.
	ListenAddr string `env:"BRIDGE_LISTEN_ADDR" envDefault:"127.0.0.1:8787"`
}

type PostHog struct {
	APIKey string `env:"POSTHOG_API_KEY"`
	Host   string `env:"POSTHOG_HOST" envDefault:"https://us.posthog.com"`
}

func Read() (Config, error) {
	return env.ParseAs[Config]()
}
