package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable for clients and the dev server. Values come
// from the environment with sensible defaults; a .env file is honored when
// present so local runs don't need exported variables.
type Config struct {
	ServerURL string `env:"WORDSCAPE_WS_URL" envDefault:"ws://127.0.0.1:8080/ws"`
	APIBase   string `env:"WORDSCAPE_API_BASE" envDefault:"http://127.0.0.1:8080"`

	DialTimeout     time.Duration `env:"WORDSCAPE_DIAL_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WORDSCAPE_WRITE_TIMEOUT" envDefault:"5s"`
	Heartbeat       time.Duration `env:"WORDSCAPE_HEARTBEAT" envDefault:"30s"`
	ConnectThrottle time.Duration `env:"WORDSCAPE_CONNECT_THROTTLE" envDefault:"300ms"`
	MaxAttempts     int           `env:"WORDSCAPE_MAX_ATTEMPTS" envDefault:"5"`

	CoalesceWindow time.Duration `env:"WORDSCAPE_COALESCE_WINDOW" envDefault:"50ms"`
	FlushDebounce  time.Duration `env:"WORDSCAPE_FLUSH_DEBOUNCE" envDefault:"50ms"`
	LowDrain       time.Duration `env:"WORDSCAPE_LOW_DRAIN" envDefault:"500ms"`

	SnapshotTTL  time.Duration `env:"WORDSCAPE_SNAPSHOT_TTL" envDefault:"30s"`
	SnapshotDir  string        `env:"WORDSCAPE_SNAPSHOT_DIR"`
	PendingGuard time.Duration `env:"WORDSCAPE_PENDING_GUARD" envDefault:"10s"`

	// dev server only
	ListenAddr  string `env:"WORDSCAPE_LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"WORDSCAPE_DATABASE_URL"`
}

// Load reads .env (if any) and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
