package config

import (
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration holds every runtime knob of the service. All fields have
// defaults except the Postgres DSN.
type Configuration struct {
	Address     string `env:"ADDRESS" envDefault:":8080"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	// Comma-separated allowlist of site ids accepted by the ingest endpoint.
	SiteIDs []int `env:"SITE_IDS" envSeparator:"," envDefault:"1"`

	// Event name that marks a session as converted.
	GoalEvent string `env:"GOAL_EVENT" envDefault:"form_submit"`

	BucketWidth   time.Duration `env:"BUCKET_WIDTH" envDefault:"1h"`
	LateGrace     time.Duration `env:"LATE_GRACE" envDefault:"5m"`
	InactivityGap time.Duration `env:"INACTIVITY_GAP" envDefault:"30m"`

	// How far back in-memory rollups are kept; older ranges are recounted
	// from the event log.
	HotWindow time.Duration `env:"HOT_WINDOW" envDefault:"48h"`

	DedupTTL        time.Duration `env:"DEDUP_TTL" envDefault:"24h"`
	DedupMaxEntries int           `env:"DEDUP_MAX_ENTRIES" envDefault:"1000000"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	PollBatch    int           `env:"POLL_BATCH" envDefault:"500"`

	MaxPropertiesBytes int `env:"MAX_PROPERTIES_BYTES" envDefault:"8192"`

	CORSOrigins          string `env:"CORS_ORIGINS" envDefault:"*"`
	CORSAllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`
}

// New reads the optional .env file and parses the environment.
func New() (*Configuration, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
