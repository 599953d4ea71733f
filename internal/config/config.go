package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Every setting comes from the pod environment. Defaults target the
// docker-compose stack (postgres, localstack, jaeger).

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"

	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

type Config struct {
	DBHost           string `mapstructure:"DB_HOST"`
	DBPort           string `mapstructure:"DB_PORT"`
	DBUser           string `mapstructure:"DB_USER"`
	DBPassword       string `mapstructure:"DB_PASSWORD"`
	DBName           string `mapstructure:"DB_NAME"`
	ServerPort       string `mapstructure:"SERVER_PORT"`
	AWSRegion        string `mapstructure:"AWS_REGION"`
	LaborSQSQueueURL string `mapstructure:"LABOR_SQS_QUEUE_URL"`
	EmailSQSQueueURL string `mapstructure:"EMAIL_SQS_QUEUE_URL"`
	AWSEndpoint      string `mapstructure:"AWS_ENDPOINT"`
	LegacyAPIURL     string `mapstructure:"LEGACY_API_URL"`
	IsLocalDev       bool   `mapstructure:"IS_LOCAL_DEV"`

	StorageBackend  string        `mapstructure:"STORAGE_BACKEND"`
	SQLitePath      string        `mapstructure:"SQLITE_PATH"`
	DemoUserID      string        `mapstructure:"DEMO_USER_ID"`
	DemoFixturePath string        `mapstructure:"DEMO_FIXTURE_PATH"`
	Timezone        string        `mapstructure:"TIMEZONE"`
	Locale          string        `mapstructure:"LOCALE"`
	TickInterval    time.Duration `mapstructure:"TICK_INTERVAL"`
	PublishEvents   bool          `mapstructure:"PUBLISH_EVENTS"`
	TraceExporter   string        `mapstructure:"TRACE_EXPORTER"`
	OTLPEndpoint    string        `mapstructure:"OTLP_ENDPOINT"`
	EmailSender     string        `mapstructure:"EMAIL_SENDER"`
	EmailDomain     string        `mapstructure:"EMAIL_DOMAIN"`
}

// LoadConfig reads configuration from environment variables over the defaults.
func LoadConfig() (config Config, err error) {
	v := viper.New()

	v.SetDefault("DB_HOST", "db")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "timetrack_db")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("LABOR_SQS_QUEUE_URL", "http://localstack:4566/000000000000/labor-queue")
	v.SetDefault("EMAIL_SQS_QUEUE_URL", "http://localstack:4566/000000000000/email-queue")
	v.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	v.SetDefault("LEGACY_API_URL", "http://localhost:8081/")
	v.SetDefault("IS_LOCAL_DEV", false)

	v.SetDefault("STORAGE_BACKEND", BackendPostgres)
	v.SetDefault("SQLITE_PATH", "timetrack.db")
	v.SetDefault("DEMO_USER_ID", "demo-user-123")
	v.SetDefault("DEMO_FIXTURE_PATH", "")
	v.SetDefault("TIMEZONE", "Europe/Madrid")
	v.SetDefault("LOCALE", "es")
	v.SetDefault("TICK_INTERVAL", time.Second)
	v.SetDefault("PUBLISH_EVENTS", false)
	v.SetDefault("TRACE_EXPORTER", ExporterOTLP)
	v.SetDefault("OTLP_ENDPOINT", "jaeger:4317")
	v.SetDefault("EMAIL_SENDER", "no-reply@timetrack.local")
	v.SetDefault("EMAIL_DOMAIN", "timetrack.local")

	// Read in environment variables that match the keys.
	v.AutomaticEnv()

	if err = v.Unmarshal(&config); err != nil {
		return config, err
	}
	return config, config.Validate()
}

// Validate rejects settings the services cannot start with.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendPostgres, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.TraceExporter {
	case ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("unknown TRACE_EXPORTER %q", c.TraceExporter)
	}
	if c.StorageBackend == BackendSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the time zone entry dates are computed in.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PostgresDSN builds the pgx connection string.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}
