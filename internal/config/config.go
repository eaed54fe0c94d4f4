package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderGoTrue = "gotrue"
	ProviderLocal  = "local"

	EventsNone  = "none"
	EventsNATS  = "nats"
	EventsKafka = "kafka"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	LogLevel  string          `mapstructure:"log_level"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Sections  SectionsConfig  `mapstructure:"sections"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout  int      `mapstructure:"idle_timeout_seconds"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
}

// IdentityConfig selects who verifies credentials and bearer tokens.
type IdentityConfig struct {
	Provider           string `mapstructure:"provider"`
	URL                string `mapstructure:"url"`
	AnonKey            string `mapstructure:"anon_key"`
	ServiceKey         string `mapstructure:"service_key"`
	JWTSecret          string `mapstructure:"jwt_secret"`
	Issuer             string `mapstructure:"issuer"`
	AccessTokenTTL     int    `mapstructure:"access_token_ttl_seconds"`
	RefreshTokenTTL    int    `mapstructure:"refresh_token_ttl_hours"`
	HTTPTimeoutSeconds int    `mapstructure:"http_timeout_seconds"`
}

type EventsConfig struct {
	Driver string `mapstructure:"driver"`
	// PublishTimeoutMillis bounds how long a request waits on the broker.
	PublishTimeoutMillis int         `mapstructure:"publish_timeout_ms"`
	NATS                 NATSConfig  `mapstructure:"nats"`
	Kafka                KafkaConfig `mapstructure:"kafka"`
}

func (c EventsConfig) PublishTimeout() time.Duration {
	return time.Duration(c.PublishTimeoutMillis) * time.Millisecond
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type DashboardConfig struct {
	UpcomingLimit int `mapstructure:"upcoming_limit"`
}

type SectionsConfig struct {
	// EnforceCapacity rejects enrollments once cupo_maximo is reached.
	EnforceCapacity bool `mapstructure:"enforce_capacity"`
}

func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}
	return LoadWith(viper.New(), env)
}

// LoadWith reads configuration for env into v. Config files are optional;
// environment variables take precedence over them.
func LoadWith(v *viper.Viper, env string) (*Config, error) {
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	v.AddConfigPath("/configs")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	setDefaults(v, env)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"server.port":                       "PORT",
		"database.host":                     "DB_HOST",
		"database.port":                     "DB_PORT",
		"database.user":                     "DB_USER",
		"database.password":                 "DB_PASSWORD",
		"database.name":                     "DB_NAME",
		"database.ssl_mode":                 "DB_SSL_MODE",
		"identity.url":                      "SUPABASE_URL",
		"identity.anon_key":                 "SUPABASE_ANON_KEY",
		"identity.service_key":              "SUPABASE_SERVICE_KEY",
		"identity.jwt_secret":               "JWT_SECRET",
		"events.nats.url":                   "NATS_URL",
		"events.kafka.brokers":              "KAFKA_BROKERS",
		"telemetry.otlp_endpoint":           "OTEL_EXPORTER_OTLP_ENDPOINT",
		"sentry.dsn":                        "SENTRY_DSN",
		"sections.enforce_capacity":         "ENFORCE_SECTION_CAPACITY",
		"dashboard.upcoming_limit":          "UPCOMING_EVALUATIONS_LIMIT",
		"identity.provider":                 "IDENTITY_PROVIDER",
		"events.driver":                     "EVENTS_DRIVER",
		"events.publish_timeout_ms":         "EVENTS_PUBLISH_TIMEOUT_MS",
		"server.cors_origins":               "CORS_ORIGINS",
		"identity.access_token_ttl_seconds": "ACCESS_TOKEN_TTL_SECONDS",
	}
	for key, envVar := range bindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("bind %s: %w", envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Env = env

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("env", env)
	v.SetDefault("log_level", "")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.idle_timeout_seconds", 60)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "academia")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("identity.provider", ProviderGoTrue)
	v.SetDefault("identity.issuer", "academia-sekhard")
	v.SetDefault("identity.access_token_ttl_seconds", 3600)
	v.SetDefault("identity.refresh_token_ttl_hours", 24*7)
	v.SetDefault("identity.http_timeout_seconds", 10)
	v.SetDefault("events.driver", EventsNone)
	v.SetDefault("events.publish_timeout_ms", 2000)
	v.SetDefault("events.nats.subject_prefix", "academia")
	v.SetDefault("events.kafka.topic", "academia.events")
	v.SetDefault("dashboard.upcoming_limit", 5)
	v.SetDefault("sections.enforce_capacity", false)
}

// Validate reports missing settings for the selected providers.
func (c *Config) Validate() error {
	var errs []error

	switch c.Identity.Provider {
	case ProviderGoTrue:
		if c.Identity.URL == "" {
			errs = append(errs, errors.New("identity.url (SUPABASE_URL) is required for the gotrue provider"))
		}
		if c.Identity.ServiceKey == "" {
			errs = append(errs, errors.New("identity.service_key (SUPABASE_SERVICE_KEY) is required for the gotrue provider"))
		}
	case ProviderLocal:
		if len(c.Identity.JWTSecret) < 16 {
			errs = append(errs, errors.New("identity.jwt_secret (JWT_SECRET) must be at least 16 characters for the local provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown identity provider %q", c.Identity.Provider))
	}

	switch c.Events.Driver {
	case EventsNone, "":
	case EventsNATS:
		if c.Events.NATS.URL == "" {
			errs = append(errs, errors.New("events.nats.url (NATS_URL) is required for the nats driver"))
		}
	case EventsKafka:
		if len(c.Events.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("events.kafka.brokers (KAFKA_BROKERS) is required for the kafka driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events driver %q", c.Events.Driver))
	}

	if c.Dashboard.UpcomingLimit < 1 {
		errs = append(errs, errors.New("dashboard.upcoming_limit must be positive"))
	}

	return errors.Join(errs...)
}
