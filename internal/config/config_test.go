package config_test

import (
	"testing"
	"time"

	"github.com/isekhard17/academia-sekhard/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("LocalFile", func(t *testing.T) {
		cfg, err := config.LoadWith(viper.New(), "local")
		require.NoError(t, err)

		assert.Equal(t, "local", cfg.Env)
		assert.Equal(t, config.ProviderLocal, cfg.Identity.Provider)
		assert.Equal(t, "academia", cfg.Database.DBName)
		assert.Contains(t, cfg.Server.CORSOrigins, "http://localhost:5173")
		assert.Equal(t, 5, cfg.Dashboard.UpcomingLimit)
		assert.Equal(t, 2*time.Second, cfg.Events.PublishTimeout())
	})

	t.Run("DefaultsRequireGoTrueSettings", func(t *testing.T) {
		_, err := config.LoadWith(viper.New(), "test")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SUPABASE_URL")
		assert.Contains(t, err.Error(), "SUPABASE_SERVICE_KEY")
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("IDENTITY_PROVIDER", "gotrue")
		t.Setenv("SUPABASE_URL", "https://proyecto.supabase.co")
		t.Setenv("SUPABASE_SERVICE_KEY", "service")
		t.Setenv("PORT", "9090")
		t.Setenv("DB_HOST", "postgres.internal")
		t.Setenv("ENFORCE_SECTION_CAPACITY", "true")

		cfg, err := config.LoadWith(viper.New(), "test")
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "postgres.internal", cfg.Database.Host)
		assert.Equal(t, "https://proyecto.supabase.co", cfg.Identity.URL)
		assert.True(t, cfg.Sections.EnforceCapacity)
		assert.Equal(t, 3600, cfg.Identity.AccessTokenTTL)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Identity:  config.IdentityConfig{Provider: config.ProviderLocal, JWTSecret: "0123456789abcdef"},
			Events:    config.EventsConfig{Driver: config.EventsNone},
			Dashboard: config.DashboardConfig{UpcomingLimit: 5},
		}
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("ShortLocalSecret", func(t *testing.T) {
		cfg := valid()
		cfg.Identity.JWTSecret = "corto"
		assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		cfg := valid()
		cfg.Identity.Provider = "ldap"
		assert.ErrorContains(t, cfg.Validate(), `unknown identity provider "ldap"`)
	})

	t.Run("NATSWithoutURL", func(t *testing.T) {
		cfg := valid()
		cfg.Events.Driver = config.EventsNATS
		assert.ErrorContains(t, cfg.Validate(), "NATS_URL")
	})

	t.Run("KafkaWithoutBrokers", func(t *testing.T) {
		cfg := valid()
		cfg.Events.Driver = config.EventsKafka
		assert.ErrorContains(t, cfg.Validate(), "KAFKA_BROKERS")
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		cfg := valid()
		cfg.Events.Driver = "rabbit"
		assert.ErrorContains(t, cfg.Validate(), `unknown events driver "rabbit"`)
	})
}
