package config

import (
	"fmt"
	"time"

	"factory-tracker/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Factory   models.FactoryLocation
	Tracker   TrackerConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	MQTT      MQTTConfig
	AMQP      AMQPConfig
	Firebase  FirebaseConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type TrackerConfig struct {
	ReconcileInterval time.Duration
	StaleAfter        time.Duration
	FreshWithin       time.Duration
	EventQueueSize    int
	SeedDemoDrivers   bool
}

// RateLimitConfig throttles driver ingest per client address; zero RPS disables it
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func (c RateLimitConfig) Enabled() bool {
	return c.RPS > 0
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

// MQTTConfig is optional; an empty Broker disables device ingest
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// AMQPConfig is optional; an empty URL disables the event mirror
type AMQPConfig struct {
	URL      string
	Exchange string
}

// FirebaseConfig is optional; push notifications are disabled without credentials
type FirebaseConfig struct {
	CredentialsFile   string
	CredentialsBase64 string
}

func (c FirebaseConfig) Enabled() bool {
	return c.CredentialsFile != "" || c.CredentialsBase64 != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3001")
	v.SetDefault("ENVIRONMENT", "development")

	v.SetDefault("FACTORY_LAT", models.DefaultFactory.Latitude)
	v.SetDefault("FACTORY_LNG", models.DefaultFactory.Longitude)
	v.SetDefault("FACTORY_NAME", models.DefaultFactory.Name)

	v.SetDefault("RECONCILE_INTERVAL", "30s")
	v.SetDefault("STALE_AFTER", "5m")
	v.SetDefault("FRESH_WITHIN", "1m")
	v.SetDefault("EVENT_QUEUE_SIZE", 256)
	v.SetDefault("SEED_DEMO_DRIVERS", false)

	v.SetDefault("SESSION_SECRET", "factory-tracker-dev-secret")
	v.SetDefault("SESSION_TTL", "168h")

	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("MQTT_CLIENT_ID", "factory-tracker")
	v.SetDefault("AMQP_EXCHANGE", "driver_events")
}

// Load reads .env (when present) and the process environment
func Load() (*Config, error) {
	// a missing .env is fine; the environment may be set by the platform
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("PORT"),
			Environment: v.GetString("ENVIRONMENT"),
		},
		Factory: models.FactoryLocation{
			Latitude:  v.GetFloat64("FACTORY_LAT"),
			Longitude: v.GetFloat64("FACTORY_LNG"),
			Name:      v.GetString("FACTORY_NAME"),
		},
		Tracker: TrackerConfig{
			ReconcileInterval: v.GetDuration("RECONCILE_INTERVAL"),
			StaleAfter:        v.GetDuration("STALE_AFTER"),
			FreshWithin:       v.GetDuration("FRESH_WITHIN"),
			EventQueueSize:    v.GetInt("EVENT_QUEUE_SIZE"),
			SeedDemoDrivers:   v.GetBool("SEED_DEMO_DRIVERS"),
		},
		Session: SessionConfig{
			Secret: v.GetString("SESSION_SECRET"),
			TTL:    v.GetDuration("SESSION_TTL"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		MQTT: MQTTConfig{
			Broker:   v.GetString("MQTT_BROKER"),
			ClientID: v.GetString("MQTT_CLIENT_ID"),
			Username: v.GetString("MQTT_USERNAME"),
			Password: v.GetString("MQTT_PASSWORD"),
		},
		AMQP: AMQPConfig{
			URL:      v.GetString("AMQP_URL"),
			Exchange: v.GetString("AMQP_EXCHANGE"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile:   v.GetString("FIREBASE_CREDENTIALS_FILE"),
			CredentialsBase64: v.GetString("FIREBASE_CREDENTIALS_BASE64"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Factory.Latitude < -90 || c.Factory.Latitude > 90 {
		return fmt.Errorf("FACTORY_LAT out of range: %v", c.Factory.Latitude)
	}
	if c.Factory.Longitude < -180 || c.Factory.Longitude > 180 {
		return fmt.Errorf("FACTORY_LNG out of range: %v", c.Factory.Longitude)
	}
	if c.Tracker.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive, got %s", c.Tracker.ReconcileInterval)
	}
	if c.Tracker.FreshWithin >= c.Tracker.StaleAfter {
		return fmt.Errorf("FRESH_WITHIN (%s) must be shorter than STALE_AFTER (%s)",
			c.Tracker.FreshWithin, c.Tracker.StaleAfter)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %v", c.RateLimit.RPS)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
