// Package config loads runtime settings from the environment and the optional
// YAML restaurant profile.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the service
type Config struct {
	Port        string
	Environment string

	UseMemoryStore bool
	Database       DatabaseConfig

	Twilio TwilioConfig

	// AdminPhone is the only sender allowed to issue management commands
	AdminPhone string
	// AdminAPIKey protects the /admin HTTP routes
	AdminAPIKey string
	// DisableWebhookValidation skips the Twilio signature check (ngrok, local runs)
	DisableWebhookValidation bool

	SessionTTL  time.Duration
	SummaryCron string

	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string

	Restaurant Restaurant
}

// DatabaseConfig selects the gorm driver and its connection settings
type DatabaseConfig struct {
	Driver                 string // postgres, mysql or sqlite
	Host                   string
	Port                   int
	User                   string
	Password               string
	Name                   string
	InstanceConnectionName string // Cloud SQL unix socket
	SQLitePath             string
}

// TwilioConfig holds the WhatsApp sender credentials
type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string // e.g. "whatsapp:+14155238886"
}

// Configured reports whether outbound WhatsApp messages can be sent
func (t TwilioConfig) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.WhatsAppFrom != ""
}

// Load reads .env (when present) and the process environment, then merges the
// restaurant profile pointed to by RESTAURANT_CONFIG.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("environments/.env.development"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	cfg := FromEnv(os.Getenv)

	if path := os.Getenv("RESTAURANT_CONFIG"); path != "" {
		profile, err := LoadRestaurant(path)
		if err != nil {
			return nil, err
		}
		cfg.Restaurant = profile.merge(cfg.Restaurant)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from a getenv function, applying defaults
func FromEnv(getenv func(string) string) *Config {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:           env("PORT", "8080"),
		Environment:    env("ENVIRONMENT", "development"),
		UseMemoryStore: env("USE_MEMORY_STORE", "false") == "true",
		Database: DatabaseConfig{
			Driver:                 env("DB_DRIVER", "postgres"),
			Host:                   env("DB_HOST", "localhost"),
			Port:                   atoi(env("DB_PORT", ""), 0),
			User:                   env("DB_USER", "postgres"),
			Password:               getenv("DB_PASS"),
			Name:                   env("DB_NAME", "orderbot"),
			InstanceConnectionName: getenv("INSTANCE_CONNECTION_NAME"),
			SQLitePath:             env("SQLITE_PATH", "orderbot.db"),
		},
		Twilio: TwilioConfig{
			AccountSID:   getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:    getenv("TWILIO_AUTH_TOKEN"),
			WhatsAppFrom: getenv("TWILIO_WHATSAPP_FROM"),
		},
		AdminPhone:               getenv("ADMIN_PHONE"),
		AdminAPIKey:              getenv("ADMIN_API_KEY"),
		DisableWebhookValidation: env("DISABLE_WEBHOOK_VALIDATION", "false") == "true",
		SessionTTL:               duration(env("SESSION_TTL", ""), 15*time.Minute),
		SummaryCron:              env("SUMMARY_CRON", "0 22 * * *"),
		RedisAddr:                getenv("REDIS_ADDR"),
		KafkaBrokers:             splitCSV(getenv("KAFKA_BROKERS")),
		KafkaTopic:               env("KAFKA_TOPIC", "orders.events"),
		Restaurant: Restaurant{
			Name:          env("RESTAURANT_NAME", "Our Kitchen"),
			Phone:         getenv("RESTAURANT_PHONE"),
			PickupAddress: env("PICKUP_ADDRESS", "Main branch"),
			DeliveryFee:   atof(env("DELIVERY_FEE", ""), 30),
			TimeZone:      env("TIMEZONE", "America/Mexico_City"),
		},
	}

	if cfg.Database.Port == 0 {
		switch cfg.Database.Driver {
		case "mysql":
			cfg.Database.Port = 3306
		default:
			cfg.Database.Port = 5432
		}
	}
	// Restaurant notifications fall back to the admin phone
	if cfg.Restaurant.Phone == "" {
		cfg.Restaurant.Phone = cfg.AdminPhone
	}
	return cfg
}

// IsDevelopment reports whether the service runs in local development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Location returns the restaurant time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	return c.Restaurant.Location()
}

func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, "SESSION_TTL must be positive")
	}
	if c.Restaurant.DeliveryFee < 0 {
		errs = append(errs, "DELIVERY_FEE must not be negative")
	}
	if _, err := time.LoadLocation(c.Restaurant.TimeZone); err != nil {
		errs = append(errs, fmt.Sprintf("unknown TIMEZONE %q", c.Restaurant.TimeZone))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("⚠️  config: invalid integer %q, using %d", s, def)
		return def
	}
	return n
}

func atof(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("⚠️  config: invalid number %q, using %.2f", s, def)
		return def
	}
	return f
}

func duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("⚠️  config: invalid duration %q, using %s", s, def)
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
