package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type BotConfig struct {
	Token          string
	WebhookURL     string
	WebhookSecret  string
	PersistWebhook bool
}

type StoreConfig struct {
	URL string
	Key string
}

type RedisConfig struct {
	URL string
}

type PaymentConfig struct {
	APIKey    string
	IPNSecret string
}

type AIConfig struct {
	GroqKey string
	Model   string
}

type CreditsConfig struct {
	DefaultOnRegister int64
	SubscriptionDays  int
	SubscriptionBonus int64
}

type AdminConfig struct {
	APIKey    string
	JWTSecret string
}

type LogConfig struct {
	Level  string // trace|debug|info|warn|error
	Format string // json|console
}

type ServerConfig struct {
	Port               int
	ShutdownGrace      time.Duration
	RateLimitPerMinute int
}

type Config struct {
	Bot     BotConfig
	Store   StoreConfig
	Redis   RedisConfig
	Payment PaymentConfig
	AI      AIConfig
	Credits CreditsConfig
	Admin   AdminConfig
	Log     LogConfig
	Server  ServerConfig
}

// Load reads configuration from the environment (optionally seeded from a
// .env file) and validates the required variables. The result is immutable
// after startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Bot: BotConfig{
			Token:          os.Getenv("CHAT_BOT_TOKEN"),
			WebhookURL:     os.Getenv("CHAT_WEBHOOK_URL"),
			WebhookSecret:  os.Getenv("CHAT_WEBHOOK_SECRET"),
			PersistWebhook: envBool("PERSIST_WEBHOOK", false),
		},
		Store: StoreConfig{
			URL: os.Getenv("STORE_URL"),
			Key: os.Getenv("STORE_KEY"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Payment: PaymentConfig{
			APIKey:    os.Getenv("PAYMENT_API_KEY"),
			IPNSecret: os.Getenv("PAYMENT_IPN_SECRET"),
		},
		AI: AIConfig{
			GroqKey: os.Getenv("GROQ_API_KEY"),
			Model:   envStr("GROQ_MODEL", "llama-3.1-8b-instant"),
		},
		Credits: CreditsConfig{
			DefaultOnRegister: envInt64("DEFAULT_CREDITS_ON_REGISTER", 0),
			SubscriptionDays:  int(envInt64("SUBSCRIPTION_DAYS", 30)),
			SubscriptionBonus: envInt64("SUBSCRIPTION_BONUS_CREDITS", 250),
		},
		Admin: AdminConfig{
			APIKey:    os.Getenv("ADMIN_API_KEY"),
			JWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
		},
		Log: LogConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "json"),
		},
		Server: ServerConfig{
			Port:               int(envInt64("PORT", 8000)),
			ShutdownGrace:      time.Duration(envInt64("SHUTDOWN_GRACE_SECONDS", 10)) * time.Second,
			RateLimitPerMinute: int(envInt64("RATE_LIMIT_PER_MINUTE", 20)),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate enforces only what the process cannot run without. A missing bot
// token or payment key degrades to the noop adapters; a missing webhook or
// IPN secret leaves the corresponding verifier fail-closed.
func (c *Config) validate() error {
	if c.Store.URL == "" {
		return errors.New("STORE_URL is required")
	}
	if c.Bot.WebhookURL != "" {
		if c.Bot.WebhookSecret == "" {
			return errors.New("CHAT_WEBHOOK_SECRET is required when CHAT_WEBHOOK_URL is set")
		}
		if _, err := url.Parse(c.Bot.WebhookURL); err != nil {
			return fmt.Errorf("CHAT_WEBHOOK_URL: %w", err)
		}
	}
	if c.Credits.DefaultOnRegister < 0 || c.Credits.SubscriptionBonus < 0 {
		return errors.New("credit amounts must be non-negative")
	}
	if c.Credits.SubscriptionDays <= 0 {
		return errors.New("SUBSCRIPTION_DAYS must be positive")
	}
	return nil
}

// StoreDSN builds the connection string, injecting STORE_KEY as the password
// when the URL does not already carry one.
func (c *Config) StoreDSN() string {
	if c.Store.Key == "" {
		return c.Store.URL
	}
	u, err := url.Parse(c.Store.URL)
	if err != nil || u.User == nil {
		return c.Store.URL
	}
	if _, has := u.User.Password(); has {
		return c.Store.URL
	}
	u.User = url.UserPassword(u.User.Username(), c.Store.Key)
	return u.String()
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
