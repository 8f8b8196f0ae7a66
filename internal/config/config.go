package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"ADMIN_ID"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// OpTimeoutSeconds bounds every single store operation.
	OpTimeoutSeconds int `yaml:"op_timeout_seconds" envconfig:"DB_OP_TIMEOUT_SECONDS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
	File   string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// PaymentConfig describes payment instructions and the fixed price table.
type PaymentConfig struct {
	USDTAddress   string  `yaml:"usdt_address" envconfig:"USDT_TRON_ADDRESS"`
	WebsitePrice  float64 `yaml:"website_price" envconfig:"WEBSITE_PRICE"`
	BotPrice      float64 `yaml:"bot_price" envconfig:"BOT_PRICE"`
	ManualContact string  `yaml:"manual_contact" envconfig:"MANUAL_CONTACT"`
}

// StorageConfig covers local attachment storage.
type StorageConfig struct {
	UploadsDir string `yaml:"uploads_dir" envconfig:"UPLOADS_DIR"`
}

// Config aggregates the full application configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Payment  PaymentConfig  `yaml:"payment"`
	Storage  StorageConfig  `yaml:"storage"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required")
	}
	if cfg.Telegram.LongPollTimeoutSeconds < 0 {
		return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConnections <= 0 {
		cfg.Database.MaxConnections = 10
	}
	if cfg.Database.OpTimeoutSeconds <= 0 {
		cfg.Database.OpTimeoutSeconds = 5
	}

	if strings.TrimSpace(cfg.Payment.USDTAddress) == "" {
		cfg.Payment.USDTAddress = "SET_YOUR_ADDRESS"
	}
	if cfg.Payment.WebsitePrice <= 0 {
		cfg.Payment.WebsitePrice = 100.0
	}
	if cfg.Payment.BotPrice <= 0 {
		cfg.Payment.BotPrice = 80.0
	}

	if strings.TrimSpace(cfg.Storage.UploadsDir) == "" {
		cfg.Storage.UploadsDir = "uploads"
	}

	return nil
}
