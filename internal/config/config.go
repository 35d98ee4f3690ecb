package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Voucher   VoucherConfig   `mapstructure:"voucher"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Report    ReportConfig    `mapstructure:"report"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// BackendConfig holds the remote backend API configuration
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PricingConfig holds the per-liter fuel price table in GMD
type PricingConfig struct {
	Petrol float64 `mapstructure:"petrol"`
	Diesel float64 `mapstructure:"diesel"`
}

// VoucherConfig holds voucher validity windows per mode
type VoucherConfig struct {
	SubsidyValidity time.Duration `mapstructure:"subsidy_validity"`
	PaidValidity    time.Duration `mapstructure:"paid_validity"`
}

// InventoryConfig holds the attendant station identity and alerting
type InventoryConfig struct {
	StationID         string  `mapstructure:"station_id"`
	StationName       string  `mapstructure:"station_name"`
	LowStockThreshold float64 `mapstructure:"low_stock_threshold"`
}

// QueueConfig holds offline queue drain and retry policy
type QueueConfig struct {
	DrainInterval time.Duration `mapstructure:"drain_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
	BackoffBase   time.Duration `mapstructure:"backoff_base"`
	BackoffMax    time.Duration `mapstructure:"backoff_max"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// ReportConfig holds reconciliation report output settings
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/fuelvoucher.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("backend.base_url", "http://localhost:3000/api")
	viper.SetDefault("backend.timeout", 30*time.Second)

	// Regulated pump prices, GMD per liter
	viper.SetDefault("pricing.petrol", 65.0)
	viper.SetDefault("pricing.diesel", 68.0)

	// Subsidy coupons span an allocation cycle; paid vouchers represent
	// an already-settled charge and should be redeemed promptly
	viper.SetDefault("voucher.subsidy_validity", 30*24*time.Hour)
	viper.SetDefault("voucher.paid_validity", 24*time.Hour)

	viper.SetDefault("inventory.station_id", "station-001")
	viper.SetDefault("inventory.station_name", "Fuel Station")
	viper.SetDefault("inventory.low_stock_threshold", 1000.0)

	viper.SetDefault("queue.drain_interval", 30*time.Second)
	viper.SetDefault("queue.batch_size", 10)
	viper.SetDefault("queue.backoff_base", 30*time.Second)
	viper.SetDefault("queue.backoff_max", 30*time.Minute)
	viper.SetDefault("queue.max_retries", 12)

	viper.SetDefault("report.output_dir", "reports")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("backend.base_url", "BACKEND_BASE_URL")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("inventory.station_id", "STATION_ID")
	viper.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Pricing.Petrol <= 0 || c.Pricing.Diesel <= 0 {
		return fmt.Errorf("fuel prices must be positive")
	}
	if c.Voucher.SubsidyValidity <= 0 || c.Voucher.PaidValidity <= 0 {
		return fmt.Errorf("voucher validity windows must be positive")
	}
	if c.Queue.BatchSize <= 0 {
		return fmt.Errorf("queue batch size must be positive")
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("queue max retries must not be negative")
	}
	if c.Inventory.StationID == "" {
		return fmt.Errorf("station id is required")
	}
	return nil
}
