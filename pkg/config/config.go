package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Stock sources
const (
	StockSourceDatabase = "database"
	StockSourceWorkbook = "workbook"
)

// EnvPrefix is the prefix of every environment variable the tool reads
const EnvPrefix = "STOCKALLOC"

// Config holds all configuration for the application
type Config struct {
	Environment string         `mapstructure:"environment" validate:"oneof=development staging production"`
	LogLevel    string         `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Data        DataConfig     `mapstructure:"data"`
	Stock       StockConfig    `mapstructure:"stock"`
	Database    DatabaseConfig `mapstructure:"database"`
	Report      ReportConfig   `mapstructure:"report"`
}

// DataConfig names the daily input reports. File names are relative to Dir.
type DataConfig struct {
	Dir               string   `mapstructure:"dir" validate:"required"`
	ShipmentsFile     string   `mapstructure:"shipments_file" validate:"required"`
	SaleInventoryFile string   `mapstructure:"sale_inventory_file" validate:"required"`
	ViabilityFile     string   `mapstructure:"viability_file" validate:"required"`
	OrdersFile        string   `mapstructure:"orders_file" validate:"required"`
	B2CPattern        string   `mapstructure:"b2c_pattern" validate:"required"`
	B2BPattern        string   `mapstructure:"b2b_pattern" validate:"required"`
	ExcludedFCs       []string `mapstructure:"excluded_fcs"`
}

// Path returns name resolved against the data directory
func (c *DataConfig) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// StockConfig selects where regional stock is read from
type StockConfig struct {
	Source   string `mapstructure:"source" validate:"oneof=database workbook"`
	Workbook string `mapstructure:"workbook" validate:"required"`
}

// DatabaseConfig holds stock database connection configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=mysql postgres sqlite"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout" validate:"min=0"`
}

// ReportConfig controls the run output
type ReportConfig struct {
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format" validate:"oneof=text json"`
	Parallel   bool   `mapstructure:"parallel"`
	Verbose    bool   `mapstructure:"verbose"`
}

// OutputPath returns the workbook path, defaulting to Output.xlsx one level
// above the data directory
func (c *Config) OutputPath() string {
	if c.Report.OutputPath != "" {
		return c.Report.OutputPath
	}
	return filepath.Join(filepath.Dir(filepath.Clean(c.Data.Dir)), "Output.xlsx")
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Stock.Source == StockSourceDatabase && c.Database.DSN == "" {
		return errors.New("invalid configuration: " + EnvPrefix + "_DATABASE_DSN is required when stock is read from the database")
	}
	return nil
}

// Load loads configuration from defaults, an optional config file and
// environment variables. configFile may be empty, in which case
// ./config/stockalloc.yaml is used when present.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("stockalloc")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("log_level", "info")

	v.SetDefault("data.dir", "Data")
	v.SetDefault("data.shipments_file", "FBA Shipments.csv")
	v.SetDefault("data.sale_inventory_file", "FBA Sale & Inventory Report.xlsx")
	v.SetDefault("data.viability_file", "Viability Sheet.xlsx")
	v.SetDefault("data.orders_file", "All Orders.txt")
	v.SetDefault("data.b2c_pattern", "GST_MTR_B2C*.csv")
	v.SetDefault("data.b2b_pattern", "GST_MTR_B2B*.csv")
	v.SetDefault("data.excluded_fcs", []string{"XHJW"})

	v.SetDefault("stock.source", StockSourceDatabase)
	v.SetDefault("stock.workbook", "SQL Data.xlsx")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.query_timeout", 30*time.Second)

	v.SetDefault("report.output_path", "")
	v.SetDefault("report.format", "text")
	v.SetDefault("report.parallel", false)
	v.SetDefault("report.verbose", false)
}
