// =============================================================================
// Ventas Histórico - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration: where
// the point-of-sale tables live, where the historical ledger is written, how
// the ledger is presented and how the HTTP server is exposed.
//
// LOADING ORDER:
//   1. Built-in defaults (the ZQRED file names, cp850, ":8000")
//   2. config.yaml, when present
//   3. .env file, when present (loaded into the process environment)
//   4. Environment variables (VENTAS_*, PORT, CORS_ALLOWED_ORIGINS)
//
// A missing configuration file is not an error; the defaults describe the
// standard installation where every table sits in the working directory.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/ventas-historico/internal/dbf"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

// Presentation strategies.
const (
	StrategyGrouped = "grouped"
	StrategyFlat    = "flat"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// DataDir is the directory every relative table path is resolved against.
	// Default: "."
	DataDir string `yaml:"data_dir"`

	// Tables locates the read-only point-of-sale tables.
	Tables TablesConfig `yaml:"tables"`

	// Store describes the historical ledger.
	Store StoreConfig `yaml:"store"`

	// Presentation controls how /historico shapes the ledger.
	Presentation PresentationConfig `yaml:"presentation"`

	// Server holds the HTTP settings.
	Server ServerConfig `yaml:"server"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the log formatter: "json" or "text".
	// Default: "json"
	LogFormat string `yaml:"log_format"`
}

// TablesConfig names the point-of-sale tables.
type TablesConfig struct {
	// Headers is the ticket header table (NUMCHK, CUSNAM, TYPPAG, FECCHK).
	// Default: "ZETH50T.DBF"
	Headers string `yaml:"headers"`

	// Details is the ticket line table (NUMCHK, PRONUM, QTYPRO, PRIPRO).
	// Default: "ZETH51T.DBF"
	Details string `yaml:"details"`

	// Products is the product master (PRONUM, DESCRI, ULCOSREP).
	// Default: "ZETH70.DBF"
	Products string `yaml:"products"`

	// ProductsExt is the optional product classification table
	// (PRONUM, EERR, CATEGORIA, SUB_CAT).
	// Default: "ZETH70_EXT.DBF"
	ProductsExt string `yaml:"products_ext"`

	// Encoding is the code page of the point-of-sale tables.
	// Default: "cp850"
	Encoding string `yaml:"encoding"`
}

// StoreConfig describes the historical ledger file.
type StoreConfig struct {
	// Path is the ledger file.
	// Default: "VENTAS_HISTORICO.DBF"
	Path string `yaml:"path"`

	// Encoding is the code page used to write character fields.
	// Default: "cp850"
	Encoding string `yaml:"encoding"`

	// Schema is the field layout used when the ledger is created, written as
	// "NAME TYPE(LEN[,DEC]);...".
	Schema string `yaml:"schema"`

	// BackupDir receives a copy of the ledger before every append.
	// Empty disables backups.
	BackupDir string `yaml:"backup_dir"`

	// BackupRetention is the age in hours after which backups are removed.
	// 0 keeps every backup.
	BackupRetention int `yaml:"backup_retention"`

	// BackupNameFormat names backup copies. Placeholders: {original},
	// {timestamp}, {date}, {time}, {uuid}, {short}. It must contain {uuid},
	// {short} or {timestamp}.
	// Default: "{original}_{timestamp}_{short}"
	BackupNameFormat string `yaml:"backup_name_format"`

	// BackupTimestampSubdirs files backups under YYYY/MM/DD.
	BackupTimestampSubdirs bool `yaml:"backup_timestamp_subdirs"`

	// StrictValidation rejects a batch when any text would be cut to its
	// column width or a key part is empty, instead of logging a warning.
	StrictValidation bool `yaml:"strict_validation"`
}

// PresentationConfig selects the display strategy.
type PresentationConfig struct {
	// Strategy is "grouped" (default) or "flat".
	Strategy string `yaml:"strategy"`

	// CreditPaymentTypes lists the TIPO values shown as CREDITO by the flat
	// strategy. Comparison ignores case and surrounding blanks.
	CreditPaymentTypes []string `yaml:"credit_payment_types"`
}

// ServerConfig holds the HTTP settings.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":8000"
	Addr string `yaml:"addr"`

	// CORSAllowedOrigins restricts cross-origin callers. Empty allows all.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// ReconcileRatePerMinute caps /reporte calls. 0 disables the limit.
	ReconcileRatePerMinute int `yaml:"reconcile_rate_per_minute"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load loads the configuration.
//
// PARAMETERS:
//   - configPath: The path to the YAML file. A missing file yields defaults.
//
// RETURNS:
//   - A pointer to the Config struct, with defaults and environment
//     overrides applied.
//   - An error if the file cannot be parsed or the result is invalid.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// Defaults only.
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// A missing .env is the normal case.
	_ = godotenv.Load()

	applyDefaults(&cfg)
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	if cfg.Tables.Headers == "" {
		cfg.Tables.Headers = "ZETH50T.DBF"
	}
	if cfg.Tables.Details == "" {
		cfg.Tables.Details = "ZETH51T.DBF"
	}
	if cfg.Tables.Products == "" {
		cfg.Tables.Products = "ZETH70.DBF"
	}
	if cfg.Tables.ProductsExt == "" {
		cfg.Tables.ProductsExt = "ZETH70_EXT.DBF"
	}
	if cfg.Tables.Encoding == "" {
		cfg.Tables.Encoding = "cp850"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "VENTAS_HISTORICO.DBF"
	}
	if cfg.Store.Encoding == "" {
		cfg.Store.Encoding = "cp850"
	}
	if cfg.Store.Schema == "" {
		cfg.Store.Schema = types.DefaultLedgerSchema
	}
	if cfg.Store.BackupNameFormat == "" {
		cfg.Store.BackupNameFormat = "{original}_{timestamp}_{short}"
	}
	if cfg.Presentation.Strategy == "" {
		cfg.Presentation.Strategy = StrategyGrouped
	}
	if cfg.Presentation.CreditPaymentTypes == nil {
		cfg.Presentation.CreditPaymentTypes = []string{"CR", "CRE", "CRED", "CREDITO"}
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
}

// applyEnv overrides settings from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("VENTAS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("VENTAS_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("VENTAS_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("VENTAS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("VENTAS_PRESENTATION"); v != "" {
		cfg.Presentation.Strategy = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSAllowedOrigins = origins
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if _, err := dbf.LookupCodePage(c.Tables.Encoding); err != nil {
		return fmt.Errorf("tables.encoding: %w", err)
	}
	if _, err := dbf.LookupCodePage(c.Store.Encoding); err != nil {
		return fmt.Errorf("store.encoding: %w", err)
	}

	fields, err := dbf.ParseSchema(c.Store.Schema)
	if err != nil {
		return fmt.Errorf("store.schema: %w", err)
	}
	for _, col := range types.LedgerColumns {
		if _, ok := dbf.FieldByName(fields, col); !ok {
			return fmt.Errorf("store.schema: missing column %s", col)
		}
	}

	switch c.Presentation.Strategy {
	case StrategyGrouped, StrategyFlat:
	default:
		return fmt.Errorf("presentation.strategy: unknown strategy %q", c.Presentation.Strategy)
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("log_format: unknown format %q", c.LogFormat)
	}

	if c.Store.BackupRetention < 0 {
		return fmt.Errorf("store.backup_retention: must not be negative")
	}
	if err := validateBackupNameFormat(c.Store.BackupNameFormat); err != nil {
		return fmt.Errorf("store.backup_name_format: %w", err)
	}
	if c.Server.ReconcileRatePerMinute < 0 {
		return fmt.Errorf("server.reconcile_rate_per_minute: must not be negative")
	}

	return nil
}

// validateBackupNameFormat accepts formats that yield a distinct plain file
// name for every backup.
func validateBackupNameFormat(format string) error {
	if strings.ContainsAny(format, `/\`) {
		return fmt.Errorf("must be a file name, not a path")
	}
	for _, p := range []string{"{uuid}", "{short}", "{timestamp}"} {
		if strings.Contains(format, p) {
			return nil
		}
	}
	return fmt.Errorf("must contain {uuid}, {short} or {timestamp}")
}

// =============================================================================
// PATH RESOLUTION
// =============================================================================

// Resolve joins a configured file name with DataDir unless it is absolute.
func (c *Config) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// HeadersPath returns the resolved ticket header table path.
func (c *Config) HeadersPath() string { return c.Resolve(c.Tables.Headers) }

// DetailsPath returns the resolved ticket line table path.
func (c *Config) DetailsPath() string { return c.Resolve(c.Tables.Details) }

// ProductsPath returns the resolved product table path.
func (c *Config) ProductsPath() string { return c.Resolve(c.Tables.Products) }

// ProductsExtPath returns the resolved product extension table path.
func (c *Config) ProductsExtPath() string { return c.Resolve(c.Tables.ProductsExt) }

// StorePath returns the resolved ledger path.
func (c *Config) StorePath() string { return c.Resolve(c.Store.Path) }

// BackupDir returns the resolved backup directory, "" when disabled.
func (c *Config) BackupDir() string { return c.Resolve(c.Store.BackupDir) }
