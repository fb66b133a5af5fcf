package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSheets = "sheets"
	DriverRedis  = "redis"
)

// Estimator modes.
const (
	EstimatorTiktoken = "tiktoken"
	EstimatorNaive    = "naive"
)

// Config holds the readdigest configuration.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Budget      BudgetConfig      `yaml:"budget"`
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Store       StoreConfig       `yaml:"store"`
	Notify      NotifyConfig      `yaml:"notify"`
	Categorizer CategorizerConfig `yaml:"categorizer"`
	HTTP        HTTPConfig        `yaml:"http"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// BudgetConfig holds cost ceiling settings.
type BudgetConfig struct {
	MaxTokens        int64   `yaml:"max_tokens"`
	WarningThreshold float64 `yaml:"warning_threshold"`
	Estimator        string  `yaml:"estimator"` // tiktoken (default) | naive
	Encoding         string  `yaml:"encoding"`
	Scope            string  `yaml:"scope"` // ledger key segment
}

// ExtractionConfig holds passage extraction settings.
type ExtractionConfig struct {
	ContextChars       int    `yaml:"context_chars"`
	SentenceSearchSpan int    `yaml:"sentence_search_span"`
	Category           string `yaml:"category"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Driver     string       `yaml:"driver"` // memory (default), sheets, redis
	Sheets     SheetsConfig `yaml:"sheets"`
	Redis      RedisConfig  `yaml:"redis"`
	TimeoutSec int          `yaml:"timeout_sec"`
}

// SheetsConfig identifies the target spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
	CredentialsFile string `yaml:"credentials_file"`
}

// RedisConfig holds Redis/Valkey connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	LedgerTTLHours   int      `yaml:"ledger_ttl_hours"`
}

// NotifyConfig holds webhook destinations.
type NotifyConfig struct {
	ResultsWebhook  string `yaml:"results_webhook"`
	TokenWebhook    string `yaml:"token_webhook"`
	ResultsThreadID string `yaml:"results_thread_id"`
	TokenThreadID   string `yaml:"token_thread_id"`
	TimeoutSec      int    `yaml:"timeout_sec"`
}

// CategorizerConfig holds the optional LLM categorizer settings.
// An empty provider keeps the configured placeholder category.
type CategorizerConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// Enabled reports whether a categorizer provider is configured.
func (c CategorizerConfig) Enabled() bool { return c.Provider != "" }

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	APIKeys         []string `yaml:"api_keys"`      // Bearer tokens; none disables auth
	DocumentRoot    string   `yaml:"document_root"` // documents served by the API must live here
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables, decodes, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Budget.MaxTokens == 0 {
		c.Budget.MaxTokens = 50000
	}
	if c.Budget.WarningThreshold == 0 {
		c.Budget.WarningThreshold = 0.8
	}
	if c.Budget.Estimator == "" {
		c.Budget.Estimator = EstimatorTiktoken
	}
	if c.Budget.Encoding == "" {
		c.Budget.Encoding = "cl100k_base"
	}
	if c.Budget.Scope == "" {
		c.Budget.Scope = "default"
	}
	if c.Extraction.ContextChars <= 0 {
		c.Extraction.ContextChars = 200
	}
	if c.Extraction.SentenceSearchSpan <= 0 {
		c.Extraction.SentenceSearchSpan = 50
	}
	if c.Extraction.Category == "" {
		c.Extraction.Category = "Extracted"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Store.TimeoutSec <= 0 {
		c.Store.TimeoutSec = 15
	}
	if c.Store.Sheets.SheetName == "" {
		c.Store.Sheets.SheetName = "Sheet1"
	}
	if c.Store.Redis.ReadinessTimeout <= 0 {
		c.Store.Redis.ReadinessTimeout = 10
	}
	if c.Store.Redis.LedgerTTLHours <= 0 {
		c.Store.Redis.LedgerTTLHours = 48
	}
	if c.Notify.TimeoutSec <= 0 {
		c.Notify.TimeoutSec = 10
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.DocumentRoot == "" {
		c.HTTP.DocumentRoot = "."
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Budget.MaxTokens < 0 {
		return fmt.Errorf("budget.max_tokens must be >= 0, got %d", c.Budget.MaxTokens)
	}
	if c.Budget.WarningThreshold <= 0 || c.Budget.WarningThreshold > 1 {
		return fmt.Errorf("budget.warning_threshold must be in (0, 1], got %g", c.Budget.WarningThreshold)
	}
	switch c.Budget.Estimator {
	case EstimatorTiktoken, EstimatorNaive:
	default:
		return fmt.Errorf("budget.estimator must be %q or %q, got %q",
			EstimatorTiktoken, EstimatorNaive, c.Budget.Estimator)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSheets:
		if c.Store.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("store.sheets.spreadsheet_id is required for the sheets driver")
		}
	case DriverRedis:
		if len(c.Store.Redis.Addrs) == 0 {
			return fmt.Errorf("store.redis.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, sheets, redis, got %q", c.Store.Driver)
	}

	if c.Categorizer.Enabled() && c.Categorizer.Model == "" {
		return fmt.Errorf("categorizer.model is required when categorizer.provider is set")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
