package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_WarningThreshold(t *testing.T) {
	for _, v := range []float64{-0.1, 1.5} {
		cfg := validConfig()
		cfg.Budget.WarningThreshold = v
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for warning_threshold=%g", v)
		}
	}

	cfg := validConfig()
	cfg.Budget.WarningThreshold = 1
	if err := cfg.Validate(); err != nil {
		t.Errorf("warning_threshold=1 must be valid: %v", err)
	}
}

func TestValidate_InvalidEstimator(t *testing.T) {
	cfg := validConfig()
	cfg.Budget.Estimator = "magic"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid estimator")
	}
	expected := `budget.estimator must be "tiktoken" or "naive", got "magic"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_NegativeMaxTokens(t *testing.T) {
	cfg := validConfig()
	cfg.Budget.MaxTokens = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative max_tokens")
	}
}

func TestValidate_StoreDrivers(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr bool
	}{
		{"memory", StoreConfig{Driver: DriverMemory}, false},
		{"sheets without id", StoreConfig{Driver: DriverSheets}, true},
		{"sheets", StoreConfig{Driver: DriverSheets, Sheets: SheetsConfig{SpreadsheetID: "abc"}}, false},
		{"redis without addrs", StoreConfig{Driver: DriverRedis}, true},
		{"redis", StoreConfig{Driver: DriverRedis, Redis: RedisConfig{Addrs: []string{"localhost:6379"}}}, false},
		{"unknown", StoreConfig{Driver: "postgres"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Store = tt.store
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CategorizerNeedsModel(t *testing.T) {
	cfg := validConfig()
	cfg.Categorizer = CategorizerConfig{Provider: "openai"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for categorizer without model")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Budget.MaxTokens != 50000 {
		t.Errorf("expected MaxTokens=50000, got %d", cfg.Budget.MaxTokens)
	}
	if cfg.Budget.WarningThreshold != 0.8 {
		t.Errorf("expected WarningThreshold=0.8, got %g", cfg.Budget.WarningThreshold)
	}
	if cfg.Budget.Estimator != EstimatorTiktoken {
		t.Errorf("expected Estimator=tiktoken, got %q", cfg.Budget.Estimator)
	}
	if cfg.Extraction.ContextChars != 200 {
		t.Errorf("expected ContextChars=200, got %d", cfg.Extraction.ContextChars)
	}
	if cfg.Extraction.SentenceSearchSpan != 50 {
		t.Errorf("expected SentenceSearchSpan=50, got %d", cfg.Extraction.SentenceSearchSpan)
	}
	if cfg.Extraction.Category != "Extracted" {
		t.Errorf("expected Category=Extracted, got %q", cfg.Extraction.Category)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("expected Driver=memory, got %q", cfg.Store.Driver)
	}
	if cfg.Store.Sheets.SheetName != "Sheet1" {
		t.Errorf("expected SheetName=Sheet1, got %q", cfg.Store.Sheets.SheetName)
	}
	if cfg.Notify.TimeoutSec != 10 {
		t.Errorf("expected Notify.TimeoutSec=10, got %d", cfg.Notify.TimeoutSec)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.DocumentRoot != "." {
		t.Errorf("expected DocumentRoot=., got %q", cfg.HTTP.DocumentRoot)
	}
	if len(cfg.HTTP.APIKeys) != 0 {
		t.Errorf("expected no api keys, got %v", cfg.HTTP.APIKeys)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		Budget:     BudgetConfig{MaxTokens: 1000, WarningThreshold: 0.5, Estimator: EstimatorNaive},
		Extraction: ExtractionConfig{ContextChars: 80, Category: "Notes"},
		HTTP:       HTTPConfig{Port: 9090, ReadTimeoutSec: 5},
	}
	cfg.ApplyDefaults()

	if cfg.Budget.MaxTokens != 1000 {
		t.Errorf("expected MaxTokens=1000, got %d", cfg.Budget.MaxTokens)
	}
	if cfg.Budget.WarningThreshold != 0.5 {
		t.Errorf("expected WarningThreshold=0.5, got %g", cfg.Budget.WarningThreshold)
	}
	if cfg.Budget.Estimator != EstimatorNaive {
		t.Errorf("expected Estimator=naive, got %q", cfg.Budget.Estimator)
	}
	if cfg.Extraction.ContextChars != 80 {
		t.Errorf("expected ContextChars=80, got %d", cfg.Extraction.ContextChars)
	}
	if cfg.Extraction.Category != "Notes" {
		t.Errorf("expected Category=Notes, got %q", cfg.Extraction.Category)
	}
	if cfg.HTTP.Port != 9090 || cfg.HTTP.ReadTimeoutSec != 5 {
		t.Errorf("unexpected http config: %+v", cfg.HTTP)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("READDIGEST_TEST_WEBHOOK", "https://discord.com/api/webhooks/1/x")

	data := []byte(`
budget:
  max_tokens: ${READDIGEST_TEST_BUDGET:-1234}
notify:
  results_webhook: ${READDIGEST_TEST_WEBHOOK}
store:
  driver: redis
  redis:
    addrs: ["${READDIGEST_TEST_REDIS:-localhost:6379}"]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Budget.MaxTokens != 1234 {
		t.Errorf("expected MaxTokens=1234, got %d", cfg.Budget.MaxTokens)
	}
	if cfg.Notify.ResultsWebhook != "https://discord.com/api/webhooks/1/x" {
		t.Errorf("unexpected webhook %q", cfg.Notify.ResultsWebhook)
	}
	if len(cfg.Store.Redis.Addrs) != 1 || cfg.Store.Redis.Addrs[0] != "localhost:6379" {
		t.Errorf("unexpected addrs %v", cfg.Store.Redis.Addrs)
	}
}

func TestParse_HTTPAuth(t *testing.T) {
	t.Setenv("READDIGEST_TEST_API_KEY", "s3cret")

	cfg, err := Parse([]byte(`
http:
  api_keys: ["${READDIGEST_TEST_API_KEY}", "${READDIGEST_TEST_UNSET:-}"]
  document_root: /srv/books
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cfg.HTTP.APIKeys) != 2 || cfg.HTTP.APIKeys[0] != "s3cret" || cfg.HTTP.APIKeys[1] != "" {
		t.Errorf("unexpected api keys %q", cfg.HTTP.APIKeys)
	}
	if cfg.HTTP.DocumentRoot != "/srv/books" {
		t.Errorf("unexpected document root %q", cfg.HTTP.DocumentRoot)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("store: { driver: sheets }")); err == nil ||
		!strings.Contains(err.Error(), "spreadsheet_id") {
		t.Fatalf("expected spreadsheet_id error, got %v", err)
	}
	if _, err := Parse([]byte("budget: [")); err == nil {
		t.Fatal("expected yaml error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte("extraction: { context_chars: 120 }\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Extraction.ContextChars != 120 {
		t.Errorf("expected ContextChars=120, got %d", cfg.Extraction.ContextChars)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
