package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

const (
	SinkSheets   = "sheets"
	SinkCSV      = "csv"
	SinkXLSX     = "xlsx"
	SinkPostgres = "postgres"
)

type Config struct {
	Site     SiteConfig
	Sheets   SheetsConfig
	Stock    StockConfig
	Crawl    CrawlConfig
	Browser  BrowserConfig
	Output   OutputConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type SiteConfig struct {
	Base     string `validate:"required,url"`
	LoginURL string `validate:"required,url"`
	UserID   string
	UserPW   string
}

type SheetsConfig struct {
	ID              string
	Tab             string `validate:"required"`
	CredentialsJSON string
	CredentialsFile string
}

type StockConfig struct {
	Enabled           bool
	Mode              string `validate:"oneof=http dialog"`
	Concurrency       int    `validate:"gte=1,lte=64"`
	TimeoutMS         int    `validate:"gte=1"`
	TreatSilentAsZero bool
}

// Timeout is the per-request stock probe budget.
func (c StockConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// CrawlConfig paces catalog pages. A PageDelayMax above PageDelay adds random
// jitter up to it; zero keeps the delay fixed.
type CrawlConfig struct {
	MaxPages     int `validate:"gte=0"`
	PageDelay    time.Duration
	PageDelayMax time.Duration
}

type BrowserConfig struct {
	Headless bool
	Timeout  time.Duration `validate:"gt=0"`
}

type OutputConfig struct {
	Sinks    []string `validate:"required,dive,oneof=sheets csv xlsx postgres"`
	CSVPath  string
	XLSXPath string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// RedisConfig selects the run store. An empty Addr keeps runs in RunsFile,
// or in memory when that is empty too.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	RunsFile string
}

type ServerConfig struct {
	Port int `validate:"gte=1,lte=65535"`
}

type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json text"`
}

// Load reads the given .env files (".env" when none are given) and then the
// process environment. Variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	siteBase := strings.TrimRight(getEnvOrDefault("SITE_BASE", "https://3bong.kr"), "/")

	cfg := &Config{
		Site: SiteConfig{
			Base:     siteBase,
			LoginURL: getEnvOrDefault("LOGIN_URL", siteBase+"/member/login.php"),
			UserID:   os.Getenv("USER_ID"),
			UserPW:   os.Getenv("USER_PW"),
		},
		Sheets: SheetsConfig{
			ID:              os.Getenv("SHEET_ID"),
			Tab:             getEnvOrDefault("SHEET_TAB", "크롤링결과"),
			CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
			CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		},
		Stock: StockConfig{
			Enabled:           getBoolOrDefault("ENABLE_STOCK", true),
			Mode:              strings.ToLower(getEnvOrDefault("STOCK_MODE", "http")),
			Concurrency:       getIntOrDefault("STOCK_CONCURRENCY", 8),
			TimeoutMS:         getIntOrDefault("STOCK_TIMEOUT_MS", 8000),
			TreatSilentAsZero: getBoolOrDefault("TREAT_SILENT_AS_ZERO", false),
		},
		Crawl: CrawlConfig{
			MaxPages:     getIntOrDefault("MAX_PAGES", 0),
			PageDelay:    getDurationOrDefault("PAGE_DELAY", 20*time.Millisecond),
			PageDelayMax: getDurationOrDefault("PAGE_DELAY_MAX", 0),
		},
		Browser: BrowserConfig{
			Headless: getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:  getDurationOrDefault("BROWSER_TIMEOUT", 5*time.Second),
		},
		Output: OutputConfig{
			Sinks:    getStringSliceOrDefault("SINKS", []string{SinkSheets, SinkCSV}),
			CSVPath:  getEnvOrDefault("CSV_PATH", "3bong_products.csv"),
			XLSXPath: getEnvOrDefault("XLSX_PATH", "3bong_products.xlsx"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnvOrDefault("DB_NAME", "snack_catalog"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntOrDefault("REDIS_DB", 0),
			RunsFile: os.Getenv("RUNS_FILE"),
		},
		Server: ServerConfig{
			Port: getIntOrDefault("SERVER_PORT", 8085),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Site.UserID == "" || c.Site.UserPW == "" {
		return fmt.Errorf("%w: USER_ID and USER_PW are required", ErrMissingCredentials)
	}

	if c.HasSink(SinkSheets) {
		if c.Sheets.ID == "" {
			return fmt.Errorf("%w: SHEET_ID is required for the sheets sink", ErrMissingCredentials)
		}
		if c.Sheets.CredentialsJSON == "" && c.Sheets.CredentialsFile == "" {
			return fmt.Errorf("%w: GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE is required for the sheets sink", ErrMissingCredentials)
		}
	}

	if c.Crawl.PageDelayMax > 0 && c.Crawl.PageDelayMax < c.Crawl.PageDelay {
		return fmt.Errorf("%w: PAGE_DELAY_MAX must not be below PAGE_DELAY", ErrInvalidConfig)
	}

	if c.HasSink(SinkCSV) && c.Output.CSVPath == "" {
		return fmt.Errorf("%w: CSV_PATH is required for the csv sink", ErrInvalidConfig)
	}
	if c.HasSink(SinkXLSX) && c.Output.XLSXPath == "" {
		return fmt.Errorf("%w: XLSX_PATH is required for the xlsx sink", ErrInvalidConfig)
	}
	if c.HasSink(SinkPostgres) && (c.Database.Host == "" || c.Database.Name == "") {
		return fmt.Errorf("%w: DB_HOST and DB_NAME are required for the postgres sink", ErrInvalidConfig)
	}

	return nil
}

func (c *Config) HasSink(name string) bool {
	for _, s := range c.Output.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// Destination is where sinks write: the spreadsheet key and tab. Without a
// spreadsheet the key is "local".
func (c *Config) Destination() (string, string) {
	if c.Sheets.ID == "" {
		return "local", c.Sheets.Tab
	}
	return c.Sheets.ID, c.Sheets.Tab
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
