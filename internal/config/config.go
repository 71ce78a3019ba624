package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server       ServerConfig
	Auth         AuthConfig
	MarketData   MarketDataConfig
	Fundamentals FundamentalsConfig
	AI           AIConfig
	Backtest     BacktestConfig
	Database     DatabaseConfig
	Kafka        KafkaConfig
	Logging      LoggingConfig
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// AuthConfig holds authentication specific configuration
type AuthConfig struct {
	JWTSecret string
}

// MarketDataConfig holds market data provider configuration
type MarketDataConfig struct {
	ChartURL string
	Timeout  time.Duration
}

// FundamentalsConfig holds the financial report source configuration
type FundamentalsConfig struct {
	ReportURL string
	Timeout   time.Duration
}

// AIConfig holds the narrative provider selection and per-provider settings.
// Provider is one of "openai", "deepseek", "claude", "gemini" or empty
// (template fallback only).
type AIConfig struct {
	Provider string
	Timeout  time.Duration
	OpenAI   OpenAIConfig
	DeepSeek DeepSeekConfig
	Claude   ClaudeConfig
	Gemini   GeminiConfig
}

// OpenAIConfig holds OpenAI API settings
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// DeepSeekConfig holds DeepSeek API settings (OpenAI-compatible endpoint)
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// ClaudeConfig holds Anthropic API settings
type ClaudeConfig struct {
	APIKey string
	Model  string
}

// GeminiConfig holds Google Gemini API settings
type GeminiConfig struct {
	APIKey string
	Model  string
}

// BacktestConfig holds the simulation constants. Commission and slippage are
// decimal fractions applied per fill; TradingDaysPerYear annualizes the
// Sharpe ratio.
type BacktestConfig struct {
	CommissionRate     float64
	SlippageRate       float64
	TradingDaysPerYear int
	InitialCapital     float64
}

// DatabaseConfig holds the optional backtest-history database configuration
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig holds the optional usage-event producer configuration
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	ClientID string
	Topics   map[string]string
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads the configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Read from environment variables
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.idleTimeout", "120s")

	// Market data defaults
	v.SetDefault("marketdata.charturl", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("marketdata.timeout", "10s")

	// Fundamentals defaults
	v.SetDefault("fundamentals.reporturl", "https://histock.tw/stock")
	v.SetDefault("fundamentals.timeout", "15s")

	// AI defaults
	v.SetDefault("ai.provider", "")
	v.SetDefault("ai.timeout", "20s")
	v.SetDefault("ai.openai.baseurl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.deepseek.baseurl", "https://api.deepseek.com/v1")
	v.SetDefault("ai.deepseek.model", "deepseek-chat")
	v.SetDefault("ai.claude.model", "claude-sonnet-4-20250514")
	v.SetDefault("ai.gemini.model", "gemini-1.5-flash")

	// Backtest defaults
	v.SetDefault("backtest.commissionrate", 0.001)
	v.SetDefault("backtest.slippagerate", 0.0005)
	v.SetDefault("backtest.tradingdaysperyear", 252)
	v.SetDefault("backtest.initialcapital", 100000.0)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxopenconns", 10)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", "5m")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.clientid", "equant-api")
	v.SetDefault("kafka.topics.analysis", "equant.analysis.completed")
	v.SetDefault("kafka.topics.backtest", "equant.backtest.completed")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
