// internal/config/config.go
package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Engine   EngineConfig
	Forecast ForecastConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConcurrency int64
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	DecisionTTLSeconds  int
	InvalidationChannel string
}

// EngineConfig holds the defaults applied when a caller leaves an option unset.
type EngineConfig struct {
	DefaultLookbackDays int
	DefaultLeadDays     int
	Workers             int
	SeriesDays          int
	MinConfidence       float64
	UseAI               bool
	VolatilityZeroFill  bool
}

type ForecastConfig struct {
	// Provider is one of none, regression, http or gemini.
	Provider       string
	URL            string
	TimeoutSeconds int
	GeminiAPIKey   string
	GeminiModel    string
	ListenPort     string
}

type LogConfig struct {
	Level  string
	Format string
}

// Timeout returns the per-call forecast timeout.
func (f ForecastConfig) Timeout() time.Duration {
	if f.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		instance = build()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "inventory")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONCURRENCY", 10)

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_DECISION_TTL_SECONDS", 60)
	viper.SetDefault("CACHE_INVALIDATION_CHANNEL", "inventory:changes")

	viper.SetDefault("ENGINE_DEFAULT_LOOKBACK_DAYS", 7)
	viper.SetDefault("ENGINE_DEFAULT_LEAD_DAYS", 120)
	viper.SetDefault("ENGINE_WORKERS", 8)
	viper.SetDefault("ENGINE_SERIES_DAYS", 90)
	viper.SetDefault("ENGINE_MIN_CONFIDENCE", 0.5)
	viper.SetDefault("ENGINE_USE_AI", true)
	viper.SetDefault("ENGINE_VOLATILITY_ZERO_FILL", false)

	viper.SetDefault("FORECAST_PROVIDER", "regression")
	viper.SetDefault("FORECAST_URL", "http://localhost:4000")
	viper.SetDefault("FORECAST_TIMEOUT_SECONDS", 10)
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("FORECASTER_PORT", "4000")

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
}

func build() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:           viper.GetString("DB_HOST"),
			Port:           viper.GetString("DB_PORT"),
			User:           viper.GetString("DB_USER"),
			Password:       viper.GetString("DB_PASSWORD"),
			DBName:         viper.GetString("DB_NAME"),
			SSLMode:        viper.GetString("DB_SSLMODE"),
			MaxConcurrency: viper.GetInt64("DB_MAX_CONCURRENCY"),
		},
		Cache: CacheConfig{
			Enabled:             viper.GetBool("CACHE_ENABLED"),
			RedisURL:            viper.GetString("REDIS_URL"),
			RedisHost:           viper.GetString("REDIS_HOST"),
			RedisPort:           viper.GetString("REDIS_PORT"),
			RedisPassword:       viper.GetString("REDIS_PASSWORD"),
			RedisDB:             viper.GetInt("REDIS_DB"),
			DecisionTTLSeconds:  viper.GetInt("CACHE_DECISION_TTL_SECONDS"),
			InvalidationChannel: viper.GetString("CACHE_INVALIDATION_CHANNEL"),
		},
		Engine: EngineConfig{
			DefaultLookbackDays: viper.GetInt("ENGINE_DEFAULT_LOOKBACK_DAYS"),
			DefaultLeadDays:     viper.GetInt("ENGINE_DEFAULT_LEAD_DAYS"),
			Workers:             viper.GetInt("ENGINE_WORKERS"),
			SeriesDays:          viper.GetInt("ENGINE_SERIES_DAYS"),
			MinConfidence:       viper.GetFloat64("ENGINE_MIN_CONFIDENCE"),
			UseAI:               viper.GetBool("ENGINE_USE_AI"),
			VolatilityZeroFill:  viper.GetBool("ENGINE_VOLATILITY_ZERO_FILL"),
		},
		Forecast: ForecastConfig{
			Provider:       viper.GetString("FORECAST_PROVIDER"),
			URL:            viper.GetString("FORECAST_URL"),
			TimeoutSeconds: viper.GetInt("FORECAST_TIMEOUT_SECONDS"),
			GeminiAPIKey:   viper.GetString("GEMINI_API_KEY"),
			GeminiModel:    viper.GetString("GEMINI_MODEL"),
			ListenPort:     viper.GetString("FORECASTER_PORT"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}
}
