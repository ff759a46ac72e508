package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Upstream catalog/booking API.
	APIBaseURL          string `mapstructure:"API_BASE_URL"`
	UpstreamTimeoutSecs int    `mapstructure:"UPSTREAM_TIMEOUT_SECS"`
	UpstreamMaxAttempts int    `mapstructure:"UPSTREAM_MAX_ATTEMPTS"`

	// Slug cache.
	SlugCacheTTLMin int `mapstructure:"SLUG_CACHE_TTL_MIN"`

	// Flow sessions.
	FlowSessionTTLHours int    `mapstructure:"FLOW_SESSION_TTL_HOURS"`
	JWTSecret           string `mapstructure:"JWT_SECRET"`
	ReminderDelayMin    int    `mapstructure:"REMINDER_DELAY_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisFlowDB   int    `mapstructure:"REDIS_FLOW_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// MongoDB (booking records).
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Third-party keys.
	GoogleMapsAPIKey string `mapstructure:"GOOGLE_MAPS_API_KEY"`
	StripeKey        string `mapstructure:"STRIPE_KEY"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()
	// Hosting platforms inject the listen port as PORT.
	viper.BindEnv("APP_PORT", "APP_PORT", "PORT")

	// Set default values.
	viper.SetDefault("APP_PORT", "1985")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("API_BASE_URL", "https://api.doorstephub.com")
	viper.SetDefault("UPSTREAM_TIMEOUT_SECS", 30)
	viper.SetDefault("UPSTREAM_MAX_ATTEMPTS", 3)
	viper.SetDefault("SLUG_CACHE_TTL_MIN", 5)
	viper.SetDefault("FLOW_SESSION_TTL_HOURS", 24)
	viper.SetDefault("REMINDER_DELAY_MIN", 30)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_FLOW_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("GOOGLE_MAPS_API_KEY", "")
	viper.SetDefault("STRIPE_KEY", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
