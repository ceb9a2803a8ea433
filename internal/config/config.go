/**
 * @description
 * This package handles the configuration management for the api-service. It
 * uses the Viper library to read configuration from environment variables,
 * with an optional .env file for local development.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the api-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                string `mapstructure:"SERVER_PORT"`
	DatabaseURL               string `mapstructure:"DATABASE_URL"`
	RedisURL                  string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix      string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL               string `mapstructure:"RABBITMQ_URL"`
	ProcessorURL              string `mapstructure:"PROCESSOR_URL"`
	SessionSecretKey          string `mapstructure:"SESSION_SECRET_KEY"`
	InternalSecretKey         string `mapstructure:"INTERNAL_SECRET_KEY"`
	JWTAlgorithm              string `mapstructure:"JWT_ALGORITHM"`
	SessionExpireMinutes      int    `mapstructure:"SESSION_EXPIRE_MINUTES"`
	ServiceTokenTTLSeconds    int    `mapstructure:"SERVICE_TOKEN_TTL_SECONDS"`
	ServiceTokenIssuer        string `mapstructure:"SERVICE_TOKEN_ISSUER"`
	ServiceTokenAudience      string `mapstructure:"SERVICE_TOKEN_AUDIENCE"`
	ServiceTokenScope         string `mapstructure:"SERVICE_TOKEN_SCOPE"`
	PaymentRateLimitPerMinute int    `mapstructure:"PAYMENT_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "vaultpay:rate_limit")
	viper.SetDefault("JWT_ALGORITHM", "HS256")
	viper.SetDefault("SESSION_EXPIRE_MINUTES", 30)
	viper.SetDefault("SERVICE_TOKEN_TTL_SECONDS", 60)
	viper.SetDefault("SERVICE_TOKEN_ISSUER", "api-service")
	viper.SetDefault("SERVICE_TOKEN_AUDIENCE", "payment-processor")
	viper.SetDefault("SERVICE_TOKEN_SCOPE", "payments:write")
	viper.SetDefault("PAYMENT_RATE_LIMIT_PER_MINUTE", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PROCESSOR_URL")
	_ = viper.BindEnv("SESSION_SECRET_KEY")
	_ = viper.BindEnv("INTERNAL_SECRET_KEY")
	_ = viper.BindEnv("JWT_ALGORITHM")
	_ = viper.BindEnv("SESSION_EXPIRE_MINUTES")
	_ = viper.BindEnv("SERVICE_TOKEN_TTL_SECONDS")
	_ = viper.BindEnv("SERVICE_TOKEN_ISSUER")
	_ = viper.BindEnv("SERVICE_TOKEN_AUDIENCE")
	_ = viper.BindEnv("SERVICE_TOKEN_SCOPE")
	_ = viper.BindEnv("PAYMENT_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.SessionSecretKey = strings.TrimSpace(config.SessionSecretKey)
	config.InternalSecretKey = strings.TrimSpace(config.InternalSecretKey)

	// The session and service-token secrets protect different trust
	// boundaries and must never be the same value.
	if config.SessionSecretKey != "" && config.SessionSecretKey == config.InternalSecretKey {
		return config, fmt.Errorf("SESSION_SECRET_KEY and INTERNAL_SECRET_KEY must be distinct")
	}

	return
}
