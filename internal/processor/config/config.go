/**
 * @description
 * This package handles the configuration management for the payment-processor.
 * It uses the Viper library to read configuration from environment variables,
 * with an optional .env file for local development.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the payment-processor.
// These values are loaded from environment variables.
type Config struct {
	ServerPort        string  `mapstructure:"SERVER_PORT"`
	InternalSecretKey string  `mapstructure:"INTERNAL_SECRET_KEY"`
	JWTAlgorithm      string  `mapstructure:"JWT_ALGORITHM"`
	ExpectedIssuer    string  `mapstructure:"EXPECTED_ISSUER"`
	ExpectedAudience  string  `mapstructure:"EXPECTED_AUDIENCE"`
	ExpectedScope     string  `mapstructure:"EXPECTED_SCOPE"`
	ApprovalRate      float64 `mapstructure:"APPROVAL_RATE"`
}

// LoadConfig reads configuration from environment variables from the given path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8081")
	viper.SetDefault("JWT_ALGORITHM", "HS256")
	viper.SetDefault("EXPECTED_ISSUER", "api-service")
	viper.SetDefault("EXPECTED_AUDIENCE", "payment-processor")
	viper.SetDefault("EXPECTED_SCOPE", "payments:write")
	viper.SetDefault("APPROVAL_RATE", 0.8)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("INTERNAL_SECRET_KEY")
	_ = viper.BindEnv("JWT_ALGORITHM")
	_ = viper.BindEnv("EXPECTED_ISSUER")
	_ = viper.BindEnv("EXPECTED_AUDIENCE")
	_ = viper.BindEnv("EXPECTED_SCOPE")
	_ = viper.BindEnv("APPROVAL_RATE")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.InternalSecretKey = strings.TrimSpace(config.InternalSecretKey)

	return
}
