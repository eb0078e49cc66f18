package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Protection ProtectionConfig
	Insight    InsightConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret     string
	SignerAddress string
	SignerSecret  string
}

type ProtectionConfig struct {
	// BaseURL of the external confidential-computing service.
	BaseURL string
	// AppAddress identifies the compute application authorized to run
	// against protected documents.
	AppAddress string
	// WorkerpoolAddress selects the pool that executes process tasks.
	WorkerpoolAddress string
	// GatewayURL is the content gateway used to build fetchable URLs
	// from a document's content locator.
	GatewayURL string
}

type InsightConfig struct {
	Provider     string
	OpenAIKey    string
	AnthropicKey string
	Model        string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			SignerAddress: getEnv("SIGNER_ADDRESS", ""),
			SignerSecret:  getEnv("SIGNER_SECRET", ""),
		},
		Protection: ProtectionConfig{
			BaseURL:           getEnv("PROTECTION_BASE_URL", "https://bellecour.iex.ec"),
			AppAddress:        getEnv("PROTECTION_APP_ADDRESS", ""),
			WorkerpoolAddress: getEnv("PROTECTION_WORKERPOOL_ADDRESS", ""),
			GatewayURL:        getEnv("CONTENT_GATEWAY_URL", "https://ipfs-gateway.v8-bellecour.iex.ec"),
		},
		Insight: InsightConfig{
			Provider:     getEnv("INSIGHT_PROVIDER", "openai"),
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:        getEnv("INSIGHT_MODEL", "gpt-4o-mini"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Protection.AppAddress == "" {
		missing = append(missing, "PROTECTION_APP_ADDRESS")
	}
	if c.Auth.SignerAddress == "" {
		missing = append(missing, "SIGNER_ADDRESS")
	}
	if c.Auth.SignerSecret == "" {
		missing = append(missing, "SIGNER_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
