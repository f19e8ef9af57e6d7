package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	dotEnvPath         = ".env"
	defaultDBPath      = "./dev.db"
	defaultPort        = "8080"
	defaultEnvironment = "development"
	defaultAPIVersion  = "2025-01"
	defaultEpsilon     = "0.01"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Environment   string
	Port          string
	DBPath        string
	LogLevel      string
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	Shopify       ShopifyConfig
	Pricing       PricingConfig
}

type ShopifyConfig struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
}

// PricingConfig holds the change-set policy.
type PricingConfig struct {
	Epsilon       float64
	ClampNegative bool
}

// Load reads .env (if present) and environment variables and returns a
// populated Config. Values already in the environment win over .env.
func Load() (Config, error) {
	// Best-effort: production injects real environment variables.
	_ = godotenv.Load(dotEnvPath)

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("ENVIRONMENT", defaultEnvironment)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("DB_PATH", defaultDBPath)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SHOPIFY_API_VERSION", defaultAPIVersion)
	v.SetDefault("PRICE_EPSILON", defaultEpsilon)
	v.SetDefault("PRICE_CLAMP_NEGATIVE", "false")

	cfg := Config{
		Environment:   strings.ToLower(strings.TrimSpace(v.GetString("ENVIRONMENT"))),
		Port:          strings.TrimSpace(v.GetString("PORT")),
		DBPath:        strings.TrimSpace(v.GetString("DB_PATH")),
		LogLevel:      strings.TrimSpace(v.GetString("LOG_LEVEL")),
		AdminEmail:    strings.TrimSpace(v.GetString("ADMIN_EMAIL")),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		SessionSecret: v.GetString("SESSION_SECRET"),
		Shopify: ShopifyConfig{
			ShopDomain:  strings.TrimSpace(v.GetString("SHOPIFY_SHOP_DOMAIN")),
			AccessToken: strings.TrimSpace(v.GetString("SHOPIFY_ACCESS_TOKEN")),
			APIVersion:  strings.TrimSpace(v.GetString("SHOPIFY_API_VERSION")),
		},
	}

	epsilon, err := strconv.ParseFloat(strings.TrimSpace(v.GetString("PRICE_EPSILON")), 64)
	if err != nil || epsilon < 0 {
		return Config{}, fmt.Errorf("PRICE_EPSILON must be a number >= 0")
	}
	clamp, err := strconv.ParseBool(strings.TrimSpace(v.GetString("PRICE_CLAMP_NEGATIVE")))
	if err != nil {
		return Config{}, fmt.Errorf("PRICE_CLAMP_NEGATIVE must be a boolean")
	}
	cfg.Pricing = PricingConfig{Epsilon: epsilon, ClampNegative: clamp}

	return cfg, nil
}

// IsDev reports whether the service runs outside production.
func (c Config) IsDev() bool {
	return c.Environment != "production"
}

// Warnings lists settings that are missing but not fatal.
func (c Config) Warnings() []string {
	var warnings []string
	if c.AdminEmail == "" {
		warnings = append(warnings, "ADMIN_EMAIL is not set")
	}
	if c.AdminPassword == "" {
		warnings = append(warnings, "ADMIN_PASSWORD is not set")
	}
	if c.SessionSecret == "" {
		warnings = append(warnings, "SESSION_SECRET is not set")
	}
	if c.Shopify.ShopDomain == "" {
		warnings = append(warnings, "SHOPIFY_SHOP_DOMAIN is not set")
	}
	if c.Shopify.AccessToken == "" {
		warnings = append(warnings, "SHOPIFY_ACCESS_TOKEN is not set")
	}
	return warnings
}
