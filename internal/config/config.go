package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	defaultMonobankBaseURL    = "https://api.monobank.ua/api/merchant/"
	defaultPaymentDescription = "Оплата замовлення #{{.OrderID}} на сайті {{.SiteName}}"
	defaultAppPort            = "8080"
)

type Config struct {
	DBHost     string `validate:"required"`
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string `validate:"omitempty,numeric"`
	AppPort    string `validate:"required,numeric"`
	AppEnv     string

	// SiteURL is the public base of the shop; always ends with a slash.
	SiteURL  string `validate:"required,url"`
	SiteName string

	JWTSecret   string
	RedisAddr   string
	InternalKey string
	// CORSOrigins defaults to the site origin.
	CORSOrigins []string

	MonobankToken           string
	MonobankBaseURL         string `validate:"required,url"`
	MonobankDebug           bool
	MonobankVerifySignature bool
	PaymentDescription      string `validate:"required"`
}

// Load reads the environment (and an optional .env file) into a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:                  os.Getenv("DB_HOST"),
		DBUser:                  os.Getenv("DB_USER"),
		DBPassword:              os.Getenv("DB_PASSWORD"),
		DBName:                  os.Getenv("DB_NAME"),
		DBPort:                  os.Getenv("DB_PORT"),
		AppPort:                 getEnv("APP_PORT", defaultAppPort),
		AppEnv:                  os.Getenv("APP_ENV"),
		SiteURL:                 normalizeSiteURL(os.Getenv("SITE_URL")),
		SiteName:                os.Getenv("SITE_NAME"),
		JWTSecret:               os.Getenv("SECRET_KEY"),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		InternalKey:             os.Getenv("INTERNAL_SECRET_KEY"),
		MonobankToken:           strings.TrimSpace(os.Getenv("MONOBANK_TOKEN")),
		MonobankBaseURL:         getEnv("MONOBANK_BASE_URL", defaultMonobankBaseURL),
		MonobankDebug:           getBool("MONOBANK_DEBUG"),
		MonobankVerifySignature: getBool("MONOBANK_VERIFY_SIGNATURE"),
		PaymentDescription:      getEnv("PAYMENT_DESCRIPTION", defaultPaymentDescription),
	}

	cfg.CORSOrigins = getList("CORS_ORIGINS")
	if len(cfg.CORSOrigins) == 0 && cfg.SiteURL != "" {
		cfg.CORSOrigins = []string{strings.TrimSuffix(cfg.SiteURL, "/")}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func normalizeSiteURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
