// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. The env tag names the variable
// each field is read from and is used in validation messages.
type Config struct {
	Port     string `env:"PORT" validate:"required,numeric"`
	Env      string `env:"ENV" validate:"oneof=development production"`
	LogLevel string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	CTATrainKey      string `env:"CTA_TRAIN_KEY"`
	CTABusKey        string `env:"CTA_BUS_KEY"`
	GoogleBrowserKey string `env:"GOOGLE_MAPS_API_KEY_BROWSER"`
	GoogleServerKey  string `env:"GOOGLE_MAPS_API_KEY_SERVER"`

	BusRoutes   []string `env:"CTA_BUS_ROUTES" validate:"dive,required"`
	TrainRoutes []string `env:"CTA_TRAIN_ROUTES" validate:"dive,required"`

	CacheTTL        time.Duration `env:"CACHE_TTL_SECONDS" validate:"gte=0"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT_SECONDS" validate:"gt=0"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL_SECONDS" validate:"gt=0"`

	BusRadiusKm        float64 `env:"NEARBY_BUS_RADIUS_KM" validate:"gt=0"`
	TrainRadiusKm      float64 `env:"NEARBY_TRAIN_RADIUS_KM" validate:"gt=0"`
	PlacesRadiusMeters int     `env:"PLACES_RADIUS_METERS" validate:"gt=0,lte=50000"`

	StopsFile      string `env:"CTA_STOPS_FILE"`
	GTFSRTBusURL   string `env:"GTFS_RT_BUS_URL" validate:"omitempty,url"`
	GTFSRTTrainURL string `env:"GTFS_RT_TRAIN_URL" validate:"omitempty,url"`
	StaticDir      string `env:"STATIC_DIR"`

	CORSOrigins []string `env:"CORS_ORIGINS" validate:"min=1"`

	TrainBaseURL  string `env:"CTA_TRAIN_BASE_URL" validate:"omitempty,url"`
	BusBaseURL    string `env:"CTA_BUS_BASE_URL" validate:"omitempty,url"`
	AlertsBaseURL string `env:"CTA_ALERTS_BASE_URL" validate:"omitempty,url"`
	GoogleBaseURL string `env:"GOOGLE_MAPS_BASE_URL" validate:"omitempty,url"`
}

// Load reads a .env file when present, then environment variables with
// sensible defaults.
func Load() *Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "5000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		CTATrainKey:      getEnv("CTA_TRAIN_KEY", ""),
		CTABusKey:        getEnv("CTA_BUS_KEY", ""),
		GoogleBrowserKey: getEnv("GOOGLE_MAPS_API_KEY_BROWSER", ""),
		GoogleServerKey:  getEnv("GOOGLE_MAPS_API_KEY_SERVER", ""),

		BusRoutes:   getListEnv("CTA_BUS_ROUTES", nil),
		TrainRoutes: getListEnv("CTA_TRAIN_ROUTES", nil),

		CacheTTL:        getSecondsEnv("CACHE_TTL_SECONDS", 15),
		HTTPTimeout:     getSecondsEnv("HTTP_TIMEOUT_SECONDS", 10),
		RefreshInterval: getSecondsEnv("REFRESH_INTERVAL_SECONDS", 30),

		BusRadiusKm:        getFloatEnv("NEARBY_BUS_RADIUS_KM", 1.2),
		TrainRadiusKm:      getFloatEnv("NEARBY_TRAIN_RADIUS_KM", 1.5),
		PlacesRadiusMeters: getIntEnv("PLACES_RADIUS_METERS", 1000),

		StopsFile:      getEnv("CTA_STOPS_FILE", ""),
		GTFSRTBusURL:   getEnv("GTFS_RT_BUS_URL", ""),
		GTFSRTTrainURL: getEnv("GTFS_RT_TRAIN_URL", ""),
		StaticDir:      getEnv("STATIC_DIR", ""),

		CORSOrigins: getListEnv("CORS_ORIGINS", []string{"*"}),

		TrainBaseURL:  getEnv("CTA_TRAIN_BASE_URL", ""),
		BusBaseURL:    getEnv("CTA_BUS_BASE_URL", ""),
		AlertsBaseURL: getEnv("CTA_ALERTS_BASE_URL", ""),
		GoogleBaseURL: getEnv("GOOGLE_MAPS_BASE_URL", ""),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate checks every field against its constraints. Missing API keys are
// not errors; the affected endpoints report the provider as unavailable.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: invalid value %v (%s)", fe.Field(), fe.Value(), fe.ActualTag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(getIntEnv(key, defaultSeconds)) * time.Second
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
