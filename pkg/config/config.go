package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string

	FirebaseProject    string
	FirebaseAPIKey     string
	ServiceAccountJSON string
	ServiceAccountPath string
	StorageBucket      string

	GoogleMapsAPIKey        string
	GeocodeBaseURL          string
	NominatimBaseURL        string
	NominatimUserAgent      string
	GeocodeCacheSize        int
	GeocodeMissTTL          time.Duration
	GeocodeBackfillInterval time.Duration

	RedisURL      string
	APIRateLimit  int
	APIRateWindow time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	environment := getEnv("ENVIRONMENT", "development")
	defaultLevel := "info"
	if environment == "development" {
		defaultLevel = "debug"
	}

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: environment,
		LogLevel:    getEnv("LOG_LEVEL", defaultLevel),

		FirebaseProject:    getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseAPIKey:     getEnv("FIREBASE_API_KEY", ""),
		ServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", "./serviceAccount.json"),
		StorageBucket:      getEnv("FIREBASE_STORAGE_BUCKET", ""),

		GoogleMapsAPIKey:        getEnv("GOOGLE_MAPS_API_KEY", ""),
		GeocodeBaseURL:          getEnv("GEOCODE_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		NominatimBaseURL:        getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent:      getEnv("NOMINATIM_USER_AGENT", "woonruil-backend"),
		GeocodeCacheSize:        int(getEnvAsInt64("GEOCODE_CACHE_SIZE", 1024)),
		GeocodeMissTTL:          time.Duration(getEnvAsInt64("GEOCODE_MISS_TTL", 30*60)) * time.Second,
		GeocodeBackfillInterval: time.Duration(getEnvAsInt64("GEOCODE_BACKFILL_INTERVAL", 600)) * time.Second,

		RedisURL:      getEnv("REDIS_URL", ""),
		APIRateLimit:  int(getEnvAsInt64("API_RATE_LIMIT", 100)),
		APIRateWindow: time.Duration(getEnvAsInt64("API_RATE_WINDOW", 15*60)) * time.Second, // 15 minutes
	}

	if config.IsProduction() && config.FirebaseProject == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required in production")
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
