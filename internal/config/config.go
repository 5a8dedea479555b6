package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers supported by the file deposit.
const (
	StorageDriverLocal      = "local"
	StorageDriverCloudinary = "cloudinary"
	StorageDriverS3         = "s3"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	CORSAllowOrigins       string
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	EventsChannel          string
	JWTSecret              string
	StorageDriver          string
	StorageLocalDir        string
	StoragePublicBaseURL   string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	S3Bucket               string
	S3Region               string
	S3Endpoint             string
	UploadMaxMB            int
	UploadRateLimit        int
	DashboardCacheTTL      time.Duration
	StreamKeepAlive        time.Duration
	SeedEnabled            bool
	SeedToken              string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TSR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Test Series Review API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("events.channel", "testseries")
	v.SetDefault("storage.driver", StorageDriverLocal)
	v.SetDefault("storage.local_dir", "./data/files")
	v.SetDefault("storage.public_base_url", "/api/v1")
	v.SetDefault("cloudinary.folder", "testseries/answer-sheets")
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("upload.max_mb", 10)
	v.SetDefault("upload.rate_limit", 10)
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("stream.keepalive", "30s")
	v.SetDefault("seed.enabled", false)

	ttl, err := parseDuration(v.GetString("dashboard.cache_ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	keepAlive, err := parseDuration(v.GetString("stream.keepalive"), 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stream keepalive: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
		DatabaseDriver:         strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		EventsChannel:          v.GetString("events.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		StorageDriver:          strings.ToLower(v.GetString("storage.driver")),
		StorageLocalDir:        v.GetString("storage.local_dir"),
		StoragePublicBaseURL:   strings.TrimRight(v.GetString("storage.public_base_url"), "/"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		S3Bucket:               v.GetString("s3.bucket"),
		S3Region:               v.GetString("s3.region"),
		S3Endpoint:             v.GetString("s3.endpoint"),
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		UploadRateLimit:        v.GetInt("upload.rate_limit"),
		DashboardCacheTTL:      ttl,
		StreamKeepAlive:        keepAlive,
		SeedEnabled:            v.GetBool("seed.enabled"),
		SeedToken:              v.GetString("seed.token"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.StorageDriver {
	case StorageDriverLocal, StorageDriverCloudinary, StorageDriverS3:
	default:
		return Config{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if cfg.StorageDriver == StorageDriverS3 && cfg.S3Bucket == "" {
		return Config{}, fmt.Errorf("s3 bucket must be provided when storage driver is s3")
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 10
	}

	if cfg.UploadRateLimit <= 0 {
		cfg.UploadRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
