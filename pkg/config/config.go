package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Storage    StorageConfig
	Geocoder   GeocoderConfig
	LinkCheck  LinkCheckConfig
	Cache      CacheConfig
	Thumbnails ThumbnailConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects where uploaded files live. Only the storage layer reads it.
type StorageConfig struct {
	Backend          string
	LocalDir         string
	MaxFileSizeBytes int64
	PartialTTL       time.Duration
	SignedURLSecret  string
	SignedURLTTL     time.Duration

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool
}

// GeocoderConfig points at a Nominatim compatible search endpoint.
type GeocoderConfig struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheTTL          time.Duration
}

// LinkCheckConfig bounds the liveness probe for submitted links.
type LinkCheckConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// CacheConfig toggles redis backed caching.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// ThumbnailConfig governs background preview generation for images.
type ThumbnailConfig struct {
	Enabled    bool
	Workers    int
	MaxRetries int
	MaxEdgePx  int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr interface{ Timeout() bool }
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxFileSize := v.GetInt64("STORAGE_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 50 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Backend:          strings.ToLower(v.GetString("STORAGE_BACKEND")),
		LocalDir:         v.GetString("STORAGE_LOCAL_DIR"),
		MaxFileSizeBytes: maxFileSize,
		PartialTTL:       parseDuration(v.GetString("STORAGE_PARTIAL_TTL"), time.Hour),
		SignedURLSecret:  v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 30*time.Minute),
		S3Bucket:         v.GetString("S3_BUCKET"),
		S3Region:         v.GetString("S3_REGION"),
		S3Endpoint:       v.GetString("S3_ENDPOINT"),
		S3AccessKey:      v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:      v.GetString("S3_SECRET_KEY"),
		S3PathStyle:      v.GetBool("S3_PATH_STYLE"),
	}

	cfg.Geocoder = GeocoderConfig{
		BaseURL:           v.GetString("GEOCODER_BASE_URL"),
		UserAgent:         v.GetString("GEOCODER_USER_AGENT"),
		Timeout:           parseDuration(v.GetString("GEOCODER_TIMEOUT"), 5*time.Second),
		RequestsPerSecond: v.GetFloat64("GEOCODER_RPS"),
		CacheTTL:          parseDuration(v.GetString("GEOCODER_CACHE_TTL"), 24*time.Hour),
	}

	cfg.LinkCheck = LinkCheckConfig{
		Timeout:   parseDuration(v.GetString("LINK_CHECK_TIMEOUT"), 5*time.Second),
		UserAgent: v.GetString("LINK_CHECK_USER_AGENT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_CACHE"),
		DefaultTTL: parseDuration(v.GetString("CACHE_DEFAULT_TTL"), 10*time.Minute),
	}

	cfg.Thumbnails = ThumbnailConfig{
		Enabled:    v.GetBool("ENABLE_THUMBNAILS"),
		Workers:    v.GetInt("THUMBNAIL_WORKERS"),
		MaxRetries: v.GetInt("THUMBNAIL_RETRIES"),
		MaxEdgePx:  v.GetInt("THUMBNAIL_MAX_EDGE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "civic_archive")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "civic-archive")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_BACKEND", StorageLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./media")
	v.SetDefault("STORAGE_MAX_FILE_SIZE", 50*1024*1024)
	v.SetDefault("STORAGE_PARTIAL_TTL", "1h")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_download_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "30m")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_PATH_STYLE", true)

	v.SetDefault("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("GEOCODER_USER_AGENT", "civic-archive/1.0")
	v.SetDefault("GEOCODER_TIMEOUT", "5s")
	v.SetDefault("GEOCODER_RPS", 1.0)
	v.SetDefault("GEOCODER_CACHE_TTL", "24h")

	v.SetDefault("LINK_CHECK_TIMEOUT", "5s")
	v.SetDefault("LINK_CHECK_USER_AGENT", "civic-archive-linkcheck/1.0")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_DEFAULT_TTL", "10m")

	v.SetDefault("ENABLE_THUMBNAILS", false)
	v.SetDefault("THUMBNAIL_WORKERS", 2)
	v.SetDefault("THUMBNAIL_RETRIES", 3)
	v.SetDefault("THUMBNAIL_MAX_EDGE", 320)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
