package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names shared by the pluggable stores.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
	BackendMinIO    = "minio"
)

// Config aggregates runtime configuration for the imgbed API.
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Gallery   GalleryConfig
	Hoster    HosterConfig
	Postgres  PostgresConfig
	MinIO     MinIOConfig
	Redis     RedisConfig
	Access    AccessConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// MaxMultipartMemory bounds the part of a multipart body held in memory.
	MaxMultipartMemory int64
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UploadConfig holds the ingestion pipeline limits.
type UploadConfig struct {
	AllowedTypes      []string
	MaxFileSize       int64
	CompressThreshold int64
	CompressBudget    int64
	DefaultCategory   string
}

// RateLimitConfig configures per-client admission.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
	Backend  string
	Dir      string
}

// CacheConfig configures the content-addressed upload cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Backend string
	Dir     string
}

// GalleryConfig selects where the catalog lives.
type GalleryConfig struct {
	Backend string
	Path    string
}

// HosterConfig describes the external image host.
type HosterConfig struct {
	Backend     string
	RemoteURL   string
	RemoteQuery string
	Cookie      string
	UserAgent   string
	Timeout     time.Duration
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	PublicBaseURL   string
	PresignTTL      time.Duration
}

// RedisConfig carries the Redis connection used by the redis backends.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// AccessConfig groups client admission settings.
type AccessConfig struct {
	WhitelistEnabled bool
	Whitelist        []string
	TrustedProxies   []string
}

// LogConfig configures the zap logger and its rolling file sink.
type LogConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:               getString("IMGBED_API_HOST", "0.0.0.0"),
			Port:               getInt("IMGBED_API_PORT", 8080),
			ReadTimeout:        getDuration("IMGBED_API_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:       getDuration("IMGBED_API_WRITE_TIMEOUT", 300*time.Second),
			IdleTimeout:        getDuration("IMGBED_API_IDLE_TIMEOUT", 60*time.Second),
			MaxMultipartMemory: getInt64("IMGBED_API_MULTIPART_MEMORY", 32<<20),
		},
		Upload: UploadConfig{
			AllowedTypes: getList("IMGBED_ALLOWED_TYPES", []string{
				"image/jpeg", "image/png", "image/gif", "image/webp", "image/jpg",
			}),
			MaxFileSize:       getInt64("IMGBED_MAX_FILE_SIZE", 50<<20),
			CompressThreshold: getInt64("IMGBED_COMPRESS_THRESHOLD", 8<<20),
			CompressBudget:    getInt64("IMGBED_COMPRESS_BUDGET", 8<<20),
			DefaultCategory:   getString("IMGBED_DEFAULT_CATEGORY", "uncategorized"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getBool("IMGBED_RATE_LIMIT_ENABLED", true),
			Requests: getInt("IMGBED_RATE_LIMIT_REQUESTS", 10),
			Window:   getDuration("IMGBED_RATE_LIMIT_WINDOW", time.Minute),
			Backend:  strings.ToLower(getString("IMGBED_RATE_LIMIT_BACKEND", BackendFile)),
			Dir:      getString("IMGBED_RATE_LIMIT_DIR", os.TempDir()+"/imgbed_rate_limit"),
		},
		Cache: CacheConfig{
			Enabled: getBool("IMGBED_CACHE_ENABLED", false),
			TTL:     getDuration("IMGBED_CACHE_TTL", 24*time.Hour),
			Backend: strings.ToLower(getString("IMGBED_CACHE_BACKEND", BackendFile)),
			Dir:     getString("IMGBED_CACHE_DIR", "data/cache"),
		},
		Gallery: GalleryConfig{
			Backend: strings.ToLower(getString("IMGBED_GALLERY_BACKEND", BackendFile)),
			Path:    getString("IMGBED_GALLERY_PATH", "data/gallery.json"),
		},
		Hoster: HosterConfig{
			Backend:     strings.ToLower(getString("IMGBED_HOSTER_BACKEND", BackendRemote)),
			RemoteURL:   getString("IMGBED_REMOTE_UPLOAD_URL", "https://stream-upload.goofish.com/api/upload.api"),
			RemoteQuery: getString("IMGBED_REMOTE_UPLOAD_QUERY", "_input_charset=utf-8&appkey=fleamarket"),
			Cookie:      getString("IMGBED_REMOTE_COOKIE", ""),
			UserAgent:   getString("IMGBED_REMOTE_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"),
			Timeout:     getDuration("IMGBED_REMOTE_TIMEOUT", 30*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "imgbed_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "imgbed"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "imgbed"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "imgbed"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
			PublicBaseURL:   strings.TrimRight(getString("MINIO_PUBLIC_BASE_URL", ""), "/"),
			PresignTTL:      getDuration("MINIO_PRESIGN_TTL", 7*24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getString("REDIS_ADDR", "localhost:6379"),
			Password: getString("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			Prefix:   getString("REDIS_PREFIX", "imgbed:"),
		},
		Access: AccessConfig{
			WhitelistEnabled: getBool("IMGBED_IP_WHITELIST_ENABLED", false),
			Whitelist:        getList("IMGBED_IP_WHITELIST", []string{"127.0.0.1", "::1"}),
			TrustedProxies:   getList("IMGBED_TRUSTED_PROXIES", nil),
		},
		Log: LogConfig{
			Level:      strings.ToLower(getString("LOG_LEVEL", "info")),
			Path:       getString("LOG_FILE", "logs/upload.log"),
			MaxSizeMB:  getInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getInt("LOG_MAX_AGE_DAYS", 7),
			Compress:   getBool("LOG_COMPRESS", false),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("IMGBED_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("IMGBED_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.CompressBudget <= 0 {
		return fmt.Errorf("IMGBED_COMPRESS_BUDGET must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.Requests <= 0 {
		return fmt.Errorf("IMGBED_RATE_LIMIT_REQUESTS must be positive")
	}
	switch c.Gallery.Backend {
	case BackendFile, BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("unsupported gallery backend %q", c.Gallery.Backend)
	}
	switch c.Cache.Backend {
	case BackendFile, BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unsupported cache backend %q", c.Cache.Backend)
	}
	switch c.RateLimit.Backend {
	case BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unsupported rate limit backend %q", c.RateLimit.Backend)
	}
	switch c.Hoster.Backend {
	case BackendRemote, BackendMinIO:
	default:
		return fmt.Errorf("unsupported hoster backend %q", c.Hoster.Backend)
	}
	return nil
}

// UsesRedis reports whether any configured backend needs a Redis client.
func (c Config) UsesRedis() bool {
	return (c.Cache.Enabled && c.Cache.Backend == BackendRedis) ||
		(c.RateLimit.Enabled && c.RateLimit.Backend == BackendRedis)
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getList splits a comma separated variable, dropping blanks.
func getList(key string, fallback []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
