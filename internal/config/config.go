// Package config centralizes how LoanDrop reads environment variables and
// exposes them as strongly typed Go values. Every binary calls Load and then
// uses the section it needs.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration for all LoanDrop binaries.
type Config struct {
	Portal  PortalConfig
	Facade  FacadeConfig
	Cache   CacheConfig
	Redis   RedisConfig
	Backend BackendConfig
	Storage StorageConfig
}

// PortalConfig configures the borrower-facing HTTP server.
type PortalConfig struct {
	Address        string
	JWTSecret      []byte
	MaxFileSize    int64
	AllowedTypes   []string
	PollInterval   time.Duration
	StrictTransfer bool
}

// FacadeConfig points the portal at the two remote services.
type FacadeConfig struct {
	DocumentServiceURL    string
	ApplicationServiceURL string
	Timeout               time.Duration
}

// CacheConfig controls the query cache shared by portal replicas.
type CacheConfig struct {
	Backend     string // "redis" or "memory"
	TTL         time.Duration
	DownloadTTL time.Duration
	Channel     string
}

// RedisConfig is shared by the cache and the asynq queue.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BackendConfig configures the reference document/application service and
// its worker.
type BackendConfig struct {
	Address        string
	PublicURL      string
	DatabaseURL    string
	Dispatch       string // "asynq" or "local"
	ProcessingPool int
	SigningSecret  []byte
	SignedURLTTL   time.Duration
}

// StorageConfig selects the object store behind presigned URLs.
type StorageConfig struct {
	Backend     string // "minio" or "local"
	LocalDir    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3UseSSL    bool
	RawBucket   string
}

const (
	defaultPortalAddress  = ":8080"
	defaultBackendAddress = ":8090"
	defaultMaxFileSize    = 25 << 20 // 25 MiB
	defaultAllowedTypes   = "application/pdf,image/png,image/jpeg,application/msword,application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	defaultPollInterval   = 2 * time.Second
	defaultFacadeTimeout  = 30 * time.Second
	defaultCacheTTL       = 5 * time.Minute
	defaultDownloadTTL    = 4 * time.Minute
	defaultSignedTTL      = 5 * time.Minute
	defaultWorkerCount    = 2
)

// Load reads configuration from environment variables falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Portal: PortalConfig{
			Address:        readEnv("LOANDROP_ADDRESS", defaultPortalAddress),
			JWTSecret:      parseSecret("LOANDROP_JWT_SECRET"),
			MaxFileSize:    parseInt64("LOANDROP_MAX_FILE_BYTES", defaultMaxFileSize),
			AllowedTypes:   parseList("LOANDROP_ALLOWED_TYPES", defaultAllowedTypes),
			PollInterval:   parseDuration("LOANDROP_POLL_INTERVAL", defaultPollInterval),
			StrictTransfer: parseBool("LOANDROP_UPLOAD_STRICT_TRANSFER", false),
		},
		Facade: FacadeConfig{
			DocumentServiceURL:    readEnv("DOCUMENT_SERVICE_URL", "http://localhost:8090"),
			ApplicationServiceURL: readEnv("APPLICATION_SERVICE_URL", "http://localhost:8090"),
			Timeout:               parseDuration("FACADE_TIMEOUT", defaultFacadeTimeout),
		},
		Cache: CacheConfig{
			Backend:     readEnv("LOANDROP_CACHE", "redis"),
			TTL:         parseDuration("LOANDROP_CACHE_TTL", defaultCacheTTL),
			DownloadTTL: parseDuration("LOANDROP_DOWNLOAD_URL_TTL", defaultDownloadTTL),
			Channel:     readEnv("LOANDROP_INVALIDATION_CHANNEL", "loandrop:invalidations"),
		},
		Redis: RedisConfig{
			Addr:     readEnv("REDIS_ADDR", "localhost:6379"),
			Password: readEnv("REDIS_PASSWORD", ""),
			DB:       parseInt("REDIS_DB", 0),
		},
		Backend: BackendConfig{
			Address:        readEnv("DOCSVC_ADDRESS", defaultBackendAddress),
			PublicURL:      readEnv("DOCSVC_PUBLIC_URL", "http://localhost:8090"),
			DatabaseURL:    readEnv("DATABASE_URL", ""),
			Dispatch:       readEnv("DOCSVC_DISPATCH", "asynq"),
			ProcessingPool: parseInt("DOCSVC_WORKERS", defaultWorkerCount),
			SigningSecret:  parseSecret("DOCSVC_SIGNING_SECRET"),
			SignedURLTTL:   parseDuration("DOCSVC_SIGNED_TTL", defaultSignedTTL),
		},
		Storage: StorageConfig{
			Backend:     readEnv("STORAGE_BACKEND", "minio"),
			LocalDir:    readEnv("STORAGE_LOCAL_DIR", ""),
			S3Endpoint:  readEnv("S3_ENDPOINT", "localhost:9000"),
			S3AccessKey: readEnv("S3_ACCESS_KEY", ""),
			S3SecretKey: readEnv("S3_SECRET_KEY", ""),
			S3Region:    readEnv("S3_REGION", "us-east-1"),
			S3UseSSL:    parseBool("S3_USE_SSL", false),
			RawBucket:   readEnv("S3_RAW_BUCKET", "loan-documents"),
		},
	}
	if cfg.Portal.JWTSecret == nil {
		// Tokens minted elsewhere will not verify; only useful for local runs.
		cfg.Portal.JWTSecret = randomSecret()
	}
	if cfg.Backend.SigningSecret == nil {
		cfg.Backend.SigningSecret = randomSecret()
	}
	if cfg.Backend.ProcessingPool <= 0 {
		cfg.Backend.ProcessingPool = defaultWorkerCount
	}
	if cfg.Portal.MaxFileSize <= 0 {
		cfg.Portal.MaxFileSize = defaultMaxFileSize
	}
	if cfg.Portal.PollInterval <= 0 {
		cfg.Portal.PollInterval = defaultPollInterval
	}
	if cfg.Backend.SignedURLTTL <= 0 {
		cfg.Backend.SignedURLTTL = defaultSignedTTL
	}
	if cfg.Cache.DownloadTTL <= 0 || cfg.Cache.DownloadTTL >= cfg.Backend.SignedURLTTL {
		// A cached download URL must expire before the URL itself does.
		cfg.Cache.DownloadTTL = cfg.Backend.SignedURLTTL * 4 / 5
	}
	return cfg, nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(key, def string) []string {
	val := readEnv(key, def)
	out := strings.Split(val, ",")
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5m" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseSecret(key string) []byte {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return []byte(v)
	}
	return nil
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte(hex.EncodeToString([]byte("fallbacksecret")))
	}
	return buf
}
