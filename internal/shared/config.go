package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	MetricsAddr    string
	RequestTimeout time.Duration

	MySQLDSN  string
	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	JWTSecret string
	JWTIssuer string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool
	UploadTTL   time.Duration
	DownloadTTL time.Duration

	CatalogBase   string
	CatalogKey    string
	CatalogRPS    int
	ImportWorkers int
	ImportSource  string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	secs := func(k string, def int) time.Duration { return time.Duration(atoi(k, def)) * time.Second }

	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ""),
		RequestTimeout: secs("REQUEST_TIMEOUT_SECONDS", 15),

		MySQLDSN:  env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reserves?parseTime=true&charset=utf8mb4&loc=UTC"),
		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisDB:   atoi("REDIS_DB", 0),
		RedisPass: env("REDIS_PASSWORD", ""),
		CacheTTL:  secs("CACHE_TTL_SECONDS", 900),

		JWTSecret: env("JWT_SECRET", ""),
		JWTIssuer: env("JWT_ISSUER", ""),

		S3Bucket:    env("S3_BUCKET", "reserve-images"),
		S3Region:    env("S3_REGION", "us-east-1"),
		S3Endpoint:  env("S3_ENDPOINT", ""),
		S3AccessKey: env("S3_ACCESS_KEY", ""),
		S3SecretKey: env("S3_SECRET_KEY", ""),
		S3PathStyle: boolEnv("S3_PATH_STYLE", false),
		UploadTTL:   secs("UPLOAD_URL_TTL_SECONDS", 900),
		DownloadTTL: secs("DOWNLOAD_URL_TTL_SECONDS", 3600),

		CatalogBase:   env("CATALOG_BASE_URL", ""),
		CatalogKey:    env("CATALOG_API_KEY", ""),
		CatalogRPS:    atoi("CATALOG_RPS", 5),
		ImportWorkers: atoi("IMPORT_WORKERS", 8),
		ImportSource:  env("IMPORT_SOURCE", "catalog"),
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func boolEnv(k string, def bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
