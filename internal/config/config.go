package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	AppName  string
	Env      string
	Host     string
	Port     int
	DBDriver string

	DatabaseURL string
	SQLiteDSN   string
	RedisURL    string

	JWTSecret          string
	AccessTokenMinutes int
	EncryptKey         string

	UploadDir   string
	CORSOrigins []string
	Debug       bool
	LogLevel    string

	SendRatePerSecond float64
	SendBurst         int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:  getEnv("APP_NAME", "wachat"),
		Env:      getEnv("APP_ENV", "development"),
		Host:     getEnv("HTTP_HOST", "0.0.0.0"),
		Port:     getEnvAsInt("HTTP_PORT", 8000),
		DBDriver: strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),

		DatabaseURL: getEnv("DATABASE_URL", postgresURL()),
		SQLiteDSN:   getEnv("SQLITE_DSN", "wachat.db"),
		RedisURL:    os.Getenv("REDIS_URL"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		AccessTokenMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 24*60),
		EncryptKey:         os.Getenv("ENCRYPTION_KEY"),

		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		Debug:       getEnvAsBool("DEBUG", true),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		SendRatePerSecond: getEnvAsFloat("SEND_RATE_PER_SECOND", 5),
		SendBurst:         getEnvAsInt("SEND_BURST", 10),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("upload dir %s: %w", cfg.UploadDir, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET must be set")
	case c.EncryptKey == "":
		return errors.New("ENCRYPTION_KEY must be set")
	}
	return nil
}

// postgresURL assembles a DSN from the POSTGRES_* variables.
func postgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), getEnv("POSTGRES_PASSWORD", "postgres")),
		Host:     net.JoinHostPort(getEnv("POSTGRES_HOST", "localhost"), getEnv("POSTGRES_PORT", "5432")),
		Path:     getEnv("POSTGRES_DB", "wachat"),
		RawQuery: "sslmode=" + getEnv("POSTGRES_SSLMODE", "disable"),
	}
	return u.String()
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
