package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SQLite   SQLiteConfig
	Mongo    MongoConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Survey   SurveyConfig
	AWS      AWSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// StoreConfig selects where the review collection lives.
type StoreConfig struct {
	Backend string
	Key     string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SQLiteConfig holds the SQLite database path.
type SQLiteConfig struct {
	Path string
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AdminConfig controls the dashboard gate and the seeded admin account.
type AdminConfig struct {
	Gate     bool
	Email    string
	Password string
}

// SurveyConfig picks the sentiment policy for survey submissions.
type SurveyConfig struct {
	Policy string
}

// AWSConfig holds AWS credentials and the export bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ExportBucket         string
	PresignExpireMinutes int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// NeedsRedis reports whether the configured components use Redis.
func (c *Config) NeedsRedis() bool {
	return c.Store.Backend == BackendRedis || c.AWS.ExportBucket != ""
}

// NeedsPostgres reports whether the configured components use PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.Store.Backend == BackendPostgres || c.Database.URL != ""
}

// CORSOrigins returns the allowed origins as a list.
func (c ServerConfig) CORSOrigins() []string {
	return splitTrim(c.CORSAllowedOrigins, ",")
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
			Key:     getEnv("STORE_KEY", "reviews"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "feedbackhub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "feedbackhub.db"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "feedbackhub"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Admin: AdminConfig{
			Gate:     getEnvBool("ADMIN_GATE", true),
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Survey: SurveyConfig{
			Policy: strings.ToLower(getEnv("SURVEY_POLICY", "rating")),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ExportBucket:         getEnv("EXPORT_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SharedStore reports whether the store backend is reachable from other processes.
func (c StoreConfig) SharedStore() bool {
	switch c.Backend {
	case BackendRedis, BackendPostgres, BackendMongo:
		return true
	}
	return false
}

// ValidateWorker checks the settings a standalone export worker needs. The worker
// runs in its own process, so it must read the same store the server writes.
func (c *Config) ValidateWorker() error {
	if c.AWS.ExportBucket == "" {
		return fmt.Errorf("EXPORT_BUCKET is required for the worker")
	}
	if !c.Store.SharedStore() {
		return fmt.Errorf("STORE_BACKEND %q is private to one process; the worker needs redis, postgres or mongo", c.Store.Backend)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendSQLite, BackendMongo:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Store.Key == "" {
		return fmt.Errorf("STORE_KEY must not be empty")
	}
	switch c.Survey.Policy {
	case "rating", "keyword":
	default:
		return fmt.Errorf("unknown SURVEY_POLICY %q", c.Survey.Policy)
	}
	if c.Admin.Gate && (c.Admin.Email == "") != (c.Admin.Password == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
