package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ticket store drivers.
const (
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// Validation modes for ticket submissions.
const (
	ValidationStrict  = "strict"
	ValidationRelaxed = "relaxed"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Bolt         BoltConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	AI           AIConfig
	SMTP         SMTPConfig
	Notification NotificationConfig
	Storage      StorageConfig
	Tickets      TicketsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitMB           int
}

// StoreConfig selects the ticket repository backend.
type StoreConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// BoltConfig locates the embedded database file.
type BoltConfig struct {
	Path string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	SuggestionCacheTTL time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Encoding    string
	Development bool
}

// AIConfig describes the text-completion endpoint.
type AIConfig struct {
	APIURL         string
	APIKey         string
	Model          string
	SystemPrompt   string
	MaxTokens      int
	Temperature    float64
	MaxAttempts    int
	BackoffUnit    time.Duration
	RequestTimeout time.Duration
}

// SMTPConfig holds outbound mail server values.
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	SenderEmail        string
	SenderName         string
	InsecureSkipVerify bool
	AllowPlaintext     bool
}

// NotificationConfig controls ticket-created emails.
type NotificationConfig struct {
	Enabled        bool
	RecipientEmail string
}

// StorageConfig locates attachment blobs.
type StorageConfig struct {
	Root string
}

// TicketsConfig holds submission policy.
type TicketsConfig struct {
	ValidationMode     string
	MaxAttachmentBytes int64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	temperature, err := strconv.ParseFloat(getEnv("AI_TEMPERATURE", "0.7"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AI_TEMPERATURE: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	dsn := os.Getenv("POSTGRES_DSN")
	defaultDriver := StoreBolt
	if dsn != "" {
		defaultDriver = StorePostgres
	}
	driver := strings.ToLower(getEnv("TICKET_STORE", defaultDriver))
	if driver != StoreBolt && driver != StorePostgres {
		return nil, fmt.Errorf("invalid TICKET_STORE %q", driver)
	}

	mode := strings.ToLower(getEnv("TICKET_VALIDATION_MODE", ValidationStrict))
	if mode != ValidationStrict && mode != ValidationRelaxed {
		return nil, fmt.Errorf("invalid TICKET_VALIDATION_MODE %q", mode)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitMB:           getEnvAsInt("HTTP_BODY_LIMIT_MB", 32),
		},
		Store: StoreConfig{
			Driver: driver,
		},
		Postgres: PostgresConfig{
			DSN:            dsn,
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Bolt: BoltConfig{
			Path: getEnv("BOLT_PATH", "data/support-desk.db"),
		},
		Redis: RedisConfig{
			Addr:               getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:           os.Getenv("REDIS_PASSWORD"),
			DB:                 redisDB,
			SuggestionCacheTTL: getEnvAsDuration("AI_SUGGESTION_CACHE_TTL", 24*time.Hour),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Encoding:    getEnv("LOG_ENCODING", "json"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		AI: AIConfig{
			APIURL:         getEnv("AI_API_URL", "https://api.openai.com/v1/chat/completions"),
			APIKey:         os.Getenv("AI_API_KEY"),
			Model:          getEnv("AI_MODEL", "gpt-4o-mini"),
			SystemPrompt:   getEnv("AI_SYSTEM_PROMPT", "You are a helpful assistant."),
			MaxTokens:      getEnvAsInt("AI_MAX_TOKENS", 150),
			Temperature:    temperature,
			MaxAttempts:    getEnvAsInt("AI_MAX_ATTEMPTS", 3),
			BackoffUnit:    getEnvAsDuration("AI_BACKOFF_UNIT", time.Second),
			RequestTimeout: getEnvAsDuration("AI_REQUEST_TIMEOUT", 30*time.Second),
		},
		SMTP: SMTPConfig{
			Host:               os.Getenv("SMTP_HOST"),
			Port:               smtpPort,
			Username:           os.Getenv("SMTP_USERNAME"),
			Password:           os.Getenv("SMTP_PASSWORD"),
			SenderEmail:        getEnv("SMTP_SENDER_EMAIL", "noreply@example.com"),
			SenderName:         getEnv("SMTP_SENDER_NAME", "Support Desk"),
			InsecureSkipVerify: getEnvAsBool("SMTP_INSECURE_SKIP_VERIFY", false),
			AllowPlaintext:     getEnvAsBool("SMTP_ALLOW_PLAINTEXT", false),
		},
		Notification: NotificationConfig{
			Enabled:        getEnvAsBool("NOTIFICATION_ENABLED", true),
			RecipientEmail: os.Getenv("NOTIFICATION_EMAIL"),
		},
		Storage: StorageConfig{
			Root: getEnv("STORAGE_ROOT", "Uploads"),
		},
		Tickets: TicketsConfig{
			ValidationMode:     mode,
			MaxAttachmentBytes: int64(getEnvAsInt("TICKET_MAX_ATTACHMENT_BYTES", 10<<20)),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// BodyLimit returns the maximum request body size in bytes.
func (a AppConfig) BodyLimit() int {
	if a.BodyLimitMB <= 0 {
		return 4 << 20
	}
	return a.BodyLimitMB << 20
}

// Strict reports whether every submission field is mandatory.
func (t TicketsConfig) Strict() bool {
	return t.ValidationMode != ValidationRelaxed
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
