package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	Storage    StorageConfig
	OCR        OCRConfig
	Embedding  EmbeddingConfig
	Chat       ChatConfig
	Upload     UploadConfig
	Worker     WorkerConfig
	Google     GoogleConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// EncryptionConfig holds the age identity used to seal documents at rest,
// inline or as "file:<path>". An empty key puts the vault in ephemeral-key mode.
type EncryptionConfig struct {
	Key string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

// StorageConfig selects where ciphertext blobs live.
type StorageConfig struct {
	Backend  string // local, s3, gcs
	Root     string // local backend directory
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // S3-compatible endpoint override (minio etc.)

	AccessKeyID     string
	SecretAccessKey string
}

// GoogleConfig is shared by the GCS, Vision and Vertex AI clients.
type GoogleConfig struct {
	// CredentialsFile is a service account JSON file; empty uses
	// application default credentials.
	CredentialsFile string
}

type OCRConfig struct {
	Enabled        bool
	TimeoutSeconds int
	MaxPages       int
	TextThreshold  int
}

type EmbeddingConfig struct {
	ProjectID      string
	Location       string
	Model          string
	TimeoutSeconds int
	MaxInputChars  int
}

type ChatConfig struct {
	Model          string
	TimeoutSeconds int
}

type UploadConfig struct {
	MaxBytes int64
}

type WorkerConfig struct {
	Concurrency  int
	BackfillCron string
	BackfillSize int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// MigrateURL returns the URL form golang-migrate's pgx/v5 driver expects.
func (d *DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (o *OCRConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Enabled reports whether a Vertex AI project is configured. Without one the
// vectorizer runs in stub mode.
func (e *EmbeddingConfig) Enabled() bool {
	return e.ProjectID != ""
}

func (e *EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// PredictURL is the Vertex AI publisher-model predict endpoint.
func (e *EmbeddingConfig) PredictURL() string {
	return fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		e.Location, e.ProjectID, e.Location, e.Model,
	)
}

func (c *ChatConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GenerateURL is the Generative Language generateContent endpoint.
func (c *ChatConfig) GenerateURL() string {
	return fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", c.Model)
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "lexvault")
	v.SetDefault("DATABASE_PASSWORD", "lexvault_secret")
	v.SetDefault("DATABASE_NAME", "lexvault")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("STORAGE_ROOT", "secure_uploads")
	v.SetDefault("STORAGE_PREFIX", "documents")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("OCR_ENABLED", true)
	v.SetDefault("OCR_TIMEOUT_SECONDS", 20)
	v.SetDefault("OCR_MAX_PAGES", 5)
	v.SetDefault("OCR_TEXT_THRESHOLD", 50)
	v.SetDefault("VERTEX_AI_LOCATION", "us-central1")
	v.SetDefault("EMBEDDING_MODEL", "text-embedding-004")
	v.SetDefault("EMBEDDING_TIMEOUT_SECONDS", 10)
	v.SetDefault("EMBEDDING_MAX_INPUT_CHARS", 1000)
	v.SetDefault("CHAT_MODEL", "gemini-2.0-flash")
	v.SetDefault("CHAT_TIMEOUT_SECONDS", 30)
	v.SetDefault("UPLOAD_MAX_BYTES", 50<<20)
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("BACKFILL_CRON", "0 3 * * *")
	v.SetDefault("BACKFILL_BATCH_SIZE", 100)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Storage: StorageConfig{
			Backend:  v.GetString("STORAGE_BACKEND"),
			Root:     v.GetString("STORAGE_ROOT"),
			Bucket:   v.GetString("STORAGE_BUCKET"),
			Prefix:   v.GetString("STORAGE_PREFIX"),
			Region:   v.GetString("STORAGE_REGION"),
			Endpoint: v.GetString("STORAGE_ENDPOINT"),

			AccessKeyID:     v.GetString("STORAGE_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("STORAGE_SECRET_ACCESS_KEY"),
		},
		OCR: OCRConfig{
			Enabled:        v.GetBool("OCR_ENABLED"),
			TimeoutSeconds: v.GetInt("OCR_TIMEOUT_SECONDS"),
			MaxPages:       v.GetInt("OCR_MAX_PAGES"),
			TextThreshold:  v.GetInt("OCR_TEXT_THRESHOLD"),
		},
		Embedding: EmbeddingConfig{
			ProjectID:      v.GetString("VERTEX_AI_PROJECT_ID"),
			Location:       v.GetString("VERTEX_AI_LOCATION"),
			Model:          v.GetString("EMBEDDING_MODEL"),
			TimeoutSeconds: v.GetInt("EMBEDDING_TIMEOUT_SECONDS"),
			MaxInputChars:  v.GetInt("EMBEDDING_MAX_INPUT_CHARS"),
		},
		Chat: ChatConfig{
			Model:          v.GetString("CHAT_MODEL"),
			TimeoutSeconds: v.GetInt("CHAT_TIMEOUT_SECONDS"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		Worker: WorkerConfig{
			Concurrency:  v.GetInt("WORKER_CONCURRENCY"),
			BackfillCron: v.GetString("BACKFILL_CRON"),
			BackfillSize: v.GetInt("BACKFILL_BATCH_SIZE"),
		},
		Google: GoogleConfig{
			CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Root == "" {
			return fmt.Errorf("STORAGE_ROOT is required for the local storage backend")
		}
	case "s3", "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("STORAGE_BUCKET is required for the %s storage backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.OCR.MaxPages < 1 {
		return fmt.Errorf("OCR_MAX_PAGES must be at least 1")
	}
	if c.Embedding.MaxInputChars < 1 {
		return fmt.Errorf("EMBEDDING_MAX_INPUT_CHARS must be at least 1")
	}
	for name, seconds := range map[string]int{
		"OCR_TIMEOUT_SECONDS":       c.OCR.TimeoutSeconds,
		"EMBEDDING_TIMEOUT_SECONDS": c.Embedding.TimeoutSeconds,
		"CHAT_TIMEOUT_SECONDS":      c.Chat.TimeoutSeconds,
	} {
		if seconds < 1 {
			return fmt.Errorf("%s must be at least 1", name)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
