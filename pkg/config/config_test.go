package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "secure_uploads", cfg.Storage.Root)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, 5, cfg.OCR.MaxPages)
	assert.Equal(t, 50, cfg.OCR.TextThreshold)
	assert.Equal(t, 20*time.Second, cfg.OCR.Timeout())
	assert.Equal(t, 1000, cfg.Embedding.MaxInputChars)
	assert.Equal(t, 10*time.Second, cfg.Embedding.Timeout())
	assert.False(t, cfg.Embedding.Enabled())
	assert.Equal(t, int64(50<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, "0 3 * * *", cfg.Worker.BackfillCron)
	assert.Empty(t, cfg.Server.AllowedOrigins)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("STORAGE_BUCKET", "legal-docs")
	t.Setenv("OCR_MAX_PAGES", "3")
	t.Setenv("VERTEX_AI_PROJECT_ID", "my-project")
	t.Setenv("EMBEDDING_MAX_INPUT_CHARS", "250")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "legal-docs", cfg.Storage.Bucket)
	assert.Equal(t, 3, cfg.OCR.MaxPages)
	assert.True(t, cfg.Embedding.Enabled())
	assert.Equal(t, 250, cfg.Embedding.MaxInputChars)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t,
		"https://us-central1-aiplatform.googleapis.com/v1/projects/my-project/locations/us-central1/publishers/google/models/text-embedding-004:predict",
		cfg.Embedding.PredictURL(),
	)
	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent",
		cfg.Chat.GenerateURL(),
	)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "ftp"}},
		{"s3 without bucket", map[string]string{"STORAGE_BACKEND": "s3"}},
		{"gcs without bucket", map[string]string{"STORAGE_BACKEND": "gcs"}},
		{"zero page cap", map[string]string{"OCR_MAX_PAGES": "0"}},
		{"zero input chars", map[string]string{"EMBEDDING_MAX_INPUT_CHARS": "0"}},
		{"zero ocr timeout", map[string]string{"OCR_TIMEOUT_SECONDS": "0"}},
		{"negative embedding timeout", map[string]string{"EMBEDDING_TIMEOUT_SECONDS": "-1"}},
		{"zero chat timeout", map[string]string{"CHAT_TIMEOUT_SECONDS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_URLs(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "lex", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=lex sslmode=disable", db.DSN())
	assert.Equal(t, "pgx5://u:p@db:5432/lex?sslmode=disable", db.MigrateURL())
}
