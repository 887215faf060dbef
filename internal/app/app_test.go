package app_test

import (
	"testing"

	"github.com/hugh/lexvault/internal/app"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/ingest"
	"github.com/hugh/lexvault/internal/testutil"
	"github.com/hugh/lexvault/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig(t *testing.T) *config.Config {
	return &config.Config{
		Storage:   config.StorageConfig{Backend: "local", Root: t.TempDir()},
		OCR:       config.OCRConfig{Enabled: false, TimeoutSeconds: 1, MaxPages: 5, TextThreshold: 50},
		Embedding: config.EmbeddingConfig{TimeoutSeconds: 1, MaxInputChars: 1000},
		Chat:      config.ChatConfig{Model: "gemini-2.0-flash", TimeoutSeconds: 1},
	}
}

func TestNew_LocalPipeline(t *testing.T) {
	ts := testutil.NewTestContext(t)
	ctx := testutil.TestContext(t)

	a, err := app.New(ctx, localConfig(t), ts.DB, testutil.TestLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	c := testutil.CreateTestCase(t, ts.DB, &ts.Org.ID, "Probate")
	result, err := a.Ingest.Ingest(ctx, ingest.Input{
		Data:     []byte("Last will and testament of the late John Doe, leaving the estate to his heirs."),
		Filename: "will.txt",
		MIMEType: "text/plain",
		CaseID:   &c.ID,
		Actor:    testutil.Actor(ts.User),
	})
	require.NoError(t, err)
	assert.Equal(t, models.EmbeddingStub, result.EmbeddingStatus)
	assert.Equal(t, ingest.OCRSuccess, result.OCRStatus)

	_, data, err := a.Cases.Download(ctx, testutil.Actor(ts.User), result.DocumentID)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Last will and testament")
}

func TestNew_UnknownStorageBackend(t *testing.T) {
	ts := testutil.NewTestContext(t)
	cfg := localConfig(t)
	cfg.Storage.Backend = "floppy"

	_, err := app.New(testutil.TestContext(t), cfg, ts.DB, testutil.TestLogger())
	assert.Error(t, err)
}

func TestNew_InvalidEncryptionKey(t *testing.T) {
	ts := testutil.NewTestContext(t)
	cfg := localConfig(t)
	cfg.Encryption.Key = "not-an-age-identity"

	_, err := app.New(testutil.TestContext(t), cfg, ts.DB, testutil.TestLogger())
	assert.Error(t, err)
}
