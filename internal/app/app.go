// Package app assembles the services shared by the API server and the worker.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hugh/lexvault/internal/admin"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/cases"
	"github.com/hugh/lexvault/internal/chat"
	"github.com/hugh/lexvault/internal/embedding"
	"github.com/hugh/lexvault/internal/extract"
	"github.com/hugh/lexvault/internal/ingest"
	"github.com/hugh/lexvault/internal/policy"
	"github.com/hugh/lexvault/internal/vault"
	"github.com/hugh/lexvault/pkg/blobstore"
	"github.com/hugh/lexvault/pkg/config"
	"github.com/hugh/lexvault/pkg/crypto"
	"github.com/hugh/lexvault/pkg/gcpclient"
	"gorm.io/gorm"
)

const rasterDPI = 150

type App struct {
	Enforcer    *policy.Enforcer
	Recorder    *audit.Recorder
	AuditReader *audit.Reader
	Vault       *vault.Vault
	Cases       *cases.Service
	Ingest      *ingest.Service
	Chat        *chat.Service
	Admin       *admin.Service

	closers []io.Closer
}

// New wires the document pipeline from cfg. Cloud OCR, embeddings and chat
// degrade to disabled, stub and fallback modes when Google credentials are
// unavailable; storage and key errors are fatal.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *slog.Logger) (*App, error) {
	encryptor, err := crypto.Load(cfg.Encryption.Key, logger)
	if err != nil {
		return nil, fmt.Errorf("loading document key: %w", err)
	}

	store, err := blobstore.New(ctx, &cfg.Storage, &cfg.Google)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	a := &App{}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.Enforcer = policy.NewEnforcer(logger)
	a.Recorder = audit.NewRecorder(db, logger)
	a.AuditReader = audit.NewReader(db, a.Enforcer)
	a.Vault = vault.New(encryptor, store, logger)
	a.Cases = cases.NewService(db, a.Enforcer, a.Recorder, a.Vault, logger)
	a.Admin = admin.NewService(db, a.Enforcer, a.Recorder, logger)

	extractor := extract.New(extract.DefaultStrategies(
		extract.PDFTextLayer{},
		extract.FitzRasterizer{DPI: rasterDPI},
		newDetector(ctx, cfg, logger),
		extract.Options{
			TextThreshold: cfg.OCR.TextThreshold,
			MaxPages:      cfg.OCR.MaxPages,
			Timeout:       cfg.OCR.Timeout(),
		},
		logger,
	), logger)

	var (
		provider  embedding.Provider
		generator chat.Generator
	)
	if cfg.Embedding.Enabled() {
		client, err := gcpclient.NewHTTPClient(ctx, cfg.Google.CredentialsFile)
		if err != nil {
			logger.Warn("Google credentials unavailable, embeddings and chat disabled", "error", err)
		} else {
			provider, generator = googleModels(client, cfg)
		}
	}

	embedder := embedding.NewService(provider, embedding.Options{
		Timeout:       cfg.Embedding.Timeout(),
		MaxInputChars: cfg.Embedding.MaxInputChars,
	}, logger)

	a.Ingest = ingest.NewService(db, a.Enforcer, a.Cases, a.Vault, extractor, embedder, a.Recorder, logger)
	a.Chat = chat.NewService(db, a.Cases, generator, a.Recorder, cfg.Chat.Timeout(), logger)

	logger.Info("document pipeline ready",
		"storage", cfg.Storage.Backend,
		"ocr", cfg.OCR.Enabled,
		"embedding_stub", embedder.Stub(),
		"chat", generator != nil,
	)
	return a, nil
}

func googleModels(client *http.Client, cfg *config.Config) (embedding.Provider, chat.Generator) {
	return embedding.NewVertexProvider(client, cfg.Embedding.PredictURL()),
		chat.NewGeminiGenerator(client, cfg.Chat.GenerateURL(), cfg.Embedding.ProjectID)
}

// newDetector returns nil when cloud OCR is disabled or cannot be set up.
func newDetector(ctx context.Context, cfg *config.Config, logger *slog.Logger) extract.TextDetector {
	if !cfg.OCR.Enabled {
		return nil
	}
	detector, err := extract.NewVisionDetector(ctx, gcpclient.ClientOptions(cfg.Google.CredentialsFile)...)
	if err != nil {
		logger.Warn("cloud OCR unavailable, scanned documents will have no text", "error", err)
		return nil
	}
	return detector
}

// Close releases storage clients.
func (a *App) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}
