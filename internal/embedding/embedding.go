// Package embedding turns document text into fixed-length semantic vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/pkg/metrics"
)

// Dimensions is the length of every vector returned by Embed.
const Dimensions = models.EmbeddingDimensions

var ErrDimension = errors.New("embedding has wrong dimension")

// Provider is a remote embedding model.
type Provider interface {
	Predict(ctx context.Context, text string) ([]float32, error)
}

// DefaultTimeout bounds a provider call when Options.Timeout is not positive.
const DefaultTimeout = 10 * time.Second

type Options struct {
	Timeout       time.Duration
	MaxInputChars int
}

// Service embeds text with a Provider, or with random vectors in stub mode
// when no provider is configured.
type Service struct {
	provider Provider
	opts     Options
	logger   *slog.Logger
}

// NewService returns a Service. A nil provider selects stub mode.
func NewService(provider Provider, opts Options, logger *slog.Logger) *Service {
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = 1000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if provider == nil {
		logger.Warn("no embedding provider configured, using random stub vectors")
	}
	return &Service{provider: provider, opts: opts, logger: logger}
}

// Stub reports whether vectors are random placeholders.
func (s *Service) Stub() bool {
	return s.provider == nil
}

// Embed returns exactly Dimensions values for text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.provider == nil {
		return stubVector(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	vec, err := s.provider.Predict(ctx, text)
	if err == nil && len(vec) != Dimensions {
		err = fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vec), Dimensions)
	}
	metrics.CloudCallDuration.WithLabelValues("embedding", metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// Input selects the text to embed: the first MaxInputChars runes of text,
// or fallback when text is blank.
func (s *Service) Input(text, fallback string) string {
	if strings.TrimSpace(text) == "" {
		text = fallback
	}
	return truncateRunes(text, s.opts.MaxInputChars)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func stubVector() []float32 {
	vec := make([]float32, Dimensions)
	for i := range vec {
		vec[i] = rand.Float32()*2 - 1
	}
	return vec
}
