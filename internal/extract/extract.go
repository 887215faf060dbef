// Package extract pulls plain text out of uploaded documents. Local
// extraction is tried before paid cloud OCR.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/hugh/lexvault/pkg/metrics"
)

// Strategy is one step of the extraction chain.
type Strategy struct {
	Name string
	// Applies reports whether the strategy handles the normalized MIME type.
	Applies func(mimeType string) bool
	// Run returns the extracted text. Errors are logged and treated as "".
	Run func(ctx context.Context, data []byte) (string, error)
	// Accept decides whether Run's output ends the chain. A nil Accept
	// makes the strategy terminal.
	Accept func(text string) bool
}

// Result is the outcome of Extract. Text is empty when nothing could be read.
type Result struct {
	Text     string
	Strategy string
}

// HasText reports whether any non-whitespace text was extracted.
func (r Result) HasText() bool {
	return strings.TrimSpace(r.Text) != ""
}

type Extractor struct {
	strategies []Strategy
	logger     *slog.Logger
}

func New(strategies []Strategy, logger *slog.Logger) *Extractor {
	return &Extractor{strategies: strategies, logger: logger}
}

// Extract runs the applicable strategies in order and returns the first
// accepted result. It never fails; total failure yields an empty Result.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) Result {
	mimeType = NormalizeMIME(mimeType)

	var fallback Result
	for _, s := range e.strategies {
		if !s.Applies(mimeType) {
			continue
		}

		text := e.run(ctx, s, data)
		if s.Accept != nil && !s.Accept(text) {
			e.logger.DebugContext(ctx, "extraction strategy not accepted",
				"strategy", s.Name,
				"chars", len(strings.TrimSpace(text)),
			)
			if len(strings.TrimSpace(text)) > len(strings.TrimSpace(fallback.Text)) {
				fallback = Result{Text: text, Strategy: s.Name}
			}
			continue
		}

		e.logger.InfoContext(ctx, "text extracted", "strategy", s.Name, "chars", len(text))
		metrics.ExtractionsTotal.WithLabelValues(s.Name).Inc()
		return Result{Text: text, Strategy: s.Name}
	}

	// No terminal strategy applied; keep whatever partial text we saw.
	if fallback.Strategy != "" {
		metrics.ExtractionsTotal.WithLabelValues(fallback.Strategy).Inc()
	} else {
		metrics.ExtractionsTotal.WithLabelValues("none").Inc()
	}
	return fallback
}

func (e *Extractor) run(ctx context.Context, s Strategy, data []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "extraction strategy panicked", "strategy", s.Name, "panic", fmt.Sprint(r))
			text = ""
		}
	}()

	text, err := s.Run(ctx, data)
	if err != nil {
		e.logger.WarnContext(ctx, "extraction strategy failed", "strategy", s.Name, "error", err)
		return ""
	}
	// NUL is valid UTF-8 but PostgreSQL TEXT columns reject it.
	return strings.ReplaceAll(text, "\x00", "")
}

// NormalizeMIME lowercases a media type and strips its parameters.
func NormalizeMIME(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
