package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hugh/lexvault/pkg/metrics"
)

const (
	StrategyPDFTextLayer = "pdf-text-layer"
	StrategyPDFRasterOCR = "pdf-raster-ocr"
	StrategyImageOCR     = "image-ocr"
	StrategyPlainText    = "plain-text"
)

// Options tunes the default strategy chain.
type Options struct {
	// TextThreshold is the number of trimmed characters the PDF text layer
	// must exceed to skip cloud OCR.
	TextThreshold int
	// MaxPages caps how many PDF pages are rasterized for OCR.
	MaxPages int
	// Timeout bounds each cloud OCR call.
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{TextThreshold: 50, MaxPages: 5, Timeout: 20 * time.Second}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxPages < 1 {
		o.MaxPages = def.MaxPages
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	return o
}

// DefaultStrategies builds the text-layer, raster-OCR, image-OCR and
// plain-text chain. A nil detector disables both cloud OCR strategies.
func DefaultStrategies(layer TextLayer, raster Rasterizer, detector TextDetector, opts Options, logger *slog.Logger) []Strategy {
	opts = opts.withDefaults()
	strategies := []Strategy{
		{
			Name:    StrategyPDFTextLayer,
			Applies: isPDF,
			Run: func(ctx context.Context, data []byte) (string, error) {
				return layer.Text(data)
			},
			Accept: func(text string) bool {
				return len(strings.TrimSpace(text)) > opts.TextThreshold
			},
		},
	}

	if detector != nil {
		ocr := &cloudOCR{detector: detector, timeout: opts.Timeout, logger: logger}
		strategies = append(strategies,
			Strategy{
				Name:    StrategyPDFRasterOCR,
				Applies: isPDF,
				Run: func(ctx context.Context, data []byte) (string, error) {
					return ocr.pdfPages(ctx, raster, data, opts.MaxPages)
				},
			},
			Strategy{
				Name:    StrategyImageOCR,
				Applies: isImage,
				Run:     ocr.image,
			},
		)
	}

	return append(strategies, Strategy{
		Name:    StrategyPlainText,
		Applies: func(mt string) bool { return mt == "text/plain" },
		Run: func(_ context.Context, data []byte) (string, error) {
			if utf8.Valid(data) {
				return string(data), nil
			}
			return strings.ToValidUTF8(string(data), "�"), nil
		},
	})
}

func isPDF(mt string) bool   { return mt == "application/pdf" }
func isImage(mt string) bool { return strings.HasPrefix(mt, "image/") }

type cloudOCR struct {
	detector TextDetector
	timeout  time.Duration
	logger   *slog.Logger
}

// detect runs one bounded cloud call and returns the first annotation.
func (o *cloudOCR) detect(ctx context.Context, img []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	annotations, err := o.detector.DetectText(ctx, img)
	metrics.CloudCallDuration.WithLabelValues("vision", metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if len(annotations) == 0 {
		return "", nil
	}
	return annotations[0], nil
}

func (o *cloudOCR) image(ctx context.Context, data []byte) (string, error) {
	return o.detect(ctx, data)
}

// pdfPages renders up to maxPages pages and OCRs them one at a time. A
// failing page contributes no text; the remaining pages are still read.
func (o *cloudOCR) pdfPages(ctx context.Context, raster Rasterizer, data []byte, maxPages int) (string, error) {
	doc, err := raster.Open(data)
	if err != nil {
		return "", fmt.Errorf("opening pdf for rasterization: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var b strings.Builder
	for i := 0; i < pages; i++ {
		if ctx.Err() != nil {
			break
		}
		text, err := o.page(ctx, doc, i)
		if err != nil {
			o.logger.WarnContext(ctx, "page ocr failed", "page", i+1, "error", err)
			continue
		}
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func (o *cloudOCR) page(ctx context.Context, doc RasterDocument, i int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panicked: %v", r)
		}
	}()

	img, err := doc.RenderPNG(i)
	if err != nil {
		return "", fmt.Errorf("rendering: %w", err)
	}
	return o.detect(ctx, img)
}
