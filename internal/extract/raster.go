package extract

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// Rasterizer opens a PDF for page rendering.
type Rasterizer interface {
	Open(data []byte) (RasterDocument, error)
}

// RasterDocument renders individual pages, zero-indexed.
type RasterDocument interface {
	NumPage() int
	RenderPNG(page int) ([]byte, error)
	Close() error
}

// FitzRasterizer renders pages locally with MuPDF.
type FitzRasterizer struct {
	DPI float64
}

func (r FitzRasterizer) Open(data []byte) (RasterDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 150
	}
	return &fitzDocument{doc: doc, dpi: dpi}, nil
}

type fitzDocument struct {
	doc *fitz.Document
	dpi float64
}

func (d *fitzDocument) NumPage() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) RenderPNG(page int) ([]byte, error) {
	img, err := d.doc.ImageDPI(page, d.dpi)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
