package extract

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// TextDetector is a cloud OCR service. It returns the text annotations of
// an image, the first being the full detected text.
type TextDetector interface {
	DetectText(ctx context.Context, image []byte) ([]string, error)
}

// VisionDetector calls the Cloud Vision images:annotate REST endpoint.
type VisionDetector struct {
	svc *vision.Service
}

func NewVisionDetector(ctx context.Context, opts ...option.ClientOption) (*VisionDetector, error) {
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}
	return &VisionDetector{svc: svc}, nil
}

func (d *VisionDetector) DetectText(ctx context.Context, image []byte) ([]string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}

	resp, err := d.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("annotating image: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, nil
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return nil, fmt.Errorf("vision error %d: %s", r.Error.Code, r.Error.Message)
	}

	out := make([]string, 0, len(r.TextAnnotations))
	for _, a := range r.TextAnnotations {
		out = append(out, a.Description)
	}
	return out, nil
}
