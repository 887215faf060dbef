package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// VertexProvider calls a Vertex AI text-embedding model's :predict endpoint.
type VertexProvider struct {
	client   *http.Client
	endpoint string
}

// NewVertexProvider uses client for transport; it should carry OAuth2
// credentials for the cloud-platform scope.
func NewVertexProvider(client *http.Client, endpoint string) *VertexProvider {
	return &VertexProvider{client: client, endpoint: endpoint}
}

type predictRequest struct {
	Instances []predictInstance `json:"instances"`
}

type predictInstance struct {
	Content string `json:"content"`
}

type predictResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

func (p *VertexProvider) Predict(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(predictRequest{Instances: []predictInstance{{Content: text}}})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling vertex ai: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vertex ai returned %d: %s", resp.StatusCode, truncateRunes(string(data), 200))
	}

	var out predictResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Predictions) == 0 {
		return nil, fmt.Errorf("vertex ai returned no predictions")
	}
	return out.Predictions[0].Embeddings.Values, nil
}
