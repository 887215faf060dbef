package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "my-project", r.Header.Get("x-goog-user-project"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "Summarize the lease", req.Contents[0].Parts[0].Text)
		assert.Equal(t, 1024, req.GenerationConfig.MaxOutputTokens)

		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"The lease "},{"text":"runs five years."}]}}]}`)
	}))
	defer srv.Close()

	g := NewGeminiGenerator(srv.Client(), srv.URL+"/v1beta/models/gemini-2.0-flash:generateContent", "my-project")
	reply, err := g.Generate(context.Background(), "Summarize the lease")
	require.NoError(t, err)
	assert.Equal(t, "The lease runs five years.", reply)
}

func TestGeminiGenerator_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`},
		{"blocked", http.StatusOK, `{"candidates":[{"finishReason":"SAFETY"}]}`},
		{"empty", http.StatusOK, `{"candidates":[]}`},
		{"malformed", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewGeminiGenerator(srv.Client(), srv.URL, "").Generate(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}
