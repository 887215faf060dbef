package gcpclient

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientOptions(t *testing.T) {
	assert.Empty(t, ClientOptions(""))
	assert.Len(t, ClientOptions("/etc/sa.json"), 1)
}

func TestNewHTTPClient_BadCredentialsFile(t *testing.T) {
	_, err := NewHTTPClient(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "sa.json")
	assert.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	_, err = NewHTTPClient(context.Background(), path)
	assert.Error(t, err)
}
