// Package gcpclient builds authenticated clients for Google Cloud APIs.
package gcpclient

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// NewHTTPClient returns an OAuth2 client for the cloud-platform scope.
// An empty credentialsFile uses application default credentials.
func NewHTTPClient(ctx context.Context, credentialsFile string) (*http.Client, error) {
	if credentialsFile == "" {
		client, err := google.DefaultClient(ctx, CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("loading default credentials: %w", err)
		}
		return client, nil
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return oauth2.NewClient(ctx, creds.TokenSource), nil
}

// ClientOptions returns the google.golang.org/api options for credentialsFile.
func ClientOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
}
