package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/hugh/lexvault/pkg/config"
	"github.com/hugh/lexvault/pkg/gcpclient"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCS stores blobs in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCS(ctx context.Context, cfg *config.StorageConfig, credentialsFile string) (*GCS, error) {
	opts := gcpclient.ClientOptions(credentialsFile)
	if cfg.Endpoint != "" {
		// Emulators such as fake-gcs-server take no credentials.
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
		if credentialsFile == "" {
			opts = append(opts, option.WithoutAuthentication())
		}
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	return &GCS{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (g *GCS) object(key string) (*storage.ObjectHandle, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	return g.client.Bucket(g.bucket).Object(joinPrefix(g.prefix, cleaned)), nil
}

func (g *GCS) Put(ctx context.Context, key string, data []byte) error {
	obj, err := g.object(key)
	if err != nil {
		return err
	}

	w := obj.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/octet-stream"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("writing object %s: %w", obj.ObjectName(), err)
	}
	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return fmt.Errorf("%w: %s", ErrExists, key)
		}
		return fmt.Errorf("writing object %s: %w", obj.ObjectName(), err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := g.object(key)
	if err != nil {
		return nil, err
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("opening object %s: %w", obj.ObjectName(), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", obj.ObjectName(), err)
	}
	return data, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	obj, err := g.object(key)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting object %s: %w", obj.ObjectName(), err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
