// Package snapshot archives raw source payloads that failed to parse, so
// portal markup drift can be diagnosed without re-fetching.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// GCSStore writes parse-failure snapshots to a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a GCS-backed snapshot store.
func NewGCSStore(client *storage.Client, bucket, prefix string) (*GCSStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

// Save uploads the payload and returns its gs:// URI. Objects are keyed by
// source and fetch time so repeated failures from one portal stay distinct.
func (s *GCSStore) Save(ctx context.Context, sourceID string, fetchedAt time.Time, payload []byte) (string, error) {
	path := objectPath(s.prefix, sourceID, fetchedAt)
	writer := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	writer.ContentType = "text/html; charset=utf-8"
	if _, err := io.Copy(writer, bytes.NewReader(payload)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy snapshot: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy snapshot: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}

func objectPath(prefix, sourceID string, fetchedAt time.Time) string {
	name := fmt.Sprintf("%s/%s.html", sourceID, fetchedAt.UTC().Format("20060102T150405Z"))
	if prefix != "" {
		return prefix + "/" + name
	}
	return name
}
