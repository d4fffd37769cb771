package storage

import (
	"context"
	"fmt"

	"firewatch/internal/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore uploads images to a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	logger *logger.Logger
}

// NewGCSStore creates a client from a service-account file, or from
// application default credentials when credentialsFile is empty.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string, logger *logger.Logger, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	logger.Info("GCS client initialized. Bucket: %s", bucket)
	return &GCSStore{client: client, bucket: bucket, logger: logger}, nil
}

// Put uploads data as image/jpeg and returns its public URL.
func (s *GCSStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "image/jpeg"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	url := PublicURL(s.bucket, name)
	s.logger.Info("Image uploaded to GCS: %s", url)
	return url, nil
}

// Close releases the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// PublicURL is the storage.googleapis.com address of an object.
func PublicURL(bucket, name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, name)
}
