package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"
)

// B2Storage stores attachment content in a Backblaze B2 bucket.
type B2Storage struct {
	client *b2.Client
	bucket *b2.Bucket
}

// NewB2Storage connects to B2 and resolves the bucket.
func NewB2Storage(ctx context.Context, accountID, appKey, bucketName string) (*B2Storage, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &B2Storage{client: client, bucket: bucket}, nil
}

// Save writes the content under the given name.
func (s *B2Storage) Save(ctx context.Context, name string, r io.Reader) error {
	obj := s.bucket.Object(name)
	w := obj.NewWriter(ctx)

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	return nil
}

// Open returns the content stored under the given name.
func (s *B2Storage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj := s.bucket.Object(name)
	return obj.NewReader(ctx), nil
}
