package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStorage(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSStorage, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) Save(ctx context.Context, name string, data []byte) (string, error) {
	objectName := path.Join(s.prefix, name)

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType(name)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload %s: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

func (s *GCSStorage) List(ctx context.Context) ([]string, error) {
	query := &storage.Query{Prefix: s.prefix}

	var names []string
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		names = append(names, attrs.Name)
	}

	return names, nil
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
