package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const uploadTimeout = 5 * time.Minute

// GCSArchiver implements the Archiver interface for Google Cloud Storage
type GCSArchiver struct {
	client        *storage.Client
	bucket        string
	objectPrefix  string
	publicBaseURL string
}

// NewGCSArchiver creates a new GCSArchiver instance. Without a credentials
// file the application default credentials are used.
func NewGCSArchiver(ctx context.Context, bucketName, objectPrefix, publicBaseURL, credentialsFile string, opts ...option.ClientOption) (*GCSArchiver, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSArchiver{
		client:        client,
		bucket:        bucketName,
		objectPrefix:  objectPrefix,
		publicBaseURL: publicBaseURL,
	}, nil
}

func (a *GCSArchiver) objectPath(objectName string) string {
	if a.objectPrefix != "" {
		return a.objectPrefix + "/" + objectName
	}
	return objectName
}

// Archive uploads a local file and returns its public URL or object name
func (a *GCSArchiver) Archive(ctx context.Context, localPath, objectName string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer f.Close()

	objectName = a.objectPath(objectName)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	wc := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	if _, err = io.Copy(wc, f); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to copy file to GCS: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}

	slog.Info("Archived audio file", "bucket", a.bucket, "object", objectName)

	if a.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", a.publicBaseURL, objectName), nil
	}
	return objectName, nil
}

// Exists checks whether an object was already archived
func (a *GCSArchiver) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := a.client.Bucket(a.bucket).Object(a.objectPath(objectName)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

// List returns archived object names under the prefix, with the prefix kept
func (a *GCSArchiver) List(ctx context.Context) ([]string, error) {
	prefix := ""
	if a.objectPrefix != "" {
		prefix = a.objectPrefix + "/"
	}

	it := a.client.Bucket(a.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var results []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}
		results = append(results, attrs.Name)
	}

	return results, nil
}

// Close closes the GCS client
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

var (
	_ Archiver     = (*GCSArchiver)(nil)
	_ ArchiveIndex = (*GCSArchiver)(nil)
)
