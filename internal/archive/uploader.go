// Package archive uploads cumulative dataset files to object storage. It is
// the downstream collaborator of the merge engine: its failures never roll
// back a merge.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jonesrussell/gpspull/internal/config"
	"github.com/jonesrussell/gpspull/internal/logger"
)

// ErrDisabled is returned when upload is attempted with storage disabled.
var ErrDisabled = errors.New("object storage is disabled")

// Uploader pushes dataset files to an object-storage bucket.
type Uploader struct {
	client *minio.Client
	cfg    config.Storage
	log    logger.Interface
}

// NewUploader creates an uploader from the storage configuration.
func NewUploader(cfg config.Storage, log logger.Interface) (*Uploader, error) {
	u := &Uploader{
		cfg: cfg,
		log: log.WithComponent("archive"),
	}

	if !cfg.Enabled {
		u.log.Info("object storage upload disabled")
		return u, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	u.client = client

	u.log.Info("object storage uploader initialized",
		"endpoint", cfg.Endpoint,
		"bucket", cfg.Bucket)
	return u, nil
}

// Upload pushes the file at path to the configured bucket under its base
// name, tagging it with the upload time.
func (u *Uploader) Upload(ctx context.Context, path string) error {
	if u.client == nil {
		return ErrDisabled
	}

	objectKey := filepath.Base(path)
	info, err := u.client.FPutObject(ctx, u.cfg.Bucket, objectKey, path, minio.PutObjectOptions{
		ContentType: "text/csv",
		UserMetadata: map[string]string{
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}

	u.log.Info("dataset uploaded",
		"object_key", objectKey,
		"size", info.Size,
		"bucket", u.cfg.Bucket)
	return nil
}
