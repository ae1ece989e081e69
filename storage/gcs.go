package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// GCSDisk keeps files as objects in a Google Cloud Storage bucket.
type GCSDisk struct {
	client *gcs.Client
	bucket string
}

// NewGCSDisk connects with application default credentials and checks the bucket is reachable.
func NewGCSDisk(ctx context.Context, bucket string) (*GCSDisk, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: GCS_BUCKET is not set")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: connect to Google Cloud Storage: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("storage: bucket %s: %w", bucket, err)
	}
	log.Printf("Bucket %s ready", bucket)
	return &GCSDisk{client: client, bucket: bucket}, nil
}

func (d *GCSDisk) Close() error {
	return d.client.Close()
}

func (d *GCSDisk) Exists(ctx context.Context, p string) (bool, error) {
	_, err := d.client.Bucket(d.bucket).Object(p).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *GCSDisk) Get(ctx context.Context, p string) ([]byte, error) {
	r, err := d.client.Bucket(d.bucket).Object(p).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (d *GCSDisk) MimeType(ctx context.Context, p string) (string, error) {
	attrs, err := d.client.Bucket(d.bucket).Object(p).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if attrs.ContentType != "" {
		return attrs.ContentType, nil
	}
	b, err := d.Get(ctx, p)
	if err != nil {
		return "", err
	}
	return mimetype.Detect(b).String(), nil
}

func (d *GCSDisk) Put(ctx context.Context, dir string, data []byte) (string, error) {
	mt := mimetype.Detect(data)
	objectName := path.Join(dir, fmt.Sprintf("%s_%d%s", uuid.NewString(), time.Now().UnixNano(), mt.Extension()))

	w := d.client.Bucket(d.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = mt.String()
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("storage: upload %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: finalize %s: %w", objectName, err)
	}
	return objectName, nil
}

func (d *GCSDisk) Delete(ctx context.Context, p string) error {
	err := d.client.Bucket(d.bucket).Object(p).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return err
	}
	return nil
}
