// Package storage keeps damage photos on a named disk: the local "public" directory or a
// Google Cloud Storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get and MimeType when nothing is stored at the path.
var ErrNotFound = errors.New("storage: object not found")

// Disk stores and retrieves photo blobs by relative path.
type Disk interface {
	Exists(ctx context.Context, path string) (bool, error)
	Get(ctx context.Context, path string) ([]byte, error)
	MimeType(ctx context.Context, path string) (string, error)
	// Put stores data under dir with a generated name and returns the new path.
	Put(ctx context.Context, dir string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
}

// Options selects and configures a disk.
type Options struct {
	Disk      string // "public", "local" or "gcs"
	Root      string // local disks
	GCSBucket string // gcs disk
}

// Open returns the disk named by opts.Disk.
func Open(ctx context.Context, opts Options) (Disk, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Disk)) {
	case "", "public", "local":
		return NewLocalDisk(opts.Root)
	case "gcs":
		return NewGCSDisk(ctx, opts.GCSBucket)
	default:
		return nil, fmt.Errorf("storage: unknown disk %q", opts.Disk)
	}
}
