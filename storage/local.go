package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// LocalDisk keeps files under a root directory on the local filesystem.
type LocalDisk struct {
	root string
}

func NewLocalDisk(root string) (*LocalDisk, error) {
	if strings.TrimSpace(root) == "" {
		root = filepath.Join("storage", "app", "public")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root %s: %w", root, err)
	}
	return &LocalDisk{root: root}, nil
}

func (d *LocalDisk) Exists(_ context.Context, p string) (bool, error) {
	full, err := d.resolve(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (d *LocalDisk) Get(_ context.Context, p string) ([]byte, error) {
	full, err := d.resolve(p)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (d *LocalDisk) MimeType(_ context.Context, p string) (string, error) {
	full, err := d.resolve(p)
	if err != nil {
		return "", err
	}
	mt, err := mimetype.DetectFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}

func (d *LocalDisk) Put(_ context.Context, dir string, data []byte) (string, error) {
	name := uuid.NewString() + mimetype.Detect(data).Extension()
	rel := strings.TrimPrefix(path.Clean("/"+path.Join(dir, name)), "/")
	full, err := d.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}

	// write to a temp file first so a reader never sees a partial photo
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	return rel, nil
}

func (d *LocalDisk) Delete(_ context.Context, p string) error {
	full, err := d.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// resolve maps a relative storage path to a file under root, rejecting escapes.
func (d *LocalDisk) resolve(p string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(p))
	if clean == "/" {
		return "", fmt.Errorf("storage: empty path")
	}
	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}
