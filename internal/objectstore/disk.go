package objectstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Download for a missing key.
var ErrNotFound = errors.New("objectstore: key not found")

// DiskClient implements Client over a local directory tree, one file per
// key with '/' path separators mapped onto the filesystem. It exists
// because the pack carries no production object-storage SDK (see package
// doc); production deployments would swap this for a real blob client
// behind the same Client interface.
type DiskClient struct {
	mu   sync.Mutex
	root string
}

// NewDiskClient returns a Client rooted at root, creating it if necessary.
func NewDiskClient(root string) (*DiskClient, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DiskClient{root: root}, nil
}

func (d *DiskClient) path(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(key))
}

func (d *DiskClient) Upload(ctx context.Context, key string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (d *DiskClient) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (d *DiskClient) List(ctx context.Context, prefix string) ([]string, error) {
	root := d.path(prefix)
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var keys []string
	if !info.IsDir() {
		rel, err := filepath.Rel(d.root, root)
		if err != nil {
			return nil, err
		}
		return []string{filepath.ToSlash(rel)}, nil
	}

	err = filepath.WalkDir(root, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (d *DiskClient) Delete(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := os.Remove(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
