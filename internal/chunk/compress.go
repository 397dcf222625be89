package chunk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// SealAndCompress seals the chunk's index to local files, then zstd-
// compresses each one in place (suffixing ".zst"), returning the absolute
// paths of the compressed files ready for object-storage upload. Grounded
// on the teacher's search-path zstd.NewReader/NewWriter idiom, applied here
// at write time instead of read time.
func (c *Chunk) SealAndCompress(ctx context.Context) ([]string, error) {
	dir := filepath.Join(c.localDir, c.id)
	files, err := c.Seal(ctx)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: seal: %w", c.id, err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: new zstd writer: %w", c.id, err)
	}
	defer enc.Close()

	compressed := make([]string, 0, len(files))
	for _, rel := range files {
		src := filepath.Join(dir, rel)
		raw, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: read %s: %w", c.id, rel, err)
		}

		dstPath := src + ".zst"
		if err := os.WriteFile(dstPath, enc.EncodeAll(raw, nil), 0o644); err != nil {
			return nil, fmt.Errorf("chunk %s: write %s: %w", c.id, dstPath, err)
		}
		compressed = append(compressed, dstPath)
	}
	return compressed, nil
}

// LocalDir returns the directory the chunk seals its files into.
func (c *Chunk) LocalDir() string {
	return filepath.Join(c.localDir, c.id)
}
