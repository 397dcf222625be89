package chunk

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// MemIndex is a minimal local index: it appends every inserted message's
// raw bytes, newline-delimited, to one in-memory buffer and flushes that
// buffer to a single segment file on Commit. It stands in for the
// Lucene-style index internals spec.md §1 places out of core scope —
// insert/query/commit/segment-merge semantics belong to that external
// collaborator, not to this package.
type MemIndex struct {
	mu   sync.Mutex
	docs [][]byte
}

// NewMemIndex returns an empty MemIndex.
func NewMemIndex() *MemIndex {
	return &MemIndex{}
}

func (m *MemIndex) Insert(ctx context.Context, msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(msg))
	copy(cp, msg)
	m.docs = append(m.docs, cp)
	return nil
}

// Commit writes every inserted message to dir/segment.log, one per line,
// and returns that single relative path.
func (m *MemIndex) Commit(ctx context.Context, dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	const fileName = "segment.log"
	f, err := os.Create(filepath.Join(dir, fileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for _, d := range m.docs {
		if _, err := f.Write(d); err != nil {
			return nil, err
		}
		if _, err := f.Write([]byte("\n")); err != nil {
			return nil, err
		}
	}
	return []string{fileName}, nil
}

func (m *MemIndex) Close() error {
	return nil
}
