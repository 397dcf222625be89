// Package chunk implements the Chunk lifecycle: an immutable-once-sealed
// unit of indexed log data with a local inverted index and an eventual
// object-storage artifact. The index itself is a narrow interface —
// Lucene-style internals (insert, query, commit, segment merge) are out of
// core scope per spec.md §1 — so this package owns only state, counters,
// and the seal-to-local-files/compress path that the ChunkManager drives.
package chunk

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is a Chunk's lifecycle stage.
type State int

const (
	StateLive State = iota
	StateReadOnly
	StateUploaded
	StateEvicted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "LIVE"
	case StateReadOnly:
		return "READ_ONLY"
	case StateUploaded:
		return "UPLOADED"
	case StateEvicted:
		return "EVICTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Index is the narrow local-index contract a Chunk writes through. Its
// internals (document insert, query, commit, segment merge) are an external
// collaborator per spec.md §1; this interface is all the ChunkManager and
// Chunk need to know about it.
type Index interface {
	// Insert adds one message's bytes to the index.
	Insert(ctx context.Context, msg []byte) error

	// Commit flushes the index to durable local files under dir and
	// returns their paths, relative to dir.
	Commit(ctx context.Context, dir string) ([]string, error)

	// Close releases any resources the index holds (file handles, mmaps).
	Close() error
}

// Chunk is one indexing unit bound to exactly one partition. Exactly one
// Chunk per ChunkManager is ever in StateLive at a time; the write path is
// safe for concurrent callers while live, and becomes a read-only snapshot
// once sealed.
type Chunk struct {
	mu sync.RWMutex

	id          string
	partitionID string
	index       Index
	localDir    string

	state State

	firstOffset int64
	lastOffset  int64
	haveOffset  bool

	messageCount int64 // atomic
	byteCount    int64 // atomic

	startTimeEpochMs int64
	endTimeEpochMs   int64

	lastUpdatedTimeEpochMs int64

	now func() time.Time
}

// New creates a fresh LIVE chunk bound to partitionID, backed by index and
// rooted at localDir for its sealed files.
func New(partitionID string, index Index, localDir string) *Chunk {
	return newWithClock(partitionID, index, localDir, time.Now)
}

// NewWithClock is New with an injectable clock, for deterministic tests of
// rollover-monotonicity invariants.
func NewWithClock(partitionID string, index Index, localDir string, now func() time.Time) *Chunk {
	return newWithClock(partitionID, index, localDir, now)
}

func newWithClock(partitionID string, index Index, localDir string, now func() time.Time) *Chunk {
	return &Chunk{
		id:          uuid.NewString(),
		partitionID: partitionID,
		index:       index,
		localDir:    localDir,
		state:       StateLive,
		now:         now,
	}
}

func (c *Chunk) ID() string          { return c.id }
func (c *Chunk) PartitionID() string { return c.partitionID }

func (c *Chunk) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Chunk) MessageCount() int64 { return atomic.LoadInt64(&c.messageCount) }
func (c *Chunk) ByteCount() int64    { return atomic.LoadInt64(&c.byteCount) }

// Append indexes one message of size bytes at offset, updating the
// partition/offset/time-range tuple. Safe for concurrent callers while the
// chunk is LIVE; returns an error once the chunk has left that state.
func (c *Chunk) Append(ctx context.Context, msg []byte, size int64, offset int64) error {
	c.mu.Lock()
	if c.state != StateLive {
		c.mu.Unlock()
		return fmt.Errorf("chunk %s: append to non-live chunk (state=%s)", c.id, c.state)
	}
	nowMs := c.now().UnixMilli()
	if !c.haveOffset {
		c.firstOffset = offset
		c.startTimeEpochMs = nowMs
		c.haveOffset = true
	}
	c.lastOffset = offset
	c.endTimeEpochMs = nowMs
	c.mu.Unlock()

	if err := c.index.Insert(ctx, msg); err != nil {
		return fmt.Errorf("chunk %s: index insert: %w", c.id, err)
	}

	atomic.AddInt64(&c.messageCount, 1)
	atomic.AddInt64(&c.byteCount, size)
	return nil
}

// Snapshot returns a point-in-time, read-only view of the chunk's
// partition/offset/time-range tuple, safe to call at any lifecycle stage.
type Snapshot struct {
	ID               string
	PartitionID      string
	FirstOffset      int64
	LastOffset       int64
	StartTimeEpochMs int64
	EndTimeEpochMs   int64
	MessageCount     int64
	ByteCount        int64
}

func (c *Chunk) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		ID:               c.id,
		PartitionID:      c.partitionID,
		FirstOffset:      c.firstOffset,
		LastOffset:       c.lastOffset,
		StartTimeEpochMs: c.startTimeEpochMs,
		EndTimeEpochMs:   c.endTimeEpochMs,
		MessageCount:     atomic.LoadInt64(&c.messageCount),
		ByteCount:        atomic.LoadInt64(&c.byteCount),
	}
}

// MarkReadOnly transitions LIVE -> READ_ONLY. Called by RollOverChunkTask.Run
// before it seals the chunk.
func (c *Chunk) MarkReadOnly() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateReadOnly
	c.lastUpdatedTimeEpochMs = c.now().UnixMilli()
}

// MarkUploaded transitions READ_ONLY -> UPLOADED after a successful
// object-storage PUT and snapshot publication.
func (c *Chunk) MarkUploaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateUploaded
}

// Seal flushes the underlying index to local files under the chunk's local
// directory, returning the file paths for upload.
func (c *Chunk) Seal(ctx context.Context) ([]string, error) {
	return c.index.Commit(ctx, c.LocalDir())
}

// Close releases the chunk's index resources. Best-effort: errors are
// returned for the caller to log, never to propagate as a fatal condition,
// per the shutdown path's "errors logged, never thrown" contract.
func (c *Chunk) Close() error {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
	return c.index.Close()
}
