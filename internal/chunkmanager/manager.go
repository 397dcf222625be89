package chunkmanager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ingestcluster/core/internal/chunk"
	"github.com/ingestcluster/core/internal/clustererr"
	"github.com/ingestcluster/core/internal/metrics"
)

// DefaultShutdownDeadline bounds how long waitForRollovers blocks draining
// the rollover executor, per spec.md §4.3's shutdown path.
const DefaultShutdownDeadline = 10 * time.Minute

// Manager is the shared ChunkManager state machine (spec.md §4.3): it owns
// the chunk list, the single mutable active chunk, the live gauges, and
// the readOnly/rollOverFailed flags. IndexingManager and RecoveryManager
// wrap it, differing only in how many rollovers they allow in flight at
// once and in how the caller dispatches writes.
type Manager struct {
	mu          sync.Mutex
	chunkList   []*chunk.Chunk
	activeChunk *chunk.Chunk

	factory  *ChunkFactory
	strategy RolloverStrategy
	task     *RollOverChunkTask
	metrics  *metrics.ChunkManagerMetrics
	log      *slog.Logger

	readOnly       atomic.Bool
	rollOverFailed atomic.Bool

	liveMessages atomic.Int64
	liveBytes    atomic.Int64

	rolloverSlots chan struct{} // bounds concurrent in-flight rollovers
	rolloverWG    sync.WaitGroup

	shutdownDeadline time.Duration
}

// newManager builds the shared state machine. rolloverWorkers bounds how
// many RollOverChunkTasks may run concurrently; the indexer variant passes
// 1 for strict one-rollover-in-flight, the recovery variant passes its
// configured worker count, and that many tasks then run at once.
func newManager(factory *ChunkFactory, strategy RolloverStrategy, task *RollOverChunkTask, rolloverWorkers int, m *metrics.ChunkManagerMetrics, log *slog.Logger) *Manager {
	if rolloverWorkers < 1 {
		rolloverWorkers = 1
	}
	return &Manager{
		factory:          factory,
		strategy:         strategy,
		task:             task,
		metrics:          m,
		log:              log,
		rolloverSlots:    make(chan struct{}, rolloverWorkers),
		shutdownDeadline: DefaultShutdownDeadline,
	}
}

// AddMessage is the write path (spec.md §4.3): it fails fast once the
// manager is read-only or a prior rollover has failed, otherwise it
// allocates the active chunk on first write, appends msg, and triggers
// rollover if the configured strategy says to.
func (m *Manager) AddMessage(ctx context.Context, msg []byte, size int64, partitionID string, offset int64) error {
	if m.readOnly.Load() || m.rollOverFailed.Load() {
		return clustererr.ErrIngestionStopped
	}

	var c *chunk.Chunk
	for {
		var err error
		c, err = m.activeOrCreate(ctx, partitionID)
		if err != nil {
			return err
		}

		// Append under m.mu while c is still the active chunk, so a
		// concurrent doRollover cannot hand c to the rollover task (which
		// seals it) between the lookup above and this append.
		m.mu.Lock()
		if m.activeChunk != c {
			m.mu.Unlock()
			continue
		}
		err = c.Append(ctx, msg, size, offset)
		m.mu.Unlock()
		if err != nil {
			return fmt.Errorf("chunkmanager: append: %w", err)
		}
		break
	}

	messages := m.liveMessages.Add(1)
	bytes := m.liveBytes.Add(size)
	m.metrics.LiveMessagesIndexed.Set(float64(messages))
	m.metrics.LiveBytesIndexed.Set(float64(bytes))

	if m.strategy.ShouldRollOver(bytes, messages) {
		m.doRollover(ctx, c)
	}
	return nil
}

// activeOrCreate returns the chunk writes for partitionID should land in.
// A Chunk is bound to exactly one partition for its whole life (it never
// re-derives or re-checks it on Append), and the manager holds exactly one
// LIVE chunk at a time (spec.md §3) — so if the active chunk belongs to a
// different partition, it must be rolled over before a chunk for
// partitionID can become active. This matters for RecoveryManager, whose
// callers write for many partitions concurrently against one Manager.
func (m *Manager) activeOrCreate(ctx context.Context, partitionID string) (*chunk.Chunk, error) {
	for {
		m.mu.Lock()
		active := m.activeChunk
		if active != nil {
			if active.PartitionID() == partitionID {
				m.mu.Unlock()
				return active, nil
			}
			m.mu.Unlock()
			m.doRollover(ctx, active)
			continue
		}

		c := m.factory.MakeChunk(partitionID)
		if err := m.factory.PostCreate(ctx, c); err != nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("chunkmanager: post-create: %w", err)
		}
		m.chunkList = append(m.chunkList, c)
		m.activeChunk = c
		m.mu.Unlock()
		return c, nil
	}
}

// doRollover clears the active chunk, resets the live gauges, and submits
// the rollover task asynchronously. It never blocks the writer on the
// upload itself — only on acquiring a free rollover slot, which is how the
// indexer variant enforces strict one-rollover-in-flight.
//
// Concurrent callers may race to roll over the same chunk (two writers
// crossing the threshold on the same append, or two partition switches
// observing the same stale active chunk before either's rollover takes
// effect). Only the caller that actually transitions activeChunk away from
// c proceeds; everyone else is a no-op, so c is never submitted to the
// rollover task twice and the gauges are never reset out from under
// whatever chunk has since become active.
func (m *Manager) doRollover(ctx context.Context, c *chunk.Chunk) {
	m.mu.Lock()
	if m.activeChunk != c {
		m.mu.Unlock()
		return
	}
	m.activeChunk = nil
	m.mu.Unlock()

	m.liveMessages.Store(0)
	m.liveBytes.Store(0)
	m.metrics.LiveMessagesIndexed.Set(0)
	m.metrics.LiveBytesIndexed.Set(0)

	m.rolloverSlots <- struct{}{}
	m.rolloverWG.Add(1)
	go func() {
		defer m.rolloverWG.Done()
		defer func() { <-m.rolloverSlots }()

		ok, err := m.task.Run(ctx, c)
		if !ok || err != nil {
			m.rollOverFailed.Store(true)
			m.log.Error("rollover failed, latching ingestion stop", "chunk_id", c.ID(), "error", err)
		}
	}()
}

// WaitForRollovers marks the manager read-only, rolls over any still-active
// chunk, and blocks until every in-flight rollover drains or the deadline
// elapses. It returns true iff no rollover failed.
func (m *Manager) WaitForRollovers(ctx context.Context) bool {
	m.readOnly.Store(true)

	m.mu.Lock()
	active := m.activeChunk
	m.mu.Unlock()
	if active != nil {
		m.doRollover(ctx, active)
	}

	done := make(chan struct{})
	go func() {
		m.rolloverWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(m.shutdownDeadline):
		m.log.Error("waitForRollovers: deadline exceeded, rollovers still in flight")
		return false
	}

	return !m.rollOverFailed.Load()
}

// ShutDown closes every chunk in the chunk list, best-effort: errors are
// logged, never returned, so a partial failure never leaks the rest of the
// chunks' resources.
func (m *Manager) ShutDown() {
	m.mu.Lock()
	chunks := append([]*chunk.Chunk(nil), m.chunkList...)
	m.mu.Unlock()

	for _, c := range chunks {
		if err := c.Close(); err != nil {
			m.log.Error("chunk close failed during shutdown", "chunk_id", c.ID(), "error", err)
		}
	}
}

// ActiveChunk returns the currently live chunk, or nil if none has been
// allocated yet.
func (m *Manager) ActiveChunk() *chunk.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeChunk
}

// ChunkList returns a snapshot of every chunk the manager has ever owned.
func (m *Manager) ChunkList() []*chunk.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*chunk.Chunk(nil), m.chunkList...)
}

// ReadOnly reports whether the manager has stopped accepting writes.
func (m *Manager) ReadOnly() bool { return m.readOnly.Load() }

// RollOverFailed reports whether a rollover has latched a fatal failure.
func (m *Manager) RollOverFailed() bool { return m.rollOverFailed.Load() }
