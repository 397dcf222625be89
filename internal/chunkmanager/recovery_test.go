package chunkmanager

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestcluster/core/internal/coordination"
	"github.com/ingestcluster/core/internal/logging"
	"github.com/ingestcluster/core/internal/metadata"
	"github.com/ingestcluster/core/internal/objectstore"
)

func newTestRecoveryManager(t *testing.T, rolloverWorkers int, maxBytes, maxMessages int64) (*RecoveryManager, *metadata.SnapshotMetadataStore) {
	t.Helper()

	client := coordination.NewMemoryClient()
	snapshots := metadata.NewSnapshotMetadataStore(client, "snapshots", logging.NewTest())
	search := metadata.NewSearchMetadataStore(client, "search", logging.NewTest())

	store, err := objectstore.NewDiskClient(t.TempDir())
	require.NoError(t, err)

	factory := NewChunkFactory(t.TempDir(), search, "localhost:9999", nil, logging.NewTest())
	strategy := NewThresholdRolloverStrategy(maxBytes, maxMessages)
	task := NewRollOverChunkTask("chunks", store, snapshots, search, testMetrics(), logging.NewTest())

	return NewRecoveryManager(factory, strategy, task, rolloverWorkers, testMetrics(), logging.NewTest()), snapshots
}

// Multiple partition-writer goroutines may call AddMessage concurrently;
// the shared Manager's critical sections must serialize rollover triggers
// without losing or duplicating any one of them, and — since a Chunk is
// permanently bound to the partition it was created for — a chunk must
// never receive a message for any partition other than the one stamped on
// its SnapshotMetadata.
func TestRecoveryManager_ConcurrentWritersAcrossPartitions(t *testing.T) {
	client := coordination.NewMemoryClient()
	snapshots := metadata.NewSnapshotMetadataStore(client, "snapshots", logging.NewTest())
	search := metadata.NewSearchMetadataStore(client, "search", logging.NewTest())

	store, err := objectstore.NewDiskClient(t.TempDir())
	require.NoError(t, err)

	factory := NewChunkFactory(t.TempDir(), search, "localhost:9999", nil, logging.NewTest())
	strategy := NewThresholdRolloverStrategy(20, 1_000_000)
	task := NewRollOverChunkTask("chunks", store, snapshots, search, testMetrics(), logging.NewTest())
	mgr := NewRecoveryManager(factory, strategy, task, 3, testMetrics(), logging.NewTest())

	ctx := context.Background()

	const writers = 5
	const messagesPerWriter = 10

	partitionID := func(w int) string { return fmt.Sprintf("partition-%d", w) }

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(partition int) {
			defer wg.Done()
			// Each message's payload is its own partition id, so any
			// cross-partition mixing inside one chunk shows up directly
			// in the uploaded file contents, not just in counters.
			marker := []byte(partitionID(partition))
			for i := 0; i < messagesPerWriter; i++ {
				err := mgr.AddMessage(ctx, marker, int64(len(marker)), partitionID(partition), int64(i))
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	require.True(t, mgr.WaitForRollovers(ctx))

	// Read each chunk's snapshot directly rather than through the
	// asynchronously filled ListCached view: every chunk the manager
	// created has been rolled over and published by now.
	var snaps []metadata.SnapshotMetadata
	for _, c := range mgr.ChunkList() {
		snap, err := snapshots.Get(ctx, c.ID())
		require.NoError(t, err)
		snaps = append(snaps, snap)
	}
	require.NotEmpty(t, snaps)

	seenPartitions := make(map[string]bool)
	for _, snap := range snaps {
		assert.GreaterOrEqual(t, snap.MaxOffset, int64(0))
		assert.Less(t, snap.MaxOffset, int64(messagesPerWriter))
		seenPartitions[snap.PartitionID] = true

		data, err := store.Download(ctx, path.Join(snap.SnapshotPath, "segment.log.zst"))
		require.NoError(t, err)

		dec, err := zstd.NewReader(nil)
		require.NoError(t, err)
		raw, err := dec.DecodeAll(data, nil)
		dec.Close()
		require.NoError(t, err)

		for _, line := range strings.Split(strings.TrimRight(string(raw), "\n"), "\n") {
			if line == "" {
				continue
			}
			assert.Equal(t, snap.PartitionID, line,
				"chunk for partition %s must never contain another partition's message", snap.PartitionID)
		}
	}

	for w := 0; w < writers; w++ {
		assert.True(t, seenPartitions[partitionID(w)], "expected at least one snapshot for %s", partitionID(w))
	}
}

func TestRecoveryManager_WaitForRolloversDrainsFinalChunk(t *testing.T) {
	mgr, snapshots := newTestRecoveryManager(t, 1, 1_000_000, 1_000_000)
	ctx := context.Background()

	require.NoError(t, mgr.AddMessage(ctx, []byte("x"), 1, "partition-0", 0))
	require.NotNil(t, mgr.ActiveChunk(), "below threshold, the chunk stays active until shutdown")

	require.True(t, mgr.WaitForRollovers(ctx))
	assert.Nil(t, mgr.ActiveChunk())

	assert.Eventually(t, func() bool {
		return len(snapshots.ListCached(ctx)) == 1
	}, time.Second, 5*time.Millisecond)
}
