package chunkmanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestcluster/core/internal/chunk"
	"github.com/ingestcluster/core/internal/clustererr"
	"github.com/ingestcluster/core/internal/coordination"
	"github.com/ingestcluster/core/internal/logging"
	"github.com/ingestcluster/core/internal/metadata"
	"github.com/ingestcluster/core/internal/metrics"
	"github.com/ingestcluster/core/internal/objectstore"
)

func testMetrics() *metrics.ChunkManagerMetrics {
	return metrics.NewChunkManagerMetricsWith(prometheus.NewRegistry())
}

func newTestManager(t *testing.T, maxBytes, maxMessages int64) (*IndexingManager, *metadata.SnapshotMetadataStore) {
	t.Helper()

	client := coordination.NewMemoryClient()
	snapshots := metadata.NewSnapshotMetadataStore(client, "snapshots", logging.NewTest())
	search := metadata.NewSearchMetadataStore(client, "search", logging.NewTest())

	store, err := objectstore.NewDiskClient(t.TempDir())
	require.NoError(t, err)

	factory := NewChunkFactory(t.TempDir(), search, "localhost:9999", nil, logging.NewTest())
	strategy := NewThresholdRolloverStrategy(maxBytes, maxMessages)
	task := NewRollOverChunkTask("chunks", store, snapshots, search, testMetrics(), logging.NewTest())

	return NewIndexingManager(factory, strategy, task, testMetrics(), logging.NewTest()), snapshots
}

func TestIndexingManager_RolloverHappyPath(t *testing.T) {
	mgr, snapshots := newTestManager(t, 10, 1_000_000)
	ctx := context.Background()

	require.NoError(t, mgr.AddMessage(ctx, []byte("0123456789"), 10, "partition-0", 7))

	assert.Eventually(t, func() bool {
		return len(snapshots.ListCached(ctx)) == 1
	}, time.Second, 5*time.Millisecond)

	snaps := snapshots.ListCached(ctx)
	require.Len(t, snaps, 1)
	assert.Equal(t, "partition-0", snaps[0].PartitionID)
	assert.Equal(t, int64(7), snaps[0].MaxOffset)

	assert.Nil(t, mgr.ActiveChunk(), "active chunk is cleared immediately on rollover")
	assert.Eventually(t, func() bool {
		require.NoError(t, mgr.AddMessage(ctx, []byte("x"), 1, "partition-0", 8))
		return mgr.ActiveChunk() != nil
	}, time.Second, 5*time.Millisecond, "a fresh LIVE chunk is allocated on the next write")
}

func TestIndexingManager_RolloverFailureStopsIngestion(t *testing.T) {
	client := coordination.NewMemoryClient()
	snapshots := metadata.NewSnapshotMetadataStore(client, "snapshots", logging.NewTest())
	search := metadata.NewSearchMetadataStore(client, "search", logging.NewTest())

	// A store whose Upload always fails simulates a rollover failure.
	store := &failingStore{}

	factory := NewChunkFactory(t.TempDir(), search, "localhost:9999", nil, logging.NewTest())
	strategy := NewThresholdRolloverStrategy(5, 1_000_000)
	task := NewRollOverChunkTask("chunks", store, snapshots, search, testMetrics(), logging.NewTest())
	mgr := NewIndexingManager(factory, strategy, task, testMetrics(), logging.NewTest())

	ctx := context.Background()
	require.NoError(t, mgr.AddMessage(ctx, []byte("hello"), 5, "partition-0", 1))

	require.Eventually(t, func() bool {
		return mgr.RollOverFailed()
	}, time.Second, 5*time.Millisecond)

	err := mgr.AddMessage(ctx, []byte("x"), 1, "partition-0", 2)
	assert.ErrorIs(t, err, clustererr.ErrIngestionStopped)

	ok := mgr.WaitForRollovers(ctx)
	assert.False(t, ok)
}

func TestIndexingManager_ShutdownClosesAllChunks(t *testing.T) {
	mgr, _ := newTestManager(t, 1_000_000, 1_000_000)
	ctx := context.Background()

	require.NoError(t, mgr.AddMessage(ctx, []byte("x"), 1, "partition-0", 0))
	require.True(t, mgr.WaitForRollovers(ctx))

	mgr.ShutDown()
	assert.True(t, mgr.ReadOnly())

	chunks := mgr.ChunkList()
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, chunk.StateClosed, c.State())
	}
}

func TestRollOverChunkTask_RunTwiceIsIdempotent(t *testing.T) {
	client := coordination.NewMemoryClient()
	snapshots := metadata.NewSnapshotMetadataStore(client, "snapshots", logging.NewTest())
	search := metadata.NewSearchMetadataStore(client, "search", logging.NewTest())

	store, err := objectstore.NewDiskClient(t.TempDir())
	require.NoError(t, err)

	factory := NewChunkFactory(t.TempDir(), search, "localhost:9999", nil, logging.NewTest())
	task := NewRollOverChunkTask("chunks", store, snapshots, search, testMetrics(), logging.NewTest())

	ctx := context.Background()
	c := factory.MakeChunk("partition-0")
	require.NoError(t, c.Append(ctx, []byte("hello"), 5, 1))

	ok, err := task.Run(ctx, c)
	require.NoError(t, err)
	require.True(t, ok)

	// ListCached is fed asynchronously by a watch, so wait for it to
	// observe the published snapshot before inspecting it.
	require.Eventually(t, func() bool {
		return len(snapshots.ListCached(ctx)) == 1
	}, time.Second, 5*time.Millisecond)

	snaps := snapshots.ListCached(ctx)
	require.Len(t, snaps, 1)
	firstID := snaps[0].SnapshotID

	// A retried Run on the same already-sealed chunk must not mint a new
	// snapshot identity: the coordination store rejects the duplicate
	// create, but the snapshot that does exist keeps the same id.
	_, err = task.Run(ctx, c)
	assert.ErrorIs(t, err, clustererr.ErrRolloverFailed)

	snaps = snapshots.ListCached(ctx)
	require.Len(t, snaps, 1, "exactly one SnapshotMetadata must exist after the retried rollover")
	assert.Equal(t, firstID, snaps[0].SnapshotID)
}

// failingStore always fails Upload, simulating an object-storage outage
// during rollover.
type failingStore struct{}

func (failingStore) Upload(ctx context.Context, key string, data []byte) error {
	return errors.New("simulated upload failure")
}
func (failingStore) Download(ctx context.Context, key string) ([]byte, error) { return nil, nil }
func (failingStore) List(ctx context.Context, prefix string) ([]string, error) { return nil, nil }
func (failingStore) Delete(ctx context.Context, key string) error              { return nil }
