package chunkmanager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"go.opentelemetry.io/otel"

	"github.com/ingestcluster/core/internal/chunk"
	"github.com/ingestcluster/core/internal/clustererr"
	"github.com/ingestcluster/core/internal/metadata"
	"github.com/ingestcluster/core/internal/metrics"
	"github.com/ingestcluster/core/internal/objectstore"
)

// RollOverChunkTask seals a chunk, uploads its compressed segment files to
// object storage, and publishes the resulting SnapshotMetadata. It threads
// the chunk-data key prefix through its constructor rather than reading a
// process-global constant, per spec.md §9's guidance on global state.
type RollOverChunkTask struct {
	chunkDataPrefix string
	store           objectstore.Client
	snapshots       *metadata.SnapshotMetadataStore
	search          *metadata.SearchMetadataStore
	metrics         *metrics.ChunkManagerMetrics
	log             *slog.Logger
}

// NewRollOverChunkTask builds a task that uploads under
// "<chunkDataPrefix>/<chunkId>/...".
func NewRollOverChunkTask(chunkDataPrefix string, store objectstore.Client, snapshots *metadata.SnapshotMetadataStore, search *metadata.SearchMetadataStore, m *metrics.ChunkManagerMetrics, log *slog.Logger) *RollOverChunkTask {
	return &RollOverChunkTask{
		chunkDataPrefix: chunkDataPrefix,
		store:           store,
		snapshots:       snapshots,
		search:          search,
		metrics:         m,
		log:             log,
	}
}

// Run seals c, uploads its files, and publishes a SnapshotMetadata. It
// returns (true, nil) only once every step succeeds; any failure returns
// false and an error wrapping clustererr.ErrRolloverFailed, per spec.md
// §4.3 step 5 and §7's ROLLOVER_FAILED error kind — there is no automatic
// retry. The caller (Manager.doRollover) latches rollOverFailed on any
// such failure; subsequent writers see clustererr.ErrIngestionStopped, not
// this error directly.
func (t *RollOverChunkTask) Run(ctx context.Context, c *chunk.Chunk) (bool, error) {
	ctx, span := otel.Tracer("chunkmanager").Start(ctx, "RollOverChunkTask.Run")
	defer span.End()

	t.metrics.RolloversStarted.Inc()

	c.MarkReadOnly()
	snap := c.Snapshot()

	files, err := c.SealAndCompress(ctx)
	if err != nil {
		t.metrics.RolloversFailed.Inc()
		t.log.Error("rollover: seal failed", "chunk_id", snap.ID, "error", err)
		return false, fmt.Errorf("seal chunk %s: %w: %w", snap.ID, clustererr.ErrRolloverFailed, err)
	}

	snapshotPath := path.Join(t.chunkDataPrefix, snap.ID)
	for _, f := range files {
		data, err := readFile(f)
		if err != nil {
			t.metrics.RolloversFailed.Inc()
			t.log.Error("rollover: read sealed file failed", "chunk_id", snap.ID, "file", f, "error", err)
			return false, fmt.Errorf("read sealed file %s: %w: %w", f, clustererr.ErrRolloverFailed, err)
		}
		key := path.Join(snapshotPath, filepath.Base(f))
		if err := t.store.Upload(ctx, key, data); err != nil {
			t.metrics.RolloversFailed.Inc()
			t.log.Error("rollover: upload failed", "chunk_id", snap.ID, "key", key, "error", err)
			return false, fmt.Errorf("upload %s: %w: %w", key, clustererr.ErrRolloverFailed, err)
		}
	}

	sm := metadata.SnapshotMetadata{
		Name:             filepath.Base(snapshotPath),
		SnapshotID:       snap.ID,
		SnapshotPath:     snapshotPath,
		StartTimeEpochMs: snap.StartTimeEpochMs,
		EndTimeEpochMs:   snap.EndTimeEpochMs,
		PartitionID:      snap.PartitionID,
		MaxOffset:        snap.LastOffset,
	}
	if err := t.snapshots.Create(ctx, sm); err != nil {
		t.metrics.RolloversFailed.Inc()
		t.log.Error("rollover: publish snapshot failed", "chunk_id", snap.ID, "error", err)
		return false, fmt.Errorf("publish snapshot for chunk %s: %w: %w", snap.ID, clustererr.ErrRolloverFailed, err)
	}

	c.MarkUploaded()
	if err := t.search.Delete(ctx, snap.ID); err != nil {
		// Non-fatal: the upload and snapshot publish already succeeded,
		// so the rollover itself is a success; the stale search entry is
		// left in place.
		t.log.Warn("rollover: removing search metadata failed", "chunk_id", snap.ID, "error", err)
	}

	t.metrics.RolloversSucceeded.Inc()
	t.log.Info("rollover succeeded", "chunk_id", snap.ID, "snapshot_path", snapshotPath, "messages", snap.MessageCount, "bytes", snap.ByteCount)
	return true, nil
}

func readFile(p string) ([]byte, error) {
	return os.ReadFile(p)
}
