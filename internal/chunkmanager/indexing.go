package chunkmanager

import (
	"context"
	"log/slog"

	"github.com/ingestcluster/core/internal/metrics"
)

// IndexingManager is the live-ingestion ChunkManager variant: a
// single-threaded writer with strict one-rollover-in-flight. A rollover
// failure on the affected partition stops ingestion immediately — there is
// exactly one rollover slot, so a second rollover can never be submitted
// while the first is still running.
type IndexingManager struct {
	*Manager
}

// NewIndexingManager builds an IndexingManager with exactly one rollover
// slot.
func NewIndexingManager(factory *ChunkFactory, strategy RolloverStrategy, task *RollOverChunkTask, m *metrics.ChunkManagerMetrics, log *slog.Logger) *IndexingManager {
	return &IndexingManager{Manager: newManager(factory, strategy, task, 1, m, log)}
}

// AddMessage is the indexer's write path: spec.md §4.3 steps 1-4, verbatim.
func (im *IndexingManager) AddMessage(ctx context.Context, msg []byte, size int64, partitionID string, offset int64) error {
	return im.Manager.AddMessage(ctx, msg, size, partitionID, offset)
}
