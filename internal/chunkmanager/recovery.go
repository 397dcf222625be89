package chunkmanager

import (
	"context"
	"log/slog"

	"github.com/ingestcluster/core/internal/metrics"
)

// RecoveryManager is the bounded re-indexing ChunkManager variant:
// multiple writer goroutines may call AddMessage concurrently (each for a
// different partition), so multiple rollovers may be queued at once even
// though the underlying rollover executor remains single-threaded by
// default — upload is the bottleneck, not index sealing.
type RecoveryManager struct {
	*Manager
}

// NewRecoveryManager builds a RecoveryManager with rolloverWorkers
// concurrent rollover slots (1 by default, matching the spec's
// single-threaded-upload-executor guidance unless the caller widens it).
func NewRecoveryManager(factory *ChunkFactory, strategy RolloverStrategy, task *RollOverChunkTask, rolloverWorkers int, m *metrics.ChunkManagerMetrics, log *slog.Logger) *RecoveryManager {
	return &RecoveryManager{Manager: newManager(factory, strategy, task, rolloverWorkers, m, log)}
}

// AddMessage is safe for concurrent callers across partitions: the
// embedded Manager's activeOrCreate/doRollover critical sections serialize
// the parts that must be, and activeOrCreate rolls the active chunk over
// whenever a caller's partitionID doesn't match it, so messages for two
// different partitions are never appended into the same chunk. Driving
// many partitions concurrently against one RecoveryManager this way
// forces a rollover on every partition switch; callers that want each
// partition's writes batched into larger chunks should give each
// partition its own RecoveryManager instead of sharing one.
func (rm *RecoveryManager) AddMessage(ctx context.Context, msg []byte, size int64, partitionID string, offset int64) error {
	return rm.Manager.AddMessage(ctx, msg, size, partitionID, offset)
}
