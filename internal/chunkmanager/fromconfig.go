package chunkmanager

import (
	"log/slog"

	"github.com/ingestcluster/core/internal/config"
	"github.com/ingestcluster/core/internal/metadata"
	"github.com/ingestcluster/core/internal/metrics"
	"github.com/ingestcluster/core/internal/objectstore"
)

// ChunkDataPrefix is the object-storage key prefix every chunk's files are
// uploaded under: "<ChunkDataPrefix>/<chunkId>/<file>". It is threaded
// through the From*Config constructors below rather than read from a
// process-global constant, per spec.md §9's guidance on global state.
const ChunkDataPrefix = "chunks"

// NewIndexingManagerFromConfig wires a ChunkFactory, ThresholdRolloverStrategy,
// and RollOverChunkTask from cfg, mirroring the original's
// RecoveryChunkManager.fromConfig factory pattern (see SPEC_FULL.md) so
// callers don't hand-assemble every collaborator.
func NewIndexingManagerFromConfig(cfg *config.IndexerConfig, store objectstore.Client, snapshots *metadata.SnapshotMetadataStore, search *metadata.SearchMetadataStore, advertiseAddr string, m *metrics.ChunkManagerMetrics, log *slog.Logger) *IndexingManager {
	factory := NewChunkFactory(cfg.LocalChunkRoot, search, advertiseAddr, nil, log)
	strategy := NewThresholdRolloverStrategy(cfg.MaxBytesPerChunk, cfg.MaxMessagesPerChunk)
	task := NewRollOverChunkTask(ChunkDataPrefix, store, snapshots, search, m, log)
	return NewIndexingManager(factory, strategy, task, m, log)
}

// NewRecoveryManagerFromConfig is the RecoveryManager analogue of
// NewIndexingManagerFromConfig.
func NewRecoveryManagerFromConfig(cfg *config.RecoveryConfig, store objectstore.Client, snapshots *metadata.SnapshotMetadataStore, search *metadata.SearchMetadataStore, advertiseAddr string, m *metrics.ChunkManagerMetrics, log *slog.Logger) *RecoveryManager {
	factory := NewChunkFactory(cfg.LocalChunkRoot, search, advertiseAddr, nil, log)
	strategy := NewThresholdRolloverStrategy(cfg.MaxBytesPerChunk, cfg.MaxMessagesPerChunk)
	task := NewRollOverChunkTask(ChunkDataPrefix, store, snapshots, search, m, log)
	return NewRecoveryManager(factory, strategy, task, cfg.RolloverWorkers, m, log)
}
