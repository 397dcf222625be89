// Package chunkmanager implements the ChunkManager state machine (spec.md
// §4.3): ownership of the chunk list, the single mutable active chunk,
// asynchronous rollover, and the indexer/recovery variants that share that
// machinery.
package chunkmanager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ingestcluster/core/internal/chunk"
	"github.com/ingestcluster/core/internal/metadata"
)

// ChunkFactory builds new writable chunks bound to a partition ID and the
// metadata stores the ChunkManager uses to advertise them.
type ChunkFactory struct {
	localChunkRoot string
	searchStore    *metadata.SearchMetadataStore
	advertiseAddr  string
	log            *slog.Logger

	newIndex func() chunk.Index
}

// NewChunkFactory builds a factory rooted at localChunkRoot, using
// newIndex to construct each chunk's local index (nil defaults to
// chunk.NewMemIndex), and advertising chunks as queryable at advertiseAddr
// via searchStore.
func NewChunkFactory(localChunkRoot string, searchStore *metadata.SearchMetadataStore, advertiseAddr string, newIndex func() chunk.Index, log *slog.Logger) *ChunkFactory {
	if newIndex == nil {
		newIndex = func() chunk.Index { return chunk.NewMemIndex() }
	}
	return &ChunkFactory{
		localChunkRoot: localChunkRoot,
		searchStore:    searchStore,
		advertiseAddr:  advertiseAddr,
		newIndex:       newIndex,
		log:            log,
	}
}

// MakeChunk builds a new LIVE chunk for partitionID. The caller is
// responsible for calling PostCreate before installing the chunk as the
// manager's active chunk.
func (f *ChunkFactory) MakeChunk(partitionID string) *chunk.Chunk {
	return chunk.New(partitionID, f.newIndex(), f.localChunkRoot)
}

// PostCreate publishes the SearchMetadata record advertising c as live and
// queryable at the factory's configured address.
func (f *ChunkFactory) PostCreate(ctx context.Context, c *chunk.Chunk) error {
	sm := metadata.SearchMetadata{
		Name:        c.ID(),
		ChunkID:     c.ID(),
		PartitionID: c.PartitionID(),
		URL:         f.advertiseAddr,
		State:       "LIVE",
	}
	if err := f.searchStore.Create(ctx, sm); err != nil {
		return fmt.Errorf("chunk %s: publish search metadata: %w", c.ID(), err)
	}
	f.log.Info("chunk created", "chunk_id", c.ID(), "partition_id", c.PartitionID())
	return nil
}
