package metadata

import (
	"context"
	"log/slog"

	"github.com/ingestcluster/core/internal/coordination"
)

// SearchMetadataStore exposes create/get/update/delete/listCached: unlike
// snapshots, a search record's url/state mutate while the chunk is live.
type SearchMetadataStore struct {
	core *core[SearchMetadata]
}

func NewSearchMetadataStore(client coordination.Client, storeFolder string, log *slog.Logger) *SearchMetadataStore {
	return &SearchMetadataStore{core: newCore[SearchMetadata](client, storeFolder, log)}
}

func (s *SearchMetadataStore) Create(ctx context.Context, sm SearchMetadata) error {
	return s.core.create(ctx, sm.EntityName(), sm)
}

func (s *SearchMetadataStore) Get(ctx context.Context, chunkID string) (SearchMetadata, error) {
	return s.core.get(ctx, chunkID)
}

func (s *SearchMetadataStore) Update(ctx context.Context, sm SearchMetadata) error {
	return s.core.update(ctx, sm.EntityName(), sm)
}

// Delete is idempotent on an absent node, like SnapshotMetadataStore.Delete:
// the rollover task deletes a chunk's search entry after publishing its
// snapshot, and deleting an entry that is already gone is not an error.
func (s *SearchMetadataStore) Delete(ctx context.Context, chunkID string) error {
	return s.core.delete(ctx, chunkID, true)
}

func (s *SearchMetadataStore) ListCached(ctx context.Context) []SearchMetadata {
	return s.core.listCached(ctx)
}
