package metadata

import (
	"context"
	"log/slog"

	"github.com/ingestcluster/core/internal/coordination"
)

// SnapshotMetadataStore exposes create/get/delete/listCached only — no
// update. Snapshots are immutable once published; the type system, not a
// runtime check, prevents callers from mutating one.
type SnapshotMetadataStore struct {
	core *core[SnapshotMetadata]
}

// NewSnapshotMetadataStore binds storeFolder (e.g. "/snapshots") to the
// coordination client.
func NewSnapshotMetadataStore(client coordination.Client, storeFolder string, log *slog.Logger) *SnapshotMetadataStore {
	return &SnapshotMetadataStore{core: newCore[SnapshotMetadata](client, storeFolder, log)}
}

func (s *SnapshotMetadataStore) Create(ctx context.Context, snap SnapshotMetadata) error {
	return s.core.create(ctx, snap.EntityName(), snap)
}

func (s *SnapshotMetadataStore) Get(ctx context.Context, snapshotID string) (SnapshotMetadata, error) {
	return s.core.get(ctx, snapshotID)
}

// Delete is idempotent on an absent node: a missing node is not treated
// as an error here (see DESIGN.md open-question decision 4).
func (s *SnapshotMetadataStore) Delete(ctx context.Context, snapshotID string) error {
	return s.core.delete(ctx, snapshotID, true)
}

// ListCached returns the current in-memory watch cache snapshot.
func (s *SnapshotMetadataStore) ListCached(ctx context.Context) []SnapshotMetadata {
	return s.core.listCached(ctx)
}
