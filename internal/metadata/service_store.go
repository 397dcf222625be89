package metadata

import (
	"context"
	"log/slog"

	"github.com/ingestcluster/core/internal/coordination"
)

// ServiceMetadataStore is the one entity store with full CRUD: per-tenant
// provisioning is operator-driven, not lifecycle-driven, and a mistaken
// double-delete here should surface rather than disappear silently.
type ServiceMetadataStore struct {
	core *core[ServiceMetadata]
}

func NewServiceMetadataStore(client coordination.Client, storeFolder string, log *slog.Logger) *ServiceMetadataStore {
	return &ServiceMetadataStore{core: newCore[ServiceMetadata](client, storeFolder, log)}
}

func (s *ServiceMetadataStore) Create(ctx context.Context, svc ServiceMetadata) error {
	return s.core.create(ctx, svc.EntityName(), svc)
}

func (s *ServiceMetadataStore) Get(ctx context.Context, name string) (ServiceMetadata, error) {
	return s.core.get(ctx, name)
}

func (s *ServiceMetadataStore) Update(ctx context.Context, svc ServiceMetadata) error {
	return s.core.update(ctx, svc.EntityName(), svc)
}

// Delete returns ErrNotFound for an absent node (see DESIGN.md open-question
// decision 4): unlike the lifecycle-driven stores, callers here are admin
// operators for whom a double-delete is worth surfacing.
func (s *ServiceMetadataStore) Delete(ctx context.Context, name string) error {
	return s.core.delete(ctx, name, false)
}

func (s *ServiceMetadataStore) ListCached(ctx context.Context) []ServiceMetadata {
	return s.core.listCached(ctx)
}

// List returns the raw set of node paths under the store folder, read
// directly from the coordination client rather than from the
// eventually-consistent cache.
func (s *ServiceMetadataStore) List(ctx context.Context) ([]string, error) {
	return s.core.list(ctx)
}
