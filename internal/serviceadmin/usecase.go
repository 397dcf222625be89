// Package serviceadmin implements the semantics of the admin RPC surface
// over ServiceMetadataStore, with no transport attached — the HTTP/RPC
// frontend is out of core scope, the provisioning use cases are not.
package serviceadmin

import (
	"context"

	"github.com/ingestcluster/core/internal/clustererr"
	"github.com/ingestcluster/core/internal/metadata"
)

// UseCase implements the four admin operations spec.md §6 describes.
type UseCase struct {
	stores *metadata.ServiceMetadataStore
}

// NewUseCase binds a ServiceMetadataStore.
func NewUseCase(stores *metadata.ServiceMetadataStore) *UseCase {
	return &UseCase{stores: stores}
}

// CreateService creates a new service with empty partition assignments.
// Fails with ErrAlreadyExists if the name exists.
func (uc *UseCase) CreateService(ctx context.Context, name, owner string) error {
	return uc.stores.Create(ctx, metadata.ServiceMetadata{
		Name:            name,
		Owner:           owner,
		ThroughputBytes: 0,
		PartitionIDs:    nil,
	})
}

// UpdateService updates only the owner field. Fails with ErrNotFound if the
// service doesn't exist.
func (uc *UseCase) UpdateService(ctx context.Context, name, owner string) error {
	svc, err := uc.stores.Get(ctx, name)
	if err != nil {
		return err
	}
	svc.Owner = owner
	return uc.stores.Update(ctx, svc)
}

// GetService returns the current record for name.
func (uc *UseCase) GetService(ctx context.Context, name string) (metadata.ServiceMetadata, error) {
	return uc.stores.Get(ctx, name)
}

// ListServices returns every service in the watch cache.
func (uc *UseCase) ListServices(ctx context.Context) []metadata.ServiceMetadata {
	return uc.stores.ListCached(ctx)
}

// UpdatePartitionAssignment applies a throughput/partition update.
// throughputBytes == -1 keeps the existing value. A non-empty partitionIDs
// replaces the assignment outright. An empty partitionIDs would require
// auto-assignment, which this core deliberately does not implement (see
// DESIGN.md open-question decision 2) — it returns ErrAutoAssignUnsupported
// rather than guessing an assignment.
func (uc *UseCase) UpdatePartitionAssignment(ctx context.Context, name string, throughputBytes int64, partitionIDs []string) error {
	svc, err := uc.stores.Get(ctx, name)
	if err != nil {
		return err
	}

	if len(partitionIDs) == 0 {
		return clustererr.ErrAutoAssignUnsupported
	}

	if throughputBytes != -1 {
		svc.ThroughputBytes = throughputBytes
	}
	svc.PartitionIDs = partitionIDs
	return uc.stores.Update(ctx, svc)
}

// DeleteService removes a service. A missing service surfaces as
// ErrNotFound (see DESIGN.md open-question decision 4).
func (uc *UseCase) DeleteService(ctx context.Context, name string) error {
	return uc.stores.Delete(ctx, name)
}
