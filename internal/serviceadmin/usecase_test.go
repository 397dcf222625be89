package serviceadmin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestcluster/core/internal/clustererr"
	"github.com/ingestcluster/core/internal/coordination"
	"github.com/ingestcluster/core/internal/logging"
	"github.com/ingestcluster/core/internal/metadata"
)

const (
	eventuallyTimeout = time.Second
	eventuallyTick    = 5 * time.Millisecond
)

func newTestUseCase() *UseCase {
	client := coordination.NewMemoryClient()
	return NewUseCase(metadata.NewServiceMetadataStore(client, "services", logging.NewTest()))
}

func TestUseCase_CreateServiceFailsIfExists(t *testing.T) {
	uc := newTestUseCase()
	ctx := context.Background()

	require.NoError(t, uc.CreateService(ctx, "checkout", "team-a"))
	err := uc.CreateService(ctx, "checkout", "team-b")
	assert.ErrorIs(t, err, clustererr.ErrAlreadyExists)
}

func TestUseCase_UpdateServiceOwnerOnly(t *testing.T) {
	uc := newTestUseCase()
	ctx := context.Background()

	require.NoError(t, uc.CreateService(ctx, "checkout", "team-a"))
	require.NoError(t, uc.UpdateService(ctx, "checkout", "team-b"))

	svc, err := uc.GetService(ctx, "checkout")
	require.NoError(t, err)
	assert.Equal(t, "team-b", svc.Owner)
}

func TestUseCase_UpdateServiceMissingFails(t *testing.T) {
	uc := newTestUseCase()
	err := uc.UpdateService(context.Background(), "missing", "team-a")
	assert.ErrorIs(t, err, clustererr.ErrNotFound)
}

func TestUseCase_UpdatePartitionAssignmentKeepsThroughputOnSentinel(t *testing.T) {
	uc := newTestUseCase()
	ctx := context.Background()

	require.NoError(t, uc.CreateService(ctx, "checkout", "team-a"))
	require.NoError(t, uc.UpdatePartitionAssignment(ctx, "checkout", 5000, []string{"p0", "p1"}))
	require.NoError(t, uc.UpdatePartitionAssignment(ctx, "checkout", -1, []string{"p0", "p1", "p2"}))

	svc, err := uc.GetService(ctx, "checkout")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), svc.ThroughputBytes)
	assert.Equal(t, []string{"p0", "p1", "p2"}, svc.PartitionIDs)
}

// spec.md §9 open question 2: empty partitionIds is not auto-assigned.
func TestUseCase_UpdatePartitionAssignmentEmptyIsUnsupported(t *testing.T) {
	uc := newTestUseCase()
	ctx := context.Background()

	require.NoError(t, uc.CreateService(ctx, "checkout", "team-a"))
	err := uc.UpdatePartitionAssignment(ctx, "checkout", 1000, nil)
	assert.ErrorIs(t, err, clustererr.ErrAutoAssignUnsupported)
}

func TestUseCase_DeleteServiceMissingReturnsNotFound(t *testing.T) {
	uc := newTestUseCase()
	err := uc.DeleteService(context.Background(), "missing")
	assert.ErrorIs(t, err, clustererr.ErrNotFound)
}

func TestUseCase_ListServices(t *testing.T) {
	uc := newTestUseCase()
	ctx := context.Background()

	require.NoError(t, uc.CreateService(ctx, "checkout", "team-a"))
	require.NoError(t, uc.CreateService(ctx, "shipping", "team-b"))

	assert.Eventually(t, func() bool {
		return len(uc.ListServices(ctx)) == 2
	}, eventuallyTimeout, eventuallyTick)
}
