package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestcluster/core/internal/metadata"
)

func TestCompare_OrphanFile(t *testing.T) {
	result := Compare([]string{"chunks/X/file1"}, nil)

	assert.Equal(t, []string{"chunks/X/file1"}, result.FilesWithoutSnapshots)
	assert.Empty(t, result.SnapshotsWithoutFiles)
}

func TestCompare_OrphanSnapshot(t *testing.T) {
	snap := metadata.SnapshotMetadata{SnapshotID: "s1", SnapshotPath: "chunks/Y"}

	result := Compare(nil, []metadata.SnapshotMetadata{snap})

	assert.Empty(t, result.FilesWithoutSnapshots)
	require.Len(t, result.SnapshotsWithoutFiles, 1)
	assert.Equal(t, "s1", result.SnapshotsWithoutFiles[0].SnapshotID)
}

func TestCompare_DirectoryLevelSnapshotMatchesFileBelowIt(t *testing.T) {
	snap := metadata.SnapshotMetadata{SnapshotID: "s1", SnapshotPath: "chunks/X"}

	result := Compare([]string{"chunks/X/file1", "chunks/X/file2"}, []metadata.SnapshotMetadata{snap})

	assert.Empty(t, result.FilesWithoutSnapshots)
	assert.Empty(t, result.SnapshotsWithoutFiles)
}

func TestCompare_Conservativity(t *testing.T) {
	// Any snapshot whose path prefix-matches a listed file must never
	// appear in SnapshotsWithoutFiles, regardless of what else is present.
	snaps := []metadata.SnapshotMetadata{
		{SnapshotID: "matched", SnapshotPath: "chunks/A"},
		{SnapshotID: "orphan", SnapshotPath: "chunks/B"},
	}
	files := []string{"chunks/A/seg.log.zst"}

	result := Compare(files, snaps)

	require.Len(t, result.SnapshotsWithoutFiles, 1)
	assert.Equal(t, "orphan", result.SnapshotsWithoutFiles[0].SnapshotID)
}

func TestExplodePath(t *testing.T) {
	assert.Equal(t, []string{"a", "a/b", "a/b/c"}, explodePath("a/b/c"))
	assert.Nil(t, explodePath(""))
	assert.Equal(t, []string{"a"}, explodePath("/a/"))
}
