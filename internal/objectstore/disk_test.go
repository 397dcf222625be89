package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskClient_UploadDownloadRoundTrip(t *testing.T) {
	c, err := NewDiskClient(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Upload(ctx, "chunks/abc/segment.log.zst", []byte("data")))

	got, err := c.Download(ctx, "chunks/abc/segment.log.zst")
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

func TestDiskClient_DownloadMissingReturnsNotFound(t *testing.T) {
	c, err := NewDiskClient(t.TempDir())
	require.NoError(t, err)

	_, err = c.Download(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskClient_ListUnderPrefix(t *testing.T) {
	c, err := NewDiskClient(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Upload(ctx, "chunks/a/f1", []byte("1")))
	require.NoError(t, c.Upload(ctx, "chunks/a/f2", []byte("2")))
	require.NoError(t, c.Upload(ctx, "chunks/b/f1", []byte("3")))

	keys, err := c.List(ctx, "chunks/a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"chunks/a/f1", "chunks/a/f2"}, keys)
}

func TestDiskClient_ListMissingPrefixIsEmpty(t *testing.T) {
	c, err := NewDiskClient(t.TempDir())
	require.NoError(t, err)

	keys, err := c.List(context.Background(), "chunks/missing")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDiskClient_DeleteAbsentIsNoOp(t *testing.T) {
	c, err := NewDiskClient(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, c.Delete(context.Background(), "never-existed"))
}
