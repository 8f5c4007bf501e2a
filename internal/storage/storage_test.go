package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	loc, err := store.Put(ctx, 7, 0, []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.Equal(t, "datasets/7/0/data.csv", loc)

	data, err := store.Get(ctx, 7, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("a,b\n1,2\n"), data)

	_, err = store.Get(ctx, 7, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryArtifacts(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	loc, err := store.PutArtifact(ctx, 7, 1, "preprocessor.bin", []byte{0x01})
	require.NoError(t, err)
	require.Equal(t, "datasets/7/1/artifacts/preprocessor.bin", loc)

	data, err := store.GetArtifact(ctx, 7, 1, "preprocessor.bin")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, data)

	_, err = store.GetArtifact(ctx, 7, 1, "feature_pipeline.bin")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCopiesOnWrite(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	src := []byte("original")
	_, err := store.Put(ctx, 1, 0, src)
	require.NoError(t, err)
	src[0] = 'X'

	data, err := store.Get(ctx, 1, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("original"), data)
}
