package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Dimensions(t *testing.T) {
	e := NewStaticEmbedder()
	assert.Equal(t, 768, e.Dimensions())
}

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "Должность: Backend Engineer. Навыки: go, postgresql")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "Должность: Backend Engineer. Навыки: go, postgresql")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
}

func TestStaticEmbedder_DifferentTextsDiffer(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "Должность: Backend Engineer")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "Должность: Frontend Engineer")
	require.NoError(t, err)

	assert.NotEqual(t, v1, v2)
}

func TestStaticEmbedder_EmptyTextReturnsZeroVector(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	v, err := e.Embed(ctx, "   ")
	require.NoError(t, err)
	assert.Len(t, v, Dimensions)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestStaticEmbedder_EmbedBatch(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	vecs, err := e.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, Dimensions)
	}
}

func TestStaticEmbedder_ClosedRejectsCalls(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}
