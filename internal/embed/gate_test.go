package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_LazyInitializesOnce(t *testing.T) {
	calls := 0
	g := NewGate(func(ctx context.Context) (Embedder, error) {
		calls++
		return NewStaticEmbedder(), nil
	}, 0)

	assert.False(t, g.Available(context.Background()), "not yet initialized")

	_, err := g.EncodeOne(context.Background(), "hello")
	require.NoError(t, err)
	_, err = g.EncodeOne(context.Background(), "world")
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "embedder constructed exactly once")
	assert.True(t, g.Available(context.Background()))
}

func TestGate_InitFailureIsFatalAndSticky(t *testing.T) {
	wantErr := errors.New("model server unreachable")
	g := NewGate(func(ctx context.Context) (Embedder, error) {
		return nil, wantErr
	}, 0)

	_, err := g.EncodeOne(context.Background(), "hello")
	require.Error(t, err)

	_, err = g.EncodeOne(context.Background(), "again")
	require.Error(t, err, "initialization failure must remain fatal on subsequent calls")
}

func TestGate_EncodeBatch(t *testing.T) {
	g := NewGate(func(ctx context.Context) (Embedder, error) {
		return NewStaticEmbedder(), nil
	}, 0)

	vecs, err := g.EncodeBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestGate_Dimensions(t *testing.T) {
	g := NewGate(func(ctx context.Context) (Embedder, error) {
		return NewStaticEmbedder(), nil
	}, 0)

	d, err := g.Dimensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 768, d)
}
