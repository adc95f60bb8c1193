package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigramClient_Deterministic(t *testing.T) {
	c := NewTrigramClient(0)
	assert.Equal(t, DefaultDimensions, c.Dimensions())

	a, err := c.Embed(context.Background(), "Amsterdam")
	require.NoError(t, err)
	b, err := c.Embed(context.Background(), "Amsterdam")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, Cosine(a, b), 1e-6)
}

func TestTrigramClient_TypoIsCloserThanUnrelated(t *testing.T) {
	c := NewTrigramClient(DefaultDimensions)
	ctx := context.Background()

	base, _ := c.Embed(ctx, "amsterdam")
	typo, _ := c.Embed(ctx, "amsterdamm")
	other, _ := c.Embed(ctx, "berlin")

	assert.Greater(t, Cosine(base, typo), float32(0.75))
	assert.Less(t, Cosine(base, other), Cosine(base, typo))
}

func TestTrigramClient_CaseInsensitive(t *testing.T) {
	c := NewTrigramClient(64)
	a, _ := c.Embed(context.Background(), "Paris")
	b, _ := c.Embed(context.Background(), "PARIS")
	assert.Equal(t, a, b)
}

func TestTrigramClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTrigramClient(8).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCosine_MismatchedLengths(t *testing.T) {
	assert.Equal(t, float32(0), Cosine([]float32{1}, []float32{1, 0}))
	assert.Equal(t, float32(0), Cosine(nil, nil))
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(ProviderTrigram, 32)
	require.NoError(t, err)
	assert.NotNil(t, c)

	c, err = NewClient(ProviderNone, 0)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewClient("", 0)
	require.NoError(t, err)
	assert.Nil(t, c, "fuzzy matching is opt-in")

	_, err = NewClient("openai", 0)
	assert.Error(t, err)
}
