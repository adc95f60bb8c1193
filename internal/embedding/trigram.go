package embedding

import (
	"context"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultDimensions matches the vector column of the labels table.
const DefaultDimensions = 128

// TrigramClient embeds short labels as hashed character trigram counts,
// L2-normalized. Labels that differ by a typo share most trigrams and land
// close in cosine distance. Output is deterministic.
type TrigramClient struct {
	dimensions int
}

func NewTrigramClient(dimensions int) *TrigramClient {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &TrigramClient{dimensions: dimensions}
}

func (c *TrigramClient) Dimensions() int {
	return c.dimensions
}

func (c *TrigramClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, c.dimensions)
	runes := []rune("  " + strings.ToLower(strings.TrimSpace(text)) + " ")
	if len(runes) < 3 {
		return vec, nil
	}

	for i := 0; i+3 <= len(runes); i++ {
		h := xxhash.Sum64String(string(runes[i : i+3]))
		vec[h%uint64(c.dimensions)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// Cosine returns the cosine similarity of two vectors of equal length.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
