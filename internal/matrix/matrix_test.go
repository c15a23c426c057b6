package matrix

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosscheck/internal/sample"
)

func someSamples(n int) []sample.Sample {
	out := make([]sample.Sample, n)
	for i := range out {
		out[i] = sample.Sample{Path: fmt.Sprintf("/corpus/s%02d.json", i), Size: int64(i + 1)}
	}
	return out
}

func TestBuild_FullCrossProduct(t *testing.T) {
	fixtures := []string{"golang", "csharp", "json-schema"}
	samples := someSamples(7)

	items := Build(fixtures, samples)
	require.Len(t, items, len(fixtures)*len(samples))

	// Every pair appears exactly once, regardless of order.
	seen := make(map[string]int)
	for _, it := range items {
		seen[it.Fixture+"|"+it.Sample.Path]++
	}
	assert.Len(t, seen, len(fixtures)*len(samples))
	for pair, n := range seen {
		assert.Equal(t, 1, n, "pair %s", pair)
	}
}

func TestBuild_EmptyInputs(t *testing.T) {
	assert.Empty(t, Build(nil, someSamples(3)))
	assert.Empty(t, Build([]string{"golang"}, nil))
}

func TestBuild_ShufflesOrder(t *testing.T) {
	fixtures := []string{"a", "b", "c", "d"}
	samples := someSamples(13)

	// With 52 items the chance that ten independent fair shuffles all agree
	// is negligible; a single distinct ordering proves the order is not the
	// construction order.
	orders := make(map[string]bool)
	for range 10 {
		items := Build(fixtures, samples)
		key := ""
		for _, it := range items {
			key += it.Fixture + it.Sample.Path + ";"
		}
		orders[key] = true
	}
	assert.Greater(t, len(orders), 1, "shuffle never changed the ordering")
}
