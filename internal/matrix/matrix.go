// Package matrix builds the fixture-by-sample task matrix.
package matrix

import (
	"math/rand/v2"

	"crosscheck/internal/sample"
)

// WorkItem is one (sample, fixture) pair - the unit of scheduling. Immutable
// once created.
type WorkItem struct {
	Sample  sample.Sample
	Fixture string
}

// Build returns the full cross product of fixtures and samples in a uniformly
// random order. The shuffle decorrelates slow samples from a single worker
// and surfaces cross-fixture failures early; rand.Shuffle is a Fisher-Yates
// permutation, so every ordering is equally likely.
func Build(fixtures []string, samples []sample.Sample) []WorkItem {
	items := make([]WorkItem, 0, len(fixtures)*len(samples))
	for _, f := range fixtures {
		for _, s := range samples {
			items = append(items, WorkItem{Sample: s, Fixture: f})
		}
	}
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	return items
}
