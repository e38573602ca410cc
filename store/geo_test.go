package store

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	// identical points
	assert.Zero(t, haversineMeters(-97.7431, 30.2672, -97.7431, 30.2672))

	// one degree of latitude is ~111.1 km
	d := haversineMeters(-97.7431, 30.0, -97.7431, 31.0)
	assert.InDelta(t, 111195, d, 200)

	// ~3 m offset in latitude
	d = haversineMeters(-97.7431, 30.2672, -97.7431, 30.2672+3.0/111195)
	assert.InDelta(t, 3.0, d, 0.05)
}

func TestSubmissionCellKeysSortedAndDeterministic(t *testing.T) {
	a := submissionCellKeys(-97.7431, 30.2672, DedupRadiusMeters)
	b := submissionCellKeys(-97.7431, 30.2672, DedupRadiusMeters)
	assert.Equal(t, a, b)
	assert.True(t, sort.SliceIsSorted(a, func(i, j int) bool { return a[i] < a[j] }))
	assert.NotEmpty(t, a)
}

func TestSubmissionCellKeysNeighborsOverlap(t *testing.T) {
	// two points 3 m apart must share at least one lock key, or two
	// submissions of the same tree could race past each other
	a := submissionCellKeys(-97.7431, 30.2672, DedupRadiusMeters)
	b := submissionCellKeys(-97.7431, 30.2672+3.0/111195, DedupRadiusMeters)

	shared := false
	seen := map[int64]struct{}{}
	for _, k := range a {
		seen[k] = struct{}{}
	}
	for _, k := range b {
		if _, ok := seen[k]; ok {
			shared = true
			break
		}
	}
	assert.True(t, shared)
}
