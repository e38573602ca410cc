package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObservationStatusTransitions(t *testing.T) {
	legal := []struct {
		from, to ObservationStatus
	}{
		{ObservationStatusPendingUpload, ObservationStatusPendingAI},
		{ObservationStatusPendingUpload, ObservationStatusPendingReview}, // skip-AI fast path
		{ObservationStatusPendingAI, ObservationStatusPendingReview},
		{ObservationStatusPendingReview, ObservationStatusVerified},
		{ObservationStatusPendingReview, ObservationStatusRejected},
	}
	for _, tc := range legal {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct {
		from, to ObservationStatus
	}{
		{ObservationStatusVerified, ObservationStatusPendingAI},
		{ObservationStatusRejected, ObservationStatusPendingReview},
		{ObservationStatusPendingAI, ObservationStatusVerified},
		{ObservationStatusPendingReview, ObservationStatusPendingUpload},
		{ObservationStatusPendingUpload, ObservationStatusVerified},
	}
	for _, tc := range illegal {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}
