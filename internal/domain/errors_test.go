package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackingError(t *testing.T) {
	err := NewTrackingError(ErrNonMonotonicTime, "lesion-1", "observation at %s is out of order", "2024-01-15")

	assert.Contains(t, err.Error(), "NON_MONOTONIC_TIME")
	assert.Contains(t, err.Error(), "lesion-1")
	assert.True(t, IsTrackingError(err, ErrNonMonotonicTime))
	assert.False(t, IsTrackingError(err, ErrLesionNotFound))
}

func TestIsTrackingError_Wrapped(t *testing.T) {
	inner := NewTrackingError(ErrLesionNotFound, "lesion-2", "no timeline")
	wrapped := fmt.Errorf("handling request: %w", inner)

	assert.True(t, IsTrackingError(wrapped, ErrLesionNotFound))
	assert.False(t, IsTrackingError(fmt.Errorf("plain error"), ErrLesionNotFound))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("diameter_mm", "diameter must be positive", -3.0)

	assert.Contains(t, err.Error(), "diameter_mm")
	assert.Contains(t, err.Error(), "positive")
	assert.Equal(t, -3.0, err.Value)
}
