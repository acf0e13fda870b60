package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lesion-track-server/internal/domain"
)

func TestLedger_Append(t *testing.T) {
	ledger := NewLedger(testLogger())
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	first := obsAt(base, f(8.0), nil)
	first.LesionRef = "lesion-1"
	timeline, err := ledger.Append(first)
	require.NoError(t, err)
	assert.Equal(t, 1, timeline.Len())

	second := obsAt(base.AddDate(0, 0, 90), f(9.0), nil)
	second.LesionRef = "lesion-1"
	timeline, err = ledger.Append(second)
	require.NoError(t, err)
	assert.Equal(t, 2, timeline.Len())
	assert.Equal(t, base.AddDate(0, 0, 90), timeline.LatestTimestamp())
}

func TestLedger_Append_RejectsNonMonotonic(t *testing.T) {
	ledger := NewLedger(testLogger())
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	obs := obsAt(base, f(8.0), nil)
	obs.LesionRef = "lesion-1"
	_, err := ledger.Append(obs)
	require.NoError(t, err)

	// Earlier timestamp.
	stale := obsAt(base.AddDate(0, 0, -30), f(9.0), nil)
	stale.LesionRef = "lesion-1"
	_, err = ledger.Append(stale)
	require.Error(t, err)
	assert.True(t, domain.IsTrackingError(err, domain.ErrNonMonotonicTime))

	// Duplicate timestamp falls under the same rule.
	dup := obsAt(base, f(8.5), nil)
	dup.LesionRef = "lesion-1"
	_, err = ledger.Append(dup)
	require.Error(t, err)
	assert.True(t, domain.IsTrackingError(err, domain.ErrNonMonotonicTime))

	// The rejected appends left the ledger untouched.
	history, err := ledger.History("lesion-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 8.0, *history[0].DiameterMM)
}

func TestLedger_Append_RejectsIncompleteMeasurement(t *testing.T) {
	ledger := NewLedger(testLogger())

	obs := domain.Observation{
		LesionRef: "lesion-1",
		Timestamp: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Modality:  domain.CT,
		Density:   domain.SOLID,
	}
	_, err := ledger.Append(obs)
	require.Error(t, err)
	assert.True(t, domain.IsTrackingError(err, domain.ErrIncompleteMeasurement))
	assert.False(t, ledger.Has("lesion-1"))
}

func TestLedger_Append_RequiresLesionRef(t *testing.T) {
	ledger := NewLedger(testLogger())

	obs := obsAt(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), f(8.0), nil)
	_, err := ledger.Append(obs)
	assert.Error(t, err)
}

func TestLedger_Append_PreservesZeroConfidence(t *testing.T) {
	ledger := NewLedger(testLogger())

	// 0.0 is a legal confidence value; defaulting happens at the API
	// boundary, never in the ledger.
	obs := obsAt(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), f(8.0), nil)
	obs.LesionRef = "lesion-1"
	obs.SourceConfidence = 0

	timeline, err := ledger.Append(obs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, timeline.Current().SourceConfidence)
}

func TestLedger_SnapshotIsolation(t *testing.T) {
	ledger := NewLedger(testLogger())

	obs := obsAt(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), f(8.0), nil)
	obs.LesionRef = "lesion-1"
	timeline, err := ledger.Append(obs)
	require.NoError(t, err)

	// Mutating the returned snapshot must not reach ledger state.
	*timeline.Observations[0].DiameterMM = 99.0
	timeline.Observations = nil

	history, err := ledger.History("lesion-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 8.0, *history[0].DiameterMM)
}

func TestLedger_TimelineNotFound(t *testing.T) {
	ledger := NewLedger(testLogger())

	_, err := ledger.Timeline("missing")
	require.Error(t, err)
	assert.True(t, domain.IsTrackingError(err, domain.ErrLesionNotFound))
}

func TestLedger_RefsSorted(t *testing.T) {
	ledger := NewLedger(testLogger())
	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	for _, ref := range []string{"charlie", "alpha", "bravo"} {
		obs := obsAt(ts, f(8.0), nil)
		obs.LesionRef = ref
		_, err := ledger.Append(obs)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, ledger.Refs())
}

func TestLedger_Restore(t *testing.T) {
	ledger := NewLedger(testLogger())
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("ordered timeline restores", func(t *testing.T) {
		timeline := timelineOf("lesion-1",
			obsAt(base, f(8.0), nil),
			obsAt(base.AddDate(0, 0, 90), f(9.0), nil),
		)
		require.NoError(t, ledger.Restore(timeline))
		assert.True(t, ledger.Has("lesion-1"))
	})

	t.Run("unordered timeline is rejected", func(t *testing.T) {
		timeline := timelineOf("lesion-2",
			obsAt(base.AddDate(0, 0, 90), f(9.0), nil),
			obsAt(base, f(8.0), nil),
		)
		err := ledger.Restore(timeline)
		require.Error(t, err)
		assert.True(t, domain.IsTrackingError(err, domain.ErrNonMonotonicTime))
	})

	t.Run("empty timeline is rejected", func(t *testing.T) {
		assert.Error(t, ledger.Restore(&domain.LesionTimeline{LesionRef: "lesion-3"}))
	})
}
