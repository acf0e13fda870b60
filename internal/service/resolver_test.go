package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lesion-track-server/internal/domain"
)

func TestCorrespondenceResolver_ExplicitRef(t *testing.T) {
	resolver := NewCorrespondenceResolver(testLogger())
	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	existing := timelineOf("lesion-1", obsAt(ts, f(8.0), nil))

	t.Run("known ref extends the timeline", func(t *testing.T) {
		obs := obsAt(ts.AddDate(0, 0, 90), f(9.0), nil)
		obs.LesionRef = "lesion-1"

		res, err := resolver.Resolve(obs, []*domain.LesionTimeline{existing})
		require.NoError(t, err)
		assert.Equal(t, "lesion-1", res.LesionRef)
		assert.False(t, res.NewTimeline)
		assert.Equal(t, "explicit_ref", res.MatchedBy)
	})

	t.Run("unknown ref opens a new timeline", func(t *testing.T) {
		obs := obsAt(ts, f(5.0), nil)
		obs.LesionRef = "lesion-9"

		res, err := resolver.Resolve(obs, []*domain.LesionTimeline{existing})
		require.NoError(t, err)
		assert.Equal(t, "lesion-9", res.LesionRef)
		assert.True(t, res.NewTimeline)
	})
}

func TestCorrespondenceResolver_MetadataMatch(t *testing.T) {
	resolver := NewCorrespondenceResolver(testLogger())
	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	existing := timelineOf("lesion-1", obsAt(ts, f(8.0), nil))

	obs := obsAt(ts.AddDate(0, 0, 90), f(9.0), nil)
	obs.LesionRef = ""
	obs.Region = "Right Upper Lobe" // case-insensitive match

	res, err := resolver.Resolve(obs, []*domain.LesionTimeline{existing})
	require.NoError(t, err)
	assert.Equal(t, "lesion-1", res.LesionRef)
	assert.False(t, res.NewTimeline)
	assert.Equal(t, "region_modality", res.MatchedBy)
}

func TestCorrespondenceResolver_ModalityMismatchOpensNew(t *testing.T) {
	resolver := NewCorrespondenceResolver(testLogger())
	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	existing := timelineOf("lesion-1", obsAt(ts, f(8.0), nil))

	obs := obsAt(ts.AddDate(0, 0, 90), f(9.0), nil)
	obs.LesionRef = ""
	obs.Modality = domain.MRI

	res, err := resolver.Resolve(obs, []*domain.LesionTimeline{existing})
	require.NoError(t, err)
	assert.True(t, res.NewTimeline)
	assert.Equal(t, "new", res.MatchedBy)
	assert.NotEmpty(t, res.LesionRef)
	assert.NotEqual(t, "lesion-1", res.LesionRef)
}

func TestCorrespondenceResolver_Ambiguous(t *testing.T) {
	resolver := NewCorrespondenceResolver(testLogger())
	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	timelines := []*domain.LesionTimeline{
		timelineOf("lesion-1", obsAt(ts, f(8.0), nil)),
		timelineOf("lesion-2", obsAt(ts, f(5.0), nil)),
	}

	obs := obsAt(ts.AddDate(0, 0, 90), f(9.0), nil)
	obs.LesionRef = ""

	_, err := resolver.Resolve(obs, timelines)
	require.Error(t, err)
	assert.True(t, domain.IsTrackingError(err, domain.ErrAmbiguousCorrespondence))
}

func TestCorrespondenceResolver_NoRegionOpensNew(t *testing.T) {
	resolver := NewCorrespondenceResolver(testLogger())
	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	existing := timelineOf("lesion-1", obsAt(ts, f(8.0), nil))

	obs := obsAt(ts.AddDate(0, 0, 90), f(9.0), nil)
	obs.LesionRef = ""
	obs.Region = ""

	res, err := resolver.Resolve(obs, []*domain.LesionTimeline{existing})
	require.NoError(t, err)
	assert.True(t, res.NewTimeline)
	assert.Equal(t, "new", res.MatchedBy)
}
