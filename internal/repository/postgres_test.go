package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lesion-track-server/internal/domain"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS observations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_RequiresConnection(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_SaveObservation(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	defer store.Close()

	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	obs := domain.Observation{
		LesionRef:        "lesion-1",
		Timestamp:        ts,
		DiameterMM:       f(8.0),
		Modality:         domain.CT,
		Density:          domain.SOLID,
		Region:           "right upper lobe",
		SourceConfidence: 1.0,
	}

	mock.ExpectExec("INSERT INTO observations").
		WithArgs("lesion-1", ts.UTC(), 8.0, nil, "CT", "SOLID", "right upper lobe", "", 1.0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.SaveObservation(context.Background(), obs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadTimelines(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	defer store.Close()

	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	columns := []string{
		"lesion_ref", "observed_at", "diameter_mm", "volume_mm3",
		"modality", "density", "region", "morphology", "source_confidence",
	}
	rows := sqlmock.NewRows(columns).
		AddRow("lesion-1", base, 8.0, nil, "CT", "SOLID", "right upper lobe", "", 1.0).
		AddRow("lesion-1", base.AddDate(0, 0, 187), 11.0, 696.9, "CT", "SOLID", "right upper lobe", "spiculated", 0.9).
		AddRow("lesion-2", base, nil, 120.0, "MRI", "", "", "", 1.0)

	mock.ExpectQuery("SELECT lesion_ref, observed_at").WillReturnRows(rows)

	timelines, err := store.LoadTimelines(context.Background())
	require.NoError(t, err)
	require.Len(t, timelines, 2)

	assert.Equal(t, "lesion-1", timelines[0].LesionRef)
	require.Equal(t, 2, timelines[0].Len())
	assert.Equal(t, 8.0, *timelines[0].Observations[0].DiameterMM)
	assert.Equal(t, 696.9, *timelines[0].Observations[1].VolumeMM3)

	assert.Equal(t, "lesion-2", timelines[1].LesionRef)
	assert.Equal(t, domain.MRI, timelines[1].Observations[0].Modality)
	assert.Nil(t, timelines[1].Observations[0].DiameterMM)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveObservationError(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	defer store.Close()

	mock.ExpectExec("INSERT INTO observations").
		WillReturnError(context.DeadlineExceeded)

	obs := domain.Observation{
		LesionRef:        "lesion-1",
		Timestamp:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		DiameterMM:       f(8.0),
		Modality:         domain.CT,
		SourceConfidence: 1.0,
	}
	err := store.SaveObservation(context.Background(), obs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lesion-1")
}
