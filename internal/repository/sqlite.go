package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lesion-track-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite observation store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSQLiteSchema creates the observations table and indexes.
func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lesion_ref TEXT NOT NULL,
		observed_at DATETIME NOT NULL,
		diameter_mm REAL,
		volume_mm3 REAL,
		modality TEXT NOT NULL,
		density TEXT DEFAULT '',
		region TEXT DEFAULT '',
		morphology TEXT DEFAULT '',
		source_confidence REAL NOT NULL DEFAULT 1.0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(lesion_ref, observed_at)
	);

	CREATE INDEX IF NOT EXISTS idx_obs_lesion_ref ON observations(lesion_ref);
	CREATE INDEX IF NOT EXISTS idx_obs_observed_at ON observations(observed_at);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveObservation persists a single accepted observation.
func (s *SQLiteStore) SaveObservation(ctx context.Context, obs domain.Observation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observations (
			lesion_ref, observed_at, diameter_mm, volume_mm3,
			modality, density, region, morphology, source_confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.LesionRef,
		obs.Timestamp.UTC(),
		nullableFloat(obs.DiameterMM),
		nullableFloat(obs.VolumeMM3),
		obs.Modality.String(),
		obs.Density.String(),
		obs.Region,
		obs.Morphology,
		obs.SourceConfidence,
	)
	if err != nil {
		return fmt.Errorf("saving observation for lesion %s: %w", obs.LesionRef, err)
	}
	return nil
}

// LoadTimelines returns all persisted observations grouped into timelines.
func (s *SQLiteStore) LoadTimelines(ctx context.Context) ([]*domain.LesionTimeline, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lesion_ref, observed_at, diameter_mm, volume_mm3,
		       modality, density, region, morphology, source_confidence
		FROM observations
		ORDER BY lesion_ref, observed_at`)
	if err != nil {
		return nil, fmt.Errorf("loading timelines: %w", err)
	}
	defer rows.Close()

	return groupTimelines(rows)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanObservation scans a row into an Observation.
func scanObservation(s scanner) (domain.Observation, error) {
	var obs domain.Observation
	var observedAt time.Time
	var diameter, volume sql.NullFloat64
	var modality, density string

	err := s.Scan(
		&obs.LesionRef, &observedAt, &diameter, &volume,
		&modality, &density, &obs.Region, &obs.Morphology, &obs.SourceConfidence,
	)
	if err != nil {
		return obs, err
	}

	obs.Timestamp = observedAt
	obs.Modality = domain.Modality(modality)
	obs.Density = domain.DensityCategory(density)
	if diameter.Valid {
		d := diameter.Float64
		obs.DiameterMM = &d
	}
	if volume.Valid {
		v := volume.Float64
		obs.VolumeMM3 = &v
	}
	return obs, nil
}

// groupTimelines folds an ordered observation result set into timelines.
func groupTimelines(rows *sql.Rows) ([]*domain.LesionTimeline, error) {
	var timelines []*domain.LesionTimeline
	var current *domain.LesionTimeline

	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		if current == nil || current.LesionRef != obs.LesionRef {
			current = &domain.LesionTimeline{LesionRef: obs.LesionRef}
			timelines = append(timelines, current)
		}
		current.Observations = append(current.Observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating observations: %w", err)
	}
	return timelines, nil
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
