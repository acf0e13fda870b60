package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/lesion-track-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL observation store over an
// existing connection, creating the schema if needed.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createPostgresSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// OpenPostgresStore opens a connection with the lib/pq driver and wraps it
// in a PostgresStore.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func createPostgresSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		id BIGSERIAL PRIMARY KEY,
		lesion_ref TEXT NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL,
		diameter_mm DOUBLE PRECISION,
		volume_mm3 DOUBLE PRECISION,
		modality TEXT NOT NULL,
		density TEXT DEFAULT '',
		region TEXT DEFAULT '',
		morphology TEXT DEFAULT '',
		source_confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE(lesion_ref, observed_at)
	);

	CREATE INDEX IF NOT EXISTS idx_obs_lesion_ref ON observations(lesion_ref);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveObservation persists a single accepted observation.
func (s *PostgresStore) SaveObservation(ctx context.Context, obs domain.Observation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observations (
			lesion_ref, observed_at, diameter_mm, volume_mm3,
			modality, density, region, morphology, source_confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
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
func (s *PostgresStore) LoadTimelines(ctx context.Context) ([]*domain.LesionTimeline, error) {
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
