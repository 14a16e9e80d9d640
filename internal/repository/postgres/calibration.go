package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RMahshie/odmr/internal/repository"
	"github.com/RMahshie/odmr/pkg/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresCalibrationRepository implements CalibrationRepository for PostgreSQL
type PostgresCalibrationRepository struct {
	db *sql.DB
}

// NewPostgresCalibrationRepository creates a new PostgreSQL calibration repository
func NewPostgresCalibrationRepository(db *sql.DB) repository.CalibrationRepository {
	return &PostgresCalibrationRepository{db: db}
}

// Create inserts a calibration record
func (r *PostgresCalibrationRepository) Create(ctx context.Context, record *models.CalibrationRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO calibrations (id, name, a, b, c, linear_slope, linear_intercept, reversed,
		    discard_below_hz, smooth_window, currents, smoothed, fitted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Name,
		record.A,
		record.B,
		record.C,
		record.LinearSlope,
		record.LinearIntercept,
		record.Reversed,
		record.DiscardBelowHz,
		record.SmoothWindow,
		pq.Array(orEmpty(record.Currents)),
		pq.Array(orEmpty(record.Smoothed)),
		pq.Array(orEmpty(record.Fitted)),
		record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert calibration: %w", err)
	}
	return nil
}

// GetByID retrieves a calibration by ID
func (r *PostgresCalibrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CalibrationRecord, error) {
	query := `
		SELECT id, name, a, b, c, linear_slope, linear_intercept, reversed,
		    discard_below_hz, smooth_window, currents, smoothed, fitted, created_at
		FROM calibrations
		WHERE id = $1`

	var record models.CalibrationRecord
	var currents, smoothed, fitted pq.Float64Array

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.Name,
		&record.A,
		&record.B,
		&record.C,
		&record.LinearSlope,
		&record.LinearIntercept,
		&record.Reversed,
		&record.DiscardBelowHz,
		&record.SmoothWindow,
		&currents,
		&smoothed,
		&fitted,
		&record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("calibration %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calibration: %w", err)
	}

	record.Currents = []float64(currents)
	record.Smoothed = []float64(smoothed)
	record.Fitted = []float64(fitted)

	return &record, nil
}

// orEmpty keeps NOT NULL array columns from receiving NULL.
func orEmpty(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
