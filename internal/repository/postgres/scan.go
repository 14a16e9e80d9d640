package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RMahshie/odmr/internal/repository"
	"github.com/RMahshie/odmr/pkg/models"
	"github.com/google/uuid"
)

// PostgresScanRepository implements ScanRepository for PostgreSQL
type PostgresScanRepository struct {
	db *sql.DB
}

// NewPostgresScanRepository creates a new PostgreSQL scan repository
func NewPostgresScanRepository(db *sql.DB) repository.ScanRepository {
	return &PostgresScanRepository{db: db}
}

// Create inserts a new scan record
func (r *PostgresScanRepository) Create(ctx context.Context, scan *models.Scan) error {
	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}
	now := time.Now()
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = now
	}
	if scan.UpdatedAt.IsZero() {
		scan.UpdatedAt = now
	}
	if scan.Status == "" {
		scan.Status = models.StatusPending
	}

	query := `
		INSERT INTO scans (id, label, status, progress, trace_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		scan.ID,
		scan.Label,
		scan.Status,
		scan.Progress,
		scan.TraceKey,
		scan.CreatedAt,
		scan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}
	return nil
}

// GetByID retrieves a scan by ID
func (r *PostgresScanRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Scan, error) {
	query := `
		SELECT id, label, status, progress, trace_key, error_message, created_at, updated_at, completed_at
		FROM scans
		WHERE id = $1`

	var scan models.Scan
	var traceKey, errorMsg sql.NullString
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&scan.ID,
		&scan.Label,
		&scan.Status,
		&scan.Progress,
		&traceKey,
		&errorMsg,
		&scan.CreatedAt,
		&scan.UpdatedAt,
		&completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	if traceKey.Valid {
		scan.TraceKey = &traceKey.String
	}
	if errorMsg.Valid {
		scan.ErrorMsg = &errorMsg.String
	}
	if completedAt.Valid {
		scan.CompletedAt = &completedAt.Time
	}

	return &scan, nil
}

// UpdateStatus updates the status and progress of a scan
func (r *PostgresScanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	query := `
		UPDATE scans
		SET status = $1, progress = $2, updated_at = NOW(),
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $3`

	return r.execOne(ctx, id, query, status, progress, id)
}

// UpdateError marks a scan as failed with a reason
func (r *PostgresScanRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE scans
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2`

	return r.execOne(ctx, id, query, errorMsg, id)
}

// ClaimPending moves a pending scan to processing. It fails with
// repository.ErrConflict if the scan is no longer pending.
func (r *PostgresScanRepository) ClaimPending(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE scans
		SET status = 'processing', progress = 5, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to claim scan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to claim scan: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("scan %s is not pending: %w", id, repository.ErrConflict)
	}
	return nil
}

func (r *PostgresScanRepository) execOne(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("scan %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// StoreResults stores the analysis output of a scan
func (r *PostgresScanRepository) StoreResults(ctx context.Context, results *models.ScanResults) error {
	peaks, err := json.Marshal(results.Peaks)
	if err != nil {
		return fmt.Errorf("failed to marshal peaks: %w", err)
	}
	dips, err := json.Marshal(results.Dips)
	if err != nil {
		return fmt.Errorf("failed to marshal dips: %w", err)
	}
	zeroCrossings, err := json.Marshal(results.ZeroCrossings)
	if err != nil {
		return fmt.Errorf("failed to marshal zero crossings: %w", err)
	}

	var errorMsg sql.NullString
	if results.Error != "" {
		errorMsg = sql.NullString{String: results.Error, Valid: true}
	}

	query := `
		INSERT INTO scan_results (id, scan_id, peaks, dips, zero_crossings,
		    line_position, line_uncertainty, line_count, line_excluded, line_failed,
		    error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.ExecContext(ctx, query,
		results.ID,
		results.ScanID,
		string(peaks),
		string(dips),
		string(zeroCrossings),
		results.Line.Position,
		results.Line.Uncertainty,
		results.Line.Count,
		results.Line.Excluded,
		results.Line.Failed,
		errorMsg,
		results.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scan results: %w", err)
	}
	return nil
}

// GetResults retrieves the analysis output of a scan
func (r *PostgresScanRepository) GetResults(ctx context.Context, scanID uuid.UUID) (*models.ScanResults, error) {
	query := `
		SELECT id, scan_id, peaks, dips, zero_crossings,
		    line_position, line_uncertainty, line_count, line_excluded, line_failed,
		    error_message, created_at
		FROM scan_results
		WHERE scan_id = $1`

	var results models.ScanResults
	var peaks, dips, zeroCrossings []byte
	var position, uncertainty sql.NullFloat64
	var errorMsg sql.NullString

	err := r.db.QueryRowContext(ctx, query, scanID).Scan(
		&results.ID,
		&results.ScanID,
		&peaks,
		&dips,
		&zeroCrossings,
		&position,
		&uncertainty,
		&results.Line.Count,
		&results.Line.Excluded,
		&results.Line.Failed,
		&errorMsg,
		&results.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("results for scan %s: %w", scanID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan results: %w", err)
	}

	if err := json.Unmarshal(peaks, &results.Peaks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal peaks: %w", err)
	}
	if err := json.Unmarshal(dips, &results.Dips); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dips: %w", err)
	}
	if err := json.Unmarshal(zeroCrossings, &results.ZeroCrossings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal zero crossings: %w", err)
	}
	if position.Valid {
		results.Line.Position = &position.Float64
	}
	if uncertainty.Valid {
		results.Line.Uncertainty = &uncertainty.Float64
	}
	if errorMsg.Valid {
		results.Error = errorMsg.String
	}

	return &results, nil
}
