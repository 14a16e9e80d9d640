package repository

import (
	"context"
	"errors"

	"github.com/RMahshie/odmr/pkg/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a record is not in the state an update requires
	ErrConflict = errors.New("record state conflict")
)

// ScanRepository defines the interface for scan data operations
type ScanRepository interface {
	Create(ctx context.Context, scan *models.Scan) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Scan, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	ClaimPending(ctx context.Context, id uuid.UUID) error
	UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error
	StoreResults(ctx context.Context, results *models.ScanResults) error
	GetResults(ctx context.Context, scanID uuid.UUID) (*models.ScanResults, error)
}

// CalibrationRepository defines the interface for calibration operations
type CalibrationRepository interface {
	Create(ctx context.Context, record *models.CalibrationRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CalibrationRecord, error)
}
