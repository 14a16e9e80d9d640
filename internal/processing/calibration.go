package processing

import (
	"context"
	"sync"

	"github.com/RMahshie/odmr/internal/repository"
	"github.com/RMahshie/odmr/pkg/calibration"
	"github.com/RMahshie/odmr/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CalibrationService fits, stores and applies current calibrations
type CalibrationService interface {
	Fit(ctx context.Context, req models.CreateCalibrationRequestBody) (*models.CalibrationRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CalibrationRecord, error)
	Invert(ctx context.Context, id uuid.UUID, measured []float64, zeroCurrentRef float64) (*models.InvertResponseBody, error)
}

type calibrationService struct {
	repo     repository.CalibrationRepository
	defaults calibration.FitOptions

	mu     sync.RWMutex
	curves map[uuid.UUID]*calibration.Curve
}

// NewCalibrationService creates a calibration service fitting with defaults
// unless a request overrides them
func NewCalibrationService(repo repository.CalibrationRepository, defaults calibration.FitOptions) CalibrationService {
	return &calibrationService{
		repo:     repo,
		defaults: defaults,
		curves:   make(map[uuid.UUID]*calibration.Curve),
	}
}

func (s *calibrationService) Fit(ctx context.Context, req models.CreateCalibrationRequestBody) (*models.CalibrationRecord, error) {
	opts := s.defaults
	if req.DiscardBelowHz != nil {
		opts.DiscardBelowHz = *req.DiscardBelowHz
	}
	if req.SmoothWindow != nil {
		opts.SmoothWindow = *req.SmoothWindow
	}

	curve, err := calibration.Fit(models.Samples(req.Samples), opts)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	record := models.NewCalibrationRecord(id.String(), req.Name, curve, opts)
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.curves[id] = curve
	s.mu.Unlock()

	log.Info().
		Str("calibrationID", record.ID).
		Int("samples", len(record.Currents)).
		Bool("reversed", record.Reversed).
		Float64("a", record.A).
		Float64("b", record.B).
		Float64("c", record.C).
		Msg("Calibration fitted")
	return record, nil
}

func (s *calibrationService) Get(ctx context.Context, id uuid.UUID) (*models.CalibrationRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *calibrationService) Invert(ctx context.Context, id uuid.UUID, measured []float64, zeroCurrentRef float64) (*models.InvertResponseBody, error) {
	curve, err := s.curve(ctx, id)
	if err != nil {
		return nil, err
	}

	inversions, err := curve.InvertAll(measured, zeroCurrentRef)
	if err != nil {
		return nil, err
	}

	out := &models.InvertResponseBody{
		CalibrationID:      id.String(),
		Currents:           make([]float64, len(inversions)),
		ShiftedFrequencies: make([]float64, len(inversions)),
	}
	for i, inv := range inversions {
		out.Currents[i] = inv.Current
		out.ShiftedFrequencies[i] = inv.ShiftedFrequency
	}
	return out, nil
}

// curve returns the cached curve for id, loading it from the repository on a miss.
func (s *calibrationService) curve(ctx context.Context, id uuid.UUID) (*calibration.Curve, error) {
	s.mu.RLock()
	curve, ok := s.curves[id]
	s.mu.RUnlock()
	if ok {
		return curve, nil
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	curve, err = record.Curve()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.curves[id] = curve
	s.mu.Unlock()
	return curve, nil
}
