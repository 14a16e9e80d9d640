package handlers

import (
	"context"

	"github.com/RMahshie/odmr/internal/processing"
	"github.com/RMahshie/odmr/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CalibrationHandler handles calibration-related HTTP requests
type CalibrationHandler struct {
	svc processing.CalibrationService
}

// NewCalibrationHandler creates a new calibration handler
func NewCalibrationHandler(svc processing.CalibrationService) *CalibrationHandler {
	return &CalibrationHandler{svc: svc}
}

// CreateCalibration fits and stores a calibration from reference samples
func (h *CalibrationHandler) CreateCalibration(ctx context.Context, req *models.CreateCalibrationRequest) (*models.CalibrationResponse, error) {
	log.Info().Str("name", req.Body.Name).Int("samples", len(req.Body.Samples)).Msg("Calibration fit request received")

	record, err := h.svc.Fit(ctx, req.Body)
	if err != nil {
		return nil, domainError("Calibration fit failed", err)
	}
	return &models.CalibrationResponse{Body: *record}, nil
}

// GetCalibration returns a stored calibration
func (h *CalibrationHandler) GetCalibration(ctx context.Context, req *models.GetCalibrationRequest) (*models.CalibrationResponse, error) {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid calibration ID", err)
	}

	record, err := h.svc.Get(ctx, id)
	if err != nil {
		return nil, domainError("Failed to get calibration", err)
	}
	return &models.CalibrationResponse{Body: *record}, nil
}

// InvertFrequencies maps measured line positions to currents
func (h *CalibrationHandler) InvertFrequencies(ctx context.Context, req *models.InvertRequest) (*models.InvertResponse, error) {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid calibration ID", err)
	}

	out, err := h.svc.Invert(ctx, id, req.Body.Frequencies, req.Body.ZeroCurrentReference)
	if err != nil {
		return nil, domainError("Inversion failed", err)
	}
	return &models.InvertResponse{Body: *out}, nil
}
