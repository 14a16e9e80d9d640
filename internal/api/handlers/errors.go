package handlers

import (
	"errors"

	"github.com/RMahshie/odmr/internal/repository"
	"github.com/RMahshie/odmr/pkg/calibration"
	"github.com/RMahshie/odmr/pkg/odmr"
	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"
)

// domainError maps service errors to HTTP errors. Input the pipeline rejects
// outright is a 400; input it accepts but cannot reduce is a 422.
func domainError(msg string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return huma.Error404NotFound(msg+": not found", err)
	case errors.Is(err, repository.ErrConflict):
		return huma.Error409Conflict(msg+": "+err.Error(), err)
	case errors.Is(err, odmr.ErrInvalidTrace),
		errors.Is(err, odmr.ErrInvalidOptions):
		return huma.Error400BadRequest(msg+": "+err.Error(), err)
	case errors.Is(err, odmr.ErrDetection),
		errors.Is(err, calibration.ErrInsufficientSamples),
		errors.Is(err, calibration.ErrDegenerateCalibration),
		errors.Is(err, calibration.ErrOutOfRangeInversion):
		return huma.Error422UnprocessableEntity(msg+": "+err.Error(), err)
	default:
		log.Error().Err(err).Msg(msg)
		return huma.Error500InternalServerError(msg, err)
	}
}
