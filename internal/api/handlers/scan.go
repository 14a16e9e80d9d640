package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/RMahshie/odmr/internal/processing"
	"github.com/RMahshie/odmr/internal/repository"
	"github.com/RMahshie/odmr/internal/storage"
	"github.com/RMahshie/odmr/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// uploadExpiry matches the presign expiry of the trace stores
const uploadExpiry = 15 * time.Minute

// ScanHandler handles scan-related HTTP requests
type ScanHandler struct {
	repo    repository.ScanRepository
	store   storage.TraceStore
	scanSvc processing.ScanService
}

// NewScanHandler creates a new scan handler
func NewScanHandler(repo repository.ScanRepository, store storage.TraceStore, scanSvc processing.ScanService) *ScanHandler {
	return &ScanHandler{
		repo:    repo,
		store:   store,
		scanSvc: scanSvc,
	}
}

// AnalyzeTrace analyses a trace sent in the request body
func (h *ScanHandler) AnalyzeTrace(ctx context.Context, req *models.AnalyzeTraceRequest) (*models.AnalyzeTraceResponse, error) {
	log.Info().Int("samples", len(req.Body.Trace.Frequency)).Bool("overrides", req.Body.Overrides != nil).Msg("Inline trace analysis request received")

	results, err := h.scanSvc.AnalyzeTrace(ctx, req.Body.Trace, req.Body.Overrides)
	if err != nil {
		return nil, domainError("Trace analysis failed", err)
	}

	return &models.AnalyzeTraceResponse{Body: *results}, nil
}

// CreateScan creates a new scan and returns an upload URL for its trace
func (h *ScanHandler) CreateScan(ctx context.Context, req *models.CreateScanRequest) (*models.CreateScanResponse, error) {
	scanID := uuid.New()
	traceKey := fmt.Sprintf("traces/%s.json", scanID)

	uploadURL, err := h.store.GenerateUploadURL(ctx, traceKey, req.Body.ContentType)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to prepare upload", err)
	}

	now := time.Now()
	scan := &models.Scan{
		ID:        scanID.String(),
		Label:     req.Body.Label,
		Status:    models.StatusPending,
		Progress:  0,
		TraceKey:  &traceKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.Create(ctx, scan); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create scan", err)
	}

	log.Info().Str("scanID", scan.ID).Str("traceKey", traceKey).Msg("Scan created, returning upload URL")
	return &models.CreateScanResponse{
		Body: models.CreateScanResponseBody{
			ID:        scan.ID,
			UploadURL: uploadURL,
			ExpiresIn: int(uploadExpiry.Seconds()),
		},
	}, nil
}

// StartProcessing starts processing an uploaded trace in the background
func (h *ScanHandler) StartProcessing(ctx context.Context, req *models.StartProcessingRequest) (*models.StartProcessingResponse, error) {
	scanID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid scan ID", err)
	}

	scan, err := h.repo.GetByID(ctx, scanID)
	if err != nil {
		return nil, domainError("Failed to get scan", err)
	}
	if scan.Status != models.StatusPending {
		return nil, huma.Error409Conflict("Scan already processed",
			fmt.Errorf("scan status is %s", scan.Status))
	}
	// A concurrent request may have claimed the scan since it was read.
	if err := h.repo.ClaimPending(ctx, scanID); err != nil {
		return nil, domainError("Failed to start processing", err)
	}

	log.Info().Str("scanID", scan.ID).Msg("Starting background processing")
	go func() {
		// The request context ends with the response.
		bg := context.Background()
		if err := h.scanSvc.ProcessScan(bg, scanID); err != nil {
			log.Error().Err(err).Str("scanID", scanID.String()).Msg("Scan processing failed")
			_ = h.repo.UpdateError(bg, scanID, fmt.Sprintf("Processing failed: %v", err))
		}
	}()

	return &models.StartProcessingResponse{
		Body: models.MessageBody{Message: "Processing started successfully"},
	}, nil
}

// GetScanStatus returns the current status of a scan
func (h *ScanHandler) GetScanStatus(ctx context.Context, req *models.GetScanStatusRequest) (*models.GetScanStatusResponse, error) {
	scanID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid scan ID", err)
	}

	scan, err := h.repo.GetByID(ctx, scanID)
	if err != nil {
		return nil, domainError("Failed to get scan", err)
	}

	var resultsID *string
	if scan.Status == models.StatusCompleted {
		if results, err := h.repo.GetResults(ctx, scanID); err == nil && results != nil {
			resultsID = &results.ID
		}
	}

	return &models.GetScanStatusResponse{
		Body: models.GetScanStatusResponseBody{
			ID:        scan.ID,
			Status:    scan.Status,
			Progress:  scan.Progress,
			Message:   statusMessage(scan.Status, scan.Progress),
			Error:     scan.ErrorMsg,
			ResultsID: resultsID,
		},
	}, nil
}

// GetScanResults returns the stored results of a completed scan
func (h *ScanHandler) GetScanResults(ctx context.Context, req *models.GetScanResultsRequest) (*models.GetScanResultsResponse, error) {
	scanID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid scan ID", err)
	}

	scan, err := h.repo.GetByID(ctx, scanID)
	if err != nil {
		return nil, domainError("Failed to get scan", err)
	}
	if scan.Status != models.StatusCompleted {
		return nil, huma.Error409Conflict("Scan not yet completed",
			fmt.Errorf("scan status is %s", scan.Status))
	}

	results, err := h.repo.GetResults(ctx, scanID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get results", err)
	}

	return &models.GetScanResultsResponse{Body: *results}, nil
}

// statusMessage creates a human-readable status message
func statusMessage(status string, progress int) string {
	switch status {
	case models.StatusPending:
		return "Waiting for trace upload..."
	case models.StatusProcessing:
		switch {
		case progress < 20:
			return "Starting analysis..."
		case progress < 40:
			return "Downloading trace..."
		case progress < 60:
			return "Validating trace..."
		case progress < 90:
			return "Fitting peaks and dips..."
		default:
			return "Storing results..."
		}
	case models.StatusCompleted:
		return "Analysis complete"
	case models.StatusFailed:
		return "Analysis failed"
	default:
		return "Unknown status"
	}
}
