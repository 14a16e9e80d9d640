package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RMahshie/odmr/internal/repository"
	"github.com/RMahshie/odmr/internal/storage"
	"github.com/RMahshie/odmr/pkg/models"
	"github.com/RMahshie/odmr/pkg/odmr"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ScanService runs the scan pipeline on stored and inline traces
type ScanService interface {
	ProcessScan(ctx context.Context, scanID uuid.UUID) error
	AnalyzeTrace(ctx context.Context, payload models.TracePayload, overrides *models.AnalysisOverrides) (*models.ScanResults, error)
}

type scanService struct {
	store    storage.TraceStore
	repo     repository.ScanRepository
	analyzer *odmr.Analyzer
	logger   zerolog.Logger
}

// NewScanService creates a scan service analysing traces with cfg
func NewScanService(store storage.TraceStore, repo repository.ScanRepository, cfg odmr.Config) (ScanService, error) {
	logger := log.With().Str("component", "analyzer").Logger()
	analyzer, err := odmr.NewAnalyzer(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &scanService{
		store:    store,
		repo:     repo,
		analyzer: analyzer,
		logger:   logger,
	}, nil
}

// ProcessScan downloads, analyses and stores one uploaded trace. Problems with
// the trace itself mark the scan failed and return nil; infrastructure errors
// are returned.
func (s *scanService) ProcessScan(ctx context.Context, scanID uuid.UUID) error {
	// Step 1: Update to processing status
	if err := s.repo.UpdateStatus(ctx, scanID, models.StatusProcessing, 10); err != nil {
		return err
	}

	// Step 2: Get scan details
	scan, err := s.repo.GetByID(ctx, scanID)
	if err != nil {
		return err
	}
	if scan.TraceKey == nil {
		return s.fail(ctx, scanID, "Scan has no uploaded trace")
	}

	// Step 3: Download the trace
	if err := s.repo.UpdateStatus(ctx, scanID, models.StatusProcessing, 20); err != nil {
		return err
	}
	data, err := s.store.DownloadFile(ctx, *scan.TraceKey)
	if err != nil {
		log.Error().Err(err).Str("scanID", scan.ID).Str("key", *scan.TraceKey).Msg("Trace download failed")
		return s.fail(ctx, scanID, "Failed to download trace")
	}

	// Step 4: Decode
	if err := s.repo.UpdateStatus(ctx, scanID, models.StatusProcessing, 40); err != nil {
		return err
	}
	trace, err := DecodeTrace(data)
	if err != nil {
		return s.fail(ctx, scanID, err.Error())
	}

	// Step 5: Analyse
	if err := s.repo.UpdateStatus(ctx, scanID, models.StatusProcessing, 60); err != nil {
		return err
	}
	results, err := s.analyze(ctx, s.analyzer, trace, scan.ID)
	if err != nil {
		if errors.Is(err, odmr.ErrDetection) {
			return s.fail(ctx, scanID, err.Error())
		}
		return err
	}

	// Step 6: Store results
	if err := s.repo.UpdateStatus(ctx, scanID, models.StatusProcessing, 90); err != nil {
		return err
	}
	if err := s.repo.StoreResults(ctx, results); err != nil {
		return err
	}

	// Step 7: Mark complete
	if err := s.repo.UpdateStatus(ctx, scanID, models.StatusCompleted, 100); err != nil {
		return err
	}

	log.Info().Str("scanID", scan.ID).Int("features", results.Line.Count).Msg("Scan processed")
	return nil
}

// AnalyzeTrace analyses a trace sent inline without storing anything.
func (s *scanService) AnalyzeTrace(ctx context.Context, payload models.TracePayload, overrides *models.AnalysisOverrides) (*models.ScanResults, error) {
	trace, err := payload.Trace()
	if err != nil {
		return nil, err
	}

	analyzer := s.analyzer
	if overrides != nil {
		analyzer, err = odmr.NewAnalyzer(overrides.Apply(s.analyzer.Config()), s.logger)
		if err != nil {
			return nil, err
		}
	}

	return s.analyze(ctx, analyzer, trace, "")
}

// analyze runs the pipeline and converts the outcome. A scan where every
// feature was excluded or failed still yields results, with the reason set.
func (s *scanService) analyze(ctx context.Context, analyzer *odmr.Analyzer, trace *odmr.Trace, scanID string) (*models.ScanResults, error) {
	res, err := analyzer.Analyze(ctx, trace)
	if err != nil && !(errors.Is(err, odmr.ErrNoSurvivingFeatures) && res != nil) {
		return nil, err
	}

	results := models.NewScanResults(uuid.New().String(), scanID, res)
	if err != nil {
		results.Error = err.Error()
	}
	return results, nil
}

func (s *scanService) fail(ctx context.Context, scanID uuid.UUID, reason string) error {
	log.Warn().Str("scanID", scanID.String()).Str("reason", reason).Msg("Scan failed")
	if err := s.repo.UpdateError(ctx, scanID, reason); err != nil {
		return fmt.Errorf("failed to record scan failure: %w", err)
	}
	return nil
}

// DecodeTrace parses a JSON trace payload and validates it.
func DecodeTrace(data []byte) (*odmr.Trace, error) {
	var payload models.TracePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse trace payload: %v", odmr.ErrInvalidTrace, err)
	}
	return payload.Trace()
}
