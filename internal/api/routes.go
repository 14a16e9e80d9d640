package api

import (
	"net/http"

	"github.com/RMahshie/odmr/internal/api/handlers"
	"github.com/RMahshie/odmr/internal/processing"
	"github.com/RMahshie/odmr/internal/repository"
	"github.com/RMahshie/odmr/internal/storage"
	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, scanRepo repository.ScanRepository, store storage.TraceStore, scanSvc processing.ScanService, calibrationSvc processing.CalibrationService) {
	scanHandler := handlers.NewScanHandler(scanRepo, store, scanSvc)
	calibrationHandler := handlers.NewCalibrationHandler(calibrationSvc)

	huma.Register(api, huma.Operation{
		OperationID: "analyzeTrace",
		Method:      http.MethodPost,
		Path:        "/api/traces/analyze",
		Summary:     "Analyze a trace",
		Description: "Extracts peaks, dips, zero crossings and the line position from a trace sent inline",
		Tags:        []string{"Traces"},
	}, scanHandler.AnalyzeTrace)

	huma.Register(api, huma.Operation{
		OperationID: "createScan",
		Method:      http.MethodPost,
		Path:        "/api/scans",
		Summary:     "Create a new scan",
		Description: "Creates a scan record and returns an upload URL for its trace",
		Tags:        []string{"Scans"},
	}, scanHandler.CreateScan)

	huma.Register(api, huma.Operation{
		OperationID: "startProcessing",
		Method:      http.MethodPost,
		Path:        "/api/scans/{id}/process",
		Summary:     "Start processing a scan",
		Description: "Starts background analysis of an uploaded trace",
		Tags:        []string{"Scans"},
	}, scanHandler.StartProcessing)

	huma.Register(api, huma.Operation{
		OperationID: "getScanStatus",
		Method:      http.MethodGet,
		Path:        "/api/scans/{id}/status",
		Summary:     "Get scan status",
		Description: "Returns the current status and progress of a scan",
		Tags:        []string{"Scans"},
	}, scanHandler.GetScanStatus)

	huma.Register(api, huma.Operation{
		OperationID: "getScanResults",
		Method:      http.MethodGet,
		Path:        "/api/scans/{id}/results",
		Summary:     "Get scan results",
		Description: "Returns the refined features and line position of a completed scan",
		Tags:        []string{"Scans"},
	}, scanHandler.GetScanResults)

	huma.Register(api, huma.Operation{
		OperationID: "createCalibration",
		Method:      http.MethodPost,
		Path:        "/api/calibrations",
		Summary:     "Fit a calibration",
		Description: "Fits the quadratic current-to-frequency relation from reference samples and stores it",
		Tags:        []string{"Calibrations"},
	}, calibrationHandler.CreateCalibration)

	huma.Register(api, huma.Operation{
		OperationID: "getCalibration",
		Method:      http.MethodGet,
		Path:        "/api/calibrations/{id}",
		Summary:     "Get a calibration",
		Tags:        []string{"Calibrations"},
	}, calibrationHandler.GetCalibration)

	huma.Register(api, huma.Operation{
		OperationID: "invertFrequencies",
		Method:      http.MethodPost,
		Path:        "/api/calibrations/{id}/invert",
		Summary:     "Convert frequencies to currents",
		Description: "Maps measured line positions to drive currents using a stored calibration",
		Tags:        []string{"Calibrations"},
	}, calibrationHandler.InvertFrequencies)
}
