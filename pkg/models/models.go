package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// AnalyzeTraceRequest runs the scan pipeline on a trace sent inline
type AnalyzeTraceRequest struct {
	Body AnalyzeTraceRequestBody
}

// AnalyzeTraceRequestBody is the body of the inline analysis request
type AnalyzeTraceRequestBody struct {
	Trace     TracePayload       `json:"trace" required:"true" doc:"Frequency sweep and lock-in voltage"`
	Overrides *AnalysisOverrides `json:"overrides,omitempty" doc:"Per-request analysis parameters"`
}

// AnalyzeTraceResponse carries the features extracted from an inline trace
type AnalyzeTraceResponse struct {
	Body ScanResults
}

// CreateScanRequest represents a request to register a new scan upload
type CreateScanRequest struct {
	Body CreateScanRequestBody
}

// CreateScanRequestBody is the body of the create scan request
type CreateScanRequestBody struct {
	Label       string `json:"label,omitempty" maxLength:"100" doc:"Free-form scan label"`
	FileSize    int64  `json:"file_size" minimum:"1" maximum:"52428800" required:"true" doc:"Trace payload size in bytes"`
	ContentType string `json:"content_type" enum:"application/json" required:"true" doc:"Trace payload content type"`
}

// CreateScanResponse represents the response from creating a scan
type CreateScanResponse struct {
	Body CreateScanResponseBody
}

// CreateScanResponseBody is the body of the create scan response
type CreateScanResponseBody struct {
	ID        string `json:"id" doc:"Scan unique identifier"`
	UploadURL string `json:"upload_url" doc:"Pre-signed URL for the trace upload"`
	ExpiresIn int    `json:"expires_in" doc:"URL expiration time in seconds"`
}

// StartProcessingRequest represents a request to start processing an uploaded trace
type StartProcessingRequest struct {
	ID string `path:"id" doc:"Scan ID"`
}

// StartProcessingResponse represents the response from starting processing
type StartProcessingResponse struct {
	Body MessageBody
}

// MessageBody is a plain confirmation message
type MessageBody struct {
	Message string `json:"message" doc:"Confirmation message"`
}

// GetScanStatusRequest represents a request to get scan status
type GetScanStatusRequest struct {
	ID string `path:"id" doc:"Scan ID"`
}

// GetScanStatusResponse represents the current status of a scan
type GetScanStatusResponse struct {
	Body GetScanStatusResponseBody
}

// GetScanStatusResponseBody is the body of the status response
type GetScanStatusResponseBody struct {
	ID        string  `json:"id" doc:"Scan ID"`
	Status    string  `json:"status" enum:"pending,processing,completed,failed" doc:"Scan status"`
	Progress  int     `json:"progress" minimum:"0" maximum:"100" doc:"Processing progress percentage"`
	Message   string  `json:"message,omitempty" doc:"Human-readable status message"`
	Error     *string `json:"error,omitempty" doc:"Failure reason when the scan failed"`
	ResultsID *string `json:"results_id,omitempty" doc:"Results ID when processing completes"`
}

// GetScanResultsRequest represents a request to get scan results
type GetScanResultsRequest struct {
	ID string `path:"id" doc:"Scan ID"`
}

// GetScanResultsResponse represents the stored results of a scan
type GetScanResultsResponse struct {
	Body ScanResults
}

// CreateCalibrationRequest fits a calibration from reference samples
type CreateCalibrationRequest struct {
	Body CreateCalibrationRequestBody
}

// CreateCalibrationRequestBody is the body of the create calibration request
type CreateCalibrationRequestBody struct {
	Name           string              `json:"name,omitempty" maxLength:"100" doc:"Calibration name"`
	Samples        []CalibrationSample `json:"samples" minItems:"3" required:"true" doc:"Reference current/frequency pairs in acquisition order"`
	DiscardBelowHz *float64            `json:"discard_below_hz,omitempty" doc:"Drop samples below this frequency"`
	SmoothWindow   *int                `json:"smooth_window,omitempty" minimum:"1" doc:"Boxcar window over sample index"`
}

// CalibrationResponse returns a stored calibration
type CalibrationResponse struct {
	Body CalibrationRecord
}

// GetCalibrationRequest represents a request to get a calibration
type GetCalibrationRequest struct {
	ID string `path:"id" doc:"Calibration ID"`
}

// InvertRequest maps measured frequencies to currents with a stored calibration
type InvertRequest struct {
	ID   string `path:"id" doc:"Calibration ID"`
	Body InvertRequestBody
}

// InvertRequestBody is the body of the inversion request
type InvertRequestBody struct {
	Frequencies          []float64 `json:"frequencies" minItems:"1" required:"true" doc:"Measured line positions in Hz"`
	ZeroCurrentReference float64   `json:"zero_current_reference" required:"true" doc:"Line position measured at zero current in Hz"`
}

// InvertResponse carries the recovered currents
type InvertResponse struct {
	Body InvertResponseBody
}

// InvertResponseBody is the body of the inversion response
type InvertResponseBody struct {
	CalibrationID      string    `json:"calibration_id" doc:"Calibration used"`
	Currents           []float64 `json:"currents" doc:"Recovered currents in A"`
	ShiftedFrequencies []float64 `json:"shifted_frequencies" doc:"Measurements moved onto the calibration baseline in Hz"`
}
