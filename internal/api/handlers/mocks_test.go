package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/RMahshie/odmr/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockScanRepository implements repository.ScanRepository for testing
type MockScanRepository struct {
	mock.Mock
}

func (m *MockScanRepository) Create(ctx context.Context, scan *models.Scan) error {
	args := m.Called(ctx, scan)
	return args.Error(0)
}

func (m *MockScanRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Scan, error) {
	args := m.Called(ctx, id)
	scan, _ := args.Get(0).(*models.Scan)
	return scan, args.Error(1)
}

func (m *MockScanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	args := m.Called(ctx, id, status, progress)
	return args.Error(0)
}

func (m *MockScanRepository) ClaimPending(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockScanRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	args := m.Called(ctx, id, errorMsg)
	return args.Error(0)
}

func (m *MockScanRepository) StoreResults(ctx context.Context, results *models.ScanResults) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}

func (m *MockScanRepository) GetResults(ctx context.Context, scanID uuid.UUID) (*models.ScanResults, error) {
	args := m.Called(ctx, scanID)
	results, _ := args.Get(0).(*models.ScanResults)
	return results, args.Error(1)
}

// MockTraceStore implements storage.TraceStore for testing
type MockTraceStore struct {
	mock.Mock
}

func (m *MockTraceStore) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockTraceStore) UploadFile(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockTraceStore) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockTraceStore) DeleteFile(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockScanService implements processing.ScanService for testing
type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) ProcessScan(ctx context.Context, scanID uuid.UUID) error {
	args := m.Called(ctx, scanID)
	return args.Error(0)
}

func (m *MockScanService) AnalyzeTrace(ctx context.Context, payload models.TracePayload, overrides *models.AnalysisOverrides) (*models.ScanResults, error) {
	args := m.Called(ctx, payload, overrides)
	results, _ := args.Get(0).(*models.ScanResults)
	return results, args.Error(1)
}

// MockCalibrationService implements processing.CalibrationService for testing
type MockCalibrationService struct {
	mock.Mock
}

func (m *MockCalibrationService) Fit(ctx context.Context, req models.CreateCalibrationRequestBody) (*models.CalibrationRecord, error) {
	args := m.Called(ctx, req)
	record, _ := args.Get(0).(*models.CalibrationRecord)
	return record, args.Error(1)
}

func (m *MockCalibrationService) Get(ctx context.Context, id uuid.UUID) (*models.CalibrationRecord, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*models.CalibrationRecord)
	return record, args.Error(1)
}

func (m *MockCalibrationService) Invert(ctx context.Context, id uuid.UUID, measured []float64, zeroCurrentRef float64) (*models.InvertResponseBody, error) {
	args := m.Called(ctx, id, measured, zeroCurrentRef)
	out, _ := args.Get(0).(*models.InvertResponseBody)
	return out, args.Error(1)
}

// requireStatus asserts that err is a huma error with the given HTTP status
func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "expected a huma status error, got %T", err)
	require.Equal(t, status, se.GetStatus())
}
