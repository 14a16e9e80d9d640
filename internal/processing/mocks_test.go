package processing

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/RMahshie/odmr/pkg/models"
	"github.com/RMahshie/odmr/pkg/odmr"
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

// MockCalibrationRepository implements repository.CalibrationRepository for testing
type MockCalibrationRepository struct {
	mock.Mock
}

func (m *MockCalibrationRepository) Create(ctx context.Context, record *models.CalibrationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockCalibrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CalibrationRecord, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*models.CalibrationRecord)
	return record, args.Error(1)
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

// testAnalysisConfig matches the synthetic traces below.
func testAnalysisConfig() odmr.Config {
	cfg := odmr.DefaultConfig()
	cfg.SmoothWindow = 5
	cfg.Detect = odmr.DetectOptions{MinHeight: 0.5, MinProminence: 0.5, MinDistanceHz: 0.5e6}
	cfg.Refine.HalfWidthHz = 0.3e6
	return cfg
}

// syntheticPayload is a 1000-point sweep with a unit peak at 2.700 GHz and a
// unit dip at 2.705 GHz, both parabolic with 0.5 MHz half width.
func syntheticPayload(seed int64) models.TracePayload {
	rng := rand.New(rand.NewSource(seed))
	p := models.TracePayload{
		Frequency: make([]float64, 1000),
		Voltage:   make([]float64, 1000),
	}
	for i := range p.Frequency {
		f := 2.6875e9 + float64(i)*25e3
		p.Frequency[i] = f
		p.Voltage[i] = bump(f, 2.700e9, 1) + bump(f, 2.705e9, -1) + 0.001*rng.NormFloat64()
	}
	return p
}

func bump(f, center, amp float64) float64 {
	d := (f - center) / 0.5e6
	if math.Abs(d) >= 1 {
		return 0
	}
	return amp * (1 - d*d)
}

func payloadJSON(t *testing.T, p models.TracePayload) []byte {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return data
}
