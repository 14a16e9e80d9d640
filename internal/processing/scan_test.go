package processing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/RMahshie/odmr/pkg/models"
	"github.com/RMahshie/odmr/pkg/odmr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestScanService(t *testing.T) (*scanService, *MockScanRepository, *MockTraceStore) {
	t.Helper()
	repo := &MockScanRepository{}
	store := &MockTraceStore{}
	svc, err := NewScanService(store, repo, testAnalysisConfig())
	require.NoError(t, err)
	return svc.(*scanService), repo, store
}

func TestProcessScan(t *testing.T) {
	svc, repo, store := newTestScanService(t)
	id := uuid.New()
	key := "traces/" + id.String() + ".json"

	repo.On("UpdateStatus", mock.Anything, id, models.StatusProcessing, mock.AnythingOfType("int")).Return(nil)
	repo.On("GetByID", mock.Anything, id).Return(&models.Scan{ID: id.String(), TraceKey: &key}, nil)
	store.On("DownloadFile", mock.Anything, key).Return(payloadJSON(t, syntheticPayload(42)), nil)

	var stored *models.ScanResults
	repo.On("StoreResults", mock.Anything, mock.AnythingOfType("*models.ScanResults")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.ScanResults) }).
		Return(nil)
	repo.On("UpdateStatus", mock.Anything, id, models.StatusCompleted, 100).Return(nil)

	require.NoError(t, svc.ProcessScan(context.Background(), id))

	require.NotNil(t, stored)
	assert.Equal(t, id.String(), stored.ScanID)
	require.Len(t, stored.Peaks, 1)
	require.Len(t, stored.Dips, 1)
	require.NotNil(t, stored.Line.Position)
	assert.InDelta(t, 2.7025e9, *stored.Line.Position, 1e3)
	assert.Empty(t, stored.Error)

	repo.AssertExpectations(t)
	store.AssertExpectations(t)
	repo.AssertNotCalled(t, "UpdateError", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessScan_Failures(t *testing.T) {
	flat := models.TracePayload{
		Frequency: []float64{2.87e9, 2.871e9, 2.872e9, 2.873e9},
		Voltage:   []float64{0, 0, 0, 0},
	}

	tests := []struct {
		name       string
		download   []byte
		downloadEr error
		noKey      bool
		wantReason string
	}{
		{name: "no trace key", noKey: true, wantReason: "Scan has no uploaded trace"},
		{name: "download fails", downloadEr: errors.New("no such key"), wantReason: "Failed to download trace"},
		{name: "malformed payload", download: []byte("{not json"), wantReason: "invalid trace"},
		{name: "no features", download: payloadJSON(t, flat), wantReason: "feature detection failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, store := newTestScanService(t)
			id := uuid.New()
			key := "traces/x.json"
			scan := &models.Scan{ID: id.String(), TraceKey: &key}
			if tt.noKey {
				scan.TraceKey = nil
			}

			repo.On("UpdateStatus", mock.Anything, id, models.StatusProcessing, mock.AnythingOfType("int")).Return(nil)
			repo.On("GetByID", mock.Anything, id).Return(scan, nil)
			store.On("DownloadFile", mock.Anything, key).Return(tt.download, tt.downloadEr).Maybe()
			repo.On("UpdateError", mock.Anything, id, mock.MatchedBy(func(msg string) bool {
				return strings.Contains(msg, tt.wantReason)
			})).Return(nil)

			require.NoError(t, svc.ProcessScan(context.Background(), id))

			repo.AssertExpectations(t)
			repo.AssertNotCalled(t, "StoreResults", mock.Anything, mock.Anything)
		})
	}
}

func TestProcessScan_RepositoryErrorIsReturned(t *testing.T) {
	svc, repo, _ := newTestScanService(t)
	id := uuid.New()
	repo.On("UpdateStatus", mock.Anything, id, models.StatusProcessing, 10).Return(assert.AnError)

	err := svc.ProcessScan(context.Background(), id)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAnalyzeTrace(t *testing.T) {
	svc, repo, store := newTestScanService(t)

	results, err := svc.AnalyzeTrace(context.Background(), syntheticPayload(7), nil)
	require.NoError(t, err)
	assert.Empty(t, results.ScanID)
	require.NotNil(t, results.Line.Position)
	assert.InDelta(t, 2.7025e9, *results.Line.Position, 1e3)
	require.Len(t, results.ZeroCrossings, 1)

	// Nothing is persisted for inline traces.
	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestAnalyzeTrace_Overrides(t *testing.T) {
	svc, _, _ := newTestScanService(t)

	excl := 1
	results, err := svc.AnalyzeTrace(context.Background(), syntheticPayload(7),
		&models.AnalysisOverrides{ExcludeFirstDips: &excl, ExcludeLastPeaks: &excl})
	require.NoError(t, err)
	assert.Nil(t, results.Line.Position)
	assert.Contains(t, results.Error, odmr.ErrNoSurvivingFeatures.Error())
	assert.Equal(t, 2, results.Line.Excluded)

	bad := 0
	_, err = svc.AnalyzeTrace(context.Background(), syntheticPayload(7),
		&models.AnalysisOverrides{SmoothWindow: &bad})
	assert.ErrorIs(t, err, odmr.ErrInvalidOptions)
}

func TestAnalyzeTrace_InvalidTrace(t *testing.T) {
	svc, _, _ := newTestScanService(t)

	_, err := svc.AnalyzeTrace(context.Background(), models.TracePayload{
		Frequency: []float64{3, 2, 1},
		Voltage:   []float64{0, 0, 0},
	}, nil)
	assert.ErrorIs(t, err, odmr.ErrInvalidTrace)
}

func TestDecodeTrace(t *testing.T) {
	tr, err := DecodeTrace(payloadJSON(t, syntheticPayload(1)))
	require.NoError(t, err)
	assert.Equal(t, 1000, tr.Len())

	_, err = DecodeTrace([]byte(`{"frequency":[1,2,3],"voltage":[1,2]}`))
	assert.ErrorIs(t, err, odmr.ErrInvalidTrace)
}
