package processing

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/RMahshie/odmr/internal/repository/postgres"
	"github.com/RMahshie/odmr/internal/storage"
	"github.com/RMahshie/odmr/pkg/calibration"
	"github.com/RMahshie/odmr/pkg/models"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestContainer holds test infrastructure
type TestContainer struct {
	postgresContainer testcontainers.Container
	minioContainer    testcontainers.Container
	db                *sql.DB
	store             storage.TraceStore
}

// SetupIntegrationTest starts PostgreSQL and MinIO containers and wires them up
func SetupIntegrationTest(t *testing.T) *TestContainer {
	t.Helper()
	ctx := context.Background()

	pg, err := pgContainer.Run(ctx,
		"postgres:15-alpine",
		pgContainer.WithDatabase("odmr_test"),
		pgContainer.WithUsername("testuser"),
		pgContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	tc := &TestContainer{postgresContainer: pg}
	t.Cleanup(func() { tc.CleanupIntegrationTest(t) })

	dbURL, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	tc.db, err = sql.Open("postgres", dbURL)
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(ctx, tc.db))

	mc, err := minio.Run(ctx,
		"minio/minio:RELEASE.2024-10-29T16-01-48Z",
		minio.WithUsername("minioadmin"),
		minio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	tc.minioContainer = mc

	endpoint, err := mc.ConnectionString(ctx)
	require.NoError(t, err)
	tc.store, err = storage.NewMinioStore(ctx, storage.Config{
		Bucket:    "odmr-test-" + uuid.New().String()[:8],
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	return tc
}

// CleanupIntegrationTest cleans up test containers
func (tc *TestContainer) CleanupIntegrationTest(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if tc.db != nil {
		tc.db.Close()
	}
	if tc.minioContainer != nil {
		assert.NoError(t, tc.minioContainer.Terminate(ctx))
	}
	if tc.postgresContainer != nil {
		assert.NoError(t, tc.postgresContainer.Terminate(ctx))
	}
}

// TestFullScanPipeline_Integration uploads a trace, processes it and reads back the results
func TestFullScanPipeline_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := SetupIntegrationTest(t)
	ctx := context.Background()

	repo := postgres.NewPostgresScanRepository(tc.db)
	svc, err := NewScanService(tc.store, repo, testAnalysisConfig())
	require.NoError(t, err)

	key := "traces/" + uuid.New().String() + ".json"
	require.NoError(t, tc.store.UploadFile(ctx, key, payloadJSON(t, syntheticPayload(42)), "application/json"))

	scan := &models.Scan{Label: "integration", TraceKey: &key}
	require.NoError(t, repo.Create(ctx, scan))
	id := uuid.MustParse(scan.ID)

	require.NoError(t, svc.ProcessScan(ctx, id))

	final, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.NotNil(t, final.CompletedAt)

	results, err := repo.GetResults(ctx, id)
	require.NoError(t, err)
	require.Len(t, results.Peaks, 1)
	require.NotNil(t, results.Line.Position)
	assert.InDelta(t, 2.7025e9, *results.Line.Position, 1e3)
}

// TestScanPipelineFailure_Integration processes a scan whose trace was never uploaded
func TestScanPipelineFailure_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := SetupIntegrationTest(t)
	ctx := context.Background()

	repo := postgres.NewPostgresScanRepository(tc.db)
	svc, err := NewScanService(tc.store, repo, testAnalysisConfig())
	require.NoError(t, err)

	key := "traces/never-uploaded.json"
	scan := &models.Scan{TraceKey: &key}
	require.NoError(t, repo.Create(ctx, scan))
	id := uuid.MustParse(scan.ID)

	require.NoError(t, svc.ProcessScan(ctx, id))

	final, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, final.Status)
	require.NotNil(t, final.ErrorMsg)
	assert.Equal(t, "Failed to download trace", *final.ErrorMsg)
}

// TestCalibrationRoundTrip_Integration fits, persists and reloads a calibration
func TestCalibrationRoundTrip_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := SetupIntegrationTest(t)
	ctx := context.Background()

	repo := postgres.NewPostgresCalibrationRepository(tc.db)
	record, err := NewCalibrationService(repo, calibration.DefaultFitOptions()).Fit(ctx, calibrationBody(1))
	require.NoError(t, err)

	// A fresh service has an empty cache and must load from the database.
	fresh := NewCalibrationService(repo, calibration.DefaultFitOptions())
	out, err := fresh.Invert(ctx, uuid.MustParse(record.ID), []float64{2.845e9 + 2e9 - 1e3}, 2.845e9)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, out.Currents[0], 1e-6)
}
