package reconcile_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devix/thermoscan/internal/analysis"
	"github.com/devix/thermoscan/internal/cache"
	"github.com/devix/thermoscan/internal/detector"
	imagemock "github.com/devix/thermoscan/internal/imagestore/mock"
	"github.com/devix/thermoscan/internal/reconcile"
	"github.com/devix/thermoscan/internal/store"
	storemock "github.com/devix/thermoscan/internal/store/mock"
	"github.com/devix/thermoscan/internal/tuning"
	"github.com/devix/thermoscan/pkg/models"
)

// memCache satisfies cache.Cache with a map.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]byte(nil), value...)
	return nil
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memCache) Ping(ctx context.Context) error { return nil }

// memQueue satisfies tuning.Queue with a slice.
type memQueue struct {
	mu    sync.Mutex
	tasks []detector.ThresholdFeedback
}

func (q *memQueue) Enqueue(ctx context.Context, fb detector.ThresholdFeedback) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, fb)
	return nil
}

func (q *memQueue) Requeue(ctx context.Context, task *tuning.Task) error {
	return q.Enqueue(ctx, task.Feedback)
}

func (q *memQueue) Dequeue(ctx context.Context, timeout time.Duration) (*tuning.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, nil
	}
	fb := q.tasks[0]
	q.tasks = q.tasks[1:]
	return &tuning.Task{ID: uuid.New(), Feedback: fb}, nil
}

type fixture struct {
	svc    *reconcile.Service
	store  *storemock.MemoryStore
	images *imagemock.MemoryStore
	cache  *memCache
	queue  *memQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  storemock.NewMemoryStore(),
		images: imagemock.NewMemoryStore(),
		cache:  newMemCache(),
		queue:  &memQueue{},
	}
	f.svc = reconcile.NewService(f.store, f.images, f.cache, f.queue)

	require.NoError(t, f.store.CreateTransformer(context.Background(), &models.Transformer{
		ID: uuid.New(),
		No: "AZ-8801",
	}))
	return f
}

// seedInspection creates an inspection, optionally with a thermal image.
func (f *fixture) seedInspection(t *testing.T, withImage bool) string {
	t.Helper()
	ctx := context.Background()

	insp := &models.Inspection{
		ID:            uuid.New(),
		TransformerNo: "AZ-8801",
		Date:          "2026-08-15",
		Time:          "09:30",
		Status:        models.StatusNoImage,
	}
	require.NoError(t, f.store.CreateInspection(ctx, insp))

	if withImage {
		ref, err := f.images.Save(ctx, "thermal.png", []byte("thermal-bytes"))
		require.NoError(t, err)
		require.NoError(t, f.store.UpsertInspectionImage(ctx, &models.InspectionImage{
			ID:            uuid.New(),
			InspectionNo:  insp.No,
			TransformerNo: "AZ-8801",
			ImageRef:      ref,
			Condition:     models.ConditionSunny,
			UploadedBy:    "A. Perera",
			UploadedDate:  "2026-08-15",
			UploadedTime:  "09:45",
		}))
	}
	return insp.No
}

func (f *fixture) seedBaseline(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	sunny, err := f.images.Save(ctx, "sunny.png", []byte("sunny-bytes"))
	require.NoError(t, err)
	cloudy, err := f.images.Save(ctx, "cloudy.png", []byte("cloudy-bytes"))
	require.NoError(t, err)
	rainy, err := f.images.Save(ctx, "rainy.png", []byte("rainy-bytes"))
	require.NoError(t, err)

	require.NoError(t, f.store.UpsertBaselineImageSet(ctx, &models.BaselineImageSet{
		ID:             uuid.New(),
		TransformerNo:  "AZ-8801",
		SunnyImageRef:  sunny,
		CloudyImageRef: cloudy,
		RainyImageRef:  rainy,
		UploadedBy:     "B. Silva",
		UploadedDate:   "2026-08-10",
		UploadedTime:   "14:00",
	}))
}

func (f *fixture) seedDetections(t *testing.T, inspectionNo string) {
	t.Helper()
	fault := "loose_joint"
	sev := 0.82
	require.NoError(t, f.store.ReplaceDetectionResults(context.Background(), inspectionNo,
		[]*models.DetectionResult{
			{
				ID:           uuid.New(),
				InspectionNo: inspectionNo,
				Finding:      models.Finding{FaultType: &fault, Severity: &sev},
			},
		}))
}

// --- Comparison ---

func TestComparison_MatchesBaselineByCondition(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)
	f.seedBaseline(t)
	f.seedDetections(t, no)

	cmp, err := f.svc.Comparison(context.Background(), no)
	require.NoError(t, err)

	require.NotNil(t, cmp.Thermal)
	assert.Equal(t, []byte("thermal-bytes"), cmp.Thermal.Image)
	assert.Equal(t, "A. Perera", cmp.Thermal.UploadedBy)

	// Image was uploaded under sunny condition, so the sunny baseline matches.
	require.NotNil(t, cmp.Baseline)
	assert.Equal(t, []byte("sunny-bytes"), cmp.Baseline.Image)
	assert.Equal(t, "B. Silva", cmp.Baseline.UploadedBy)

	assert.Equal(t, reconcile.SourceDetection, cmp.Source)
	require.Len(t, cmp.Findings, 1)
}

func TestComparison_MissingImagesAreNullNotError(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, false)

	cmp, err := f.svc.Comparison(context.Background(), no)
	require.NoError(t, err)

	assert.Nil(t, cmp.Thermal)
	assert.Nil(t, cmp.Baseline)
	assert.Equal(t, reconcile.SourceNone, cmp.Source)
	assert.Empty(t, cmp.Findings)
}

func TestComparison_EvaluationsWin(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)
	f.seedDetections(t, no)

	fault := "full_wire_overload"
	notes := "confirmed on site"
	require.NoError(t, f.store.ReplaceEvaluationResults(context.Background(), no,
		[]*models.EvaluationResult{
			{
				ID:            uuid.New(),
				InspectionNo:  no,
				TransformerNo: "AZ-8801",
				Finding:       models.Finding{FaultType: &fault},
				Notes:         &notes,
				EvaluatedBy:   "B. Silva",
				EvaluatedDate: "2026-08-16",
			},
		}))

	cmp, err := f.svc.Comparison(context.Background(), no)
	require.NoError(t, err)

	assert.Equal(t, reconcile.SourceEvaluation, cmp.Source)
	require.Len(t, cmp.Findings, 1)
	require.NotNil(t, cmp.Findings[0].FaultType)
	assert.Equal(t, "full_wire_overload", *cmp.Findings[0].FaultType)
	assert.Equal(t, "B. Silva", cmp.Findings[0].EvaluatedBy)
	require.NotNil(t, cmp.Findings[0].Notes)
	assert.Equal(t, "confirmed on site", *cmp.Findings[0].Notes)
}

func TestComparison_CachesResult(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)
	f.seedDetections(t, no)

	_, err := f.svc.Comparison(context.Background(), no)
	require.NoError(t, err)

	_, ok, err := f.cache.Get(context.Background(), cache.ComparisonKey(no))
	require.NoError(t, err)
	assert.True(t, ok)

	// Second call is served from the cache even when the store goes away.
	f.store.FailWith = assert.AnError
	cmp, err := f.svc.Comparison(context.Background(), no)
	require.NoError(t, err)
	assert.Equal(t, no, cmp.InspectionNo)
}

// stubDetector returns a fixed finding list for every image.
type stubDetector struct {
	findings []models.Finding
}

func (d *stubDetector) Predict(ctx context.Context, filename string, image []byte) ([]models.Finding, error) {
	return d.findings, nil
}

func (d *stubDetector) UpdateThresholds(ctx context.Context, fb detector.ThresholdFeedback) error {
	return nil
}

func TestComparison_FreshAfterAnalysisPass(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)
	ctx := context.Background()
	require.NoError(t, f.store.UpdateInspectionStatus(ctx, no, models.StatusPendingAnalysis))

	// Requested before any analysis ran: no findings yet, and the empty
	// payload lands in the cache.
	before, err := f.svc.Comparison(ctx, no)
	require.NoError(t, err)
	assert.Equal(t, reconcile.SourceNone, before.Source)
	assert.Empty(t, before.Findings)

	fault := "loose_joint"
	sched := analysis.NewScheduler(f.store, f.images, &stubDetector{
		findings: []models.Finding{{FaultType: &fault}},
	}, f.cache, time.Second)
	require.NoError(t, sched.RunOnce(ctx))

	after, err := f.svc.Comparison(ctx, no)
	require.NoError(t, err)
	assert.Equal(t, reconcile.SourceDetection, after.Source)
	require.Len(t, after.Findings, 1)
	require.NotNil(t, after.Findings[0].FaultType)
	assert.Equal(t, "loose_joint", *after.Findings[0].FaultType)
}

func TestComparison_MissingInspection(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Comparison(context.Background(), "99999")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- Report ---

func TestReport_SideBySide(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)
	f.seedDetections(t, no)

	fault := "loose_joint"
	require.NoError(t, f.store.ReplaceEvaluationResults(context.Background(), no,
		[]*models.EvaluationResult{
			{
				ID:            uuid.New(),
				InspectionNo:  no,
				TransformerNo: "AZ-8801",
				Finding:       models.Finding{FaultType: &fault},
				EvaluatedBy:   "B. Silva",
				EvaluatedDate: "2026-08-16 10:15:00",
			},
		}))

	rep, err := f.svc.Report(context.Background(), no)
	require.NoError(t, err)

	assert.Len(t, rep.ModelPredicted, 1)
	assert.Len(t, rep.FinalAccepted, 1)
	assert.Equal(t, reconcile.SourceEvaluation, rep.Authoritative)
	assert.Equal(t, "B. Silva", rep.EvaluatedBy)
}

func TestReport_DetectionsOnly(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)
	f.seedDetections(t, no)

	rep, err := f.svc.Report(context.Background(), no)
	require.NoError(t, err)

	assert.Equal(t, reconcile.SourceDetection, rep.Authoritative)
	assert.Empty(t, rep.FinalAccepted)
	assert.Empty(t, rep.EvaluatedBy)
}

// --- SubmitEvaluations ---

func TestSubmitEvaluations_ReplacesAndAdvancesStatus(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)
	f.seedDetections(t, no)
	ctx := context.Background()

	faultA := "loose_joint"
	batch := []reconcile.EvaluationInput{
		{Finding: models.Finding{FaultType: &faultA}, EvaluatedBy: "B. Silva", EvaluatedDate: "2026-08-16"},
	}
	first, err := f.svc.SubmitEvaluations(ctx, no, batch)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "AZ-8801", first[0].TransformerNo)

	insp, err := f.store.GetInspection(ctx, no)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEvaluated, insp.Status)

	// A second submission replaces, never merges.
	faultB := "point_overload"
	second, err := f.svc.SubmitEvaluations(ctx, no, []reconcile.EvaluationInput{
		{Finding: models.Finding{FaultType: &faultB}, EvaluatedBy: "B. Silva", EvaluatedDate: "2026-08-17"},
	})
	require.NoError(t, err)
	require.Len(t, second, 1)

	stored, err := f.store.ListEvaluationResults(ctx, no)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "point_overload", *stored[0].FaultType)
}

func TestSubmitEvaluations_EmptyBatchRejected(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)

	_, err := f.svc.SubmitEvaluations(context.Background(), no, nil)
	assert.Error(t, err)
}

func TestSubmitEvaluations_QueuesThresholdFeedback(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)
	f.seedDetections(t, no)

	fault := "loose_joint"
	_, err := f.svc.SubmitEvaluations(context.Background(), no, []reconcile.EvaluationInput{
		{Finding: models.Finding{FaultType: &fault}, EvaluatedBy: "B. Silva", EvaluatedDate: "2026-08-16"},
	})
	require.NoError(t, err)

	require.Len(t, f.queue.tasks, 1)
	fb := f.queue.tasks[0]
	assert.Len(t, fb.CurrentDetections, 1)
	assert.Len(t, fb.Edits, 1)
	assert.NotEmpty(t, fb.ImageURL)
}

func TestSubmitEvaluations_InvalidatesComparisonCache(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)
	f.seedDetections(t, no)
	ctx := context.Background()

	_, err := f.svc.Comparison(ctx, no)
	require.NoError(t, err)

	fault := "loose_joint"
	_, err = f.svc.SubmitEvaluations(ctx, no, []reconcile.EvaluationInput{
		{Finding: models.Finding{FaultType: &fault}, EvaluatedBy: "B. Silva", EvaluatedDate: "2026-08-16"},
	})
	require.NoError(t, err)

	_, ok, err := f.cache.Get(ctx, cache.ComparisonKey(no))
	require.NoError(t, err)
	assert.False(t, ok)
}

// --- LastUpdated ---

func TestLastUpdated_PrefersEvaluation(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)

	fault := "loose_joint"
	require.NoError(t, f.store.ReplaceEvaluationResults(context.Background(), no,
		[]*models.EvaluationResult{
			{
				ID:            uuid.New(),
				InspectionNo:  no,
				Finding:       models.Finding{FaultType: &fault},
				EvaluatedBy:   "B. Silva",
				EvaluatedDate: "2026-08-16 10:15:00",
			},
		}))

	date, tm, err := f.svc.LastUpdated(context.Background(), no)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-16", date)
	assert.Equal(t, "10:15:00", tm)
}

func TestLastUpdated_PicksLatestEvaluationInBatch(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)

	fault := "loose_joint"
	require.NoError(t, f.store.ReplaceEvaluationResults(context.Background(), no,
		[]*models.EvaluationResult{
			{
				ID:            uuid.New(),
				InspectionNo:  no,
				Finding:       models.Finding{FaultType: &fault},
				EvaluatedBy:   "B. Silva",
				EvaluatedDate: "2026-08-16 10:15:00",
			},
			{
				ID:            uuid.New(),
				InspectionNo:  no,
				Finding:       models.Finding{FaultType: &fault},
				EvaluatedBy:   "B. Silva",
				EvaluatedDate: "2026-08-18T08:00:00",
			},
			{
				ID:            uuid.New(),
				InspectionNo:  no,
				Finding:       models.Finding{FaultType: &fault},
				EvaluatedBy:   "B. Silva",
				EvaluatedDate: "2026-08-17 23:59:59",
			},
		}))

	date, tm, err := f.svc.LastUpdated(context.Background(), no)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-18", date)
	assert.Equal(t, "08:00:00", tm)
}

func TestLastUpdated_FallsBackToImageUpload(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, true)

	date, tm, err := f.svc.LastUpdated(context.Background(), no)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-15", date)
	assert.Equal(t, "09:45", tm)
}

func TestLastUpdated_FallsBackToInspection(t *testing.T) {
	f := newFixture(t)
	no := f.seedInspection(t, false)

	date, tm, err := f.svc.LastUpdated(context.Background(), no)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-15", date)
	assert.Equal(t, "09:30", tm)
}
