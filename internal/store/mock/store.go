// Package mock provides an in-memory Store for tests.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/devix/thermoscan/internal/store"
	"github.com/devix/thermoscan/pkg/models"
)

// MemoryStore satisfies store.Store with plain maps. It mirrors the Postgres
// implementation's semantics: sequential never-reused inspection numbers,
// upserts keyed on business keys, replace-not-merge result batches.
type MemoryStore struct {
	mu sync.Mutex

	transformers map[string]*models.Transformer
	baselines    map[string]*models.BaselineImageSet
	inspections  map[string]*models.Inspection
	images       map[string]*models.InspectionImage
	detections   map[string][]*models.DetectionResult
	evaluations  map[string][]*models.EvaluationResult

	nextInspectionNo int64

	// FailWith, when set, is returned by every method. Simulates a store outage.
	FailWith error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transformers: make(map[string]*models.Transformer),
		baselines:    make(map[string]*models.BaselineImageSet),
		inspections:  make(map[string]*models.Inspection),
		images:       make(map[string]*models.InspectionImage),
		detections:   make(map[string][]*models.DetectionResult),
		evaluations:  make(map[string][]*models.EvaluationResult),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return m.FailWith
}

// --- Transformers ---

func (m *MemoryStore) CreateTransformer(ctx context.Context, t *models.Transformer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if _, ok := m.transformers[t.No]; ok {
		return store.ErrDuplicateKey
	}
	cp := *t
	m.transformers[t.No] = &cp
	return nil
}

func (m *MemoryStore) GetTransformer(ctx context.Context, transformerNo string) (*models.Transformer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	t, ok := m.transformers[transformerNo]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) ListTransformers(ctx context.Context) ([]*models.Transformer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	out := make([]*models.Transformer, 0, len(m.transformers))
	for _, t := range m.transformers {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].No < out[j].No })
	return out, nil
}

func (m *MemoryStore) UpdateTransformer(ctx context.Context, t *models.Transformer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if _, ok := m.transformers[t.No]; !ok {
		return store.ErrNotFound
	}
	cp := *t
	m.transformers[t.No] = &cp
	return nil
}

func (m *MemoryStore) DeleteTransformer(ctx context.Context, transformerNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if _, ok := m.transformers[transformerNo]; !ok {
		return store.ErrNotFound
	}
	delete(m.transformers, transformerNo)
	delete(m.baselines, transformerNo)
	for no, insp := range m.inspections {
		if insp.TransformerNo == transformerNo {
			delete(m.inspections, no)
			delete(m.images, no)
			delete(m.detections, no)
			delete(m.evaluations, no)
		}
	}
	return nil
}

// --- Baseline image sets ---

func (m *MemoryStore) UpsertBaselineImageSet(ctx context.Context, b *models.BaselineImageSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	cp := *b
	m.baselines[b.TransformerNo] = &cp
	return nil
}

func (m *MemoryStore) GetBaselineImageSet(ctx context.Context, transformerNo string) (*models.BaselineImageSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	b, ok := m.baselines[transformerNo]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) DeleteBaselineImageSet(ctx context.Context, transformerNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if _, ok := m.baselines[transformerNo]; !ok {
		return store.ErrNotFound
	}
	delete(m.baselines, transformerNo)
	return nil
}

// --- Inspections ---

func (m *MemoryStore) CreateInspection(ctx context.Context, insp *models.Inspection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.nextInspectionNo++
	insp.No = fmt.Sprintf("%05d", m.nextInspectionNo)
	cp := *insp
	m.inspections[insp.No] = &cp
	return nil
}

func (m *MemoryStore) GetInspection(ctx context.Context, inspectionNo string) (*models.Inspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	insp, ok := m.inspections[inspectionNo]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *insp
	return &cp, nil
}

func (m *MemoryStore) ListInspections(ctx context.Context) ([]*models.Inspection, error) {
	return m.listInspections(func(*models.Inspection) bool { return true })
}

func (m *MemoryStore) ListInspectionsByTransformer(ctx context.Context, transformerNo string) ([]*models.Inspection, error) {
	return m.listInspections(func(i *models.Inspection) bool { return i.TransformerNo == transformerNo })
}

func (m *MemoryStore) ListInspectionsByStatus(ctx context.Context, status models.InspectionStatus) ([]*models.Inspection, error) {
	return m.listInspections(func(i *models.Inspection) bool { return i.Status == status })
}

func (m *MemoryStore) listInspections(keep func(*models.Inspection) bool) ([]*models.Inspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	var out []*models.Inspection
	for _, insp := range m.inspections {
		if keep(insp) {
			cp := *insp
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].No < out[j].No })
	return out, nil
}

func (m *MemoryStore) UpdateInspection(ctx context.Context, insp *models.Inspection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	existing, ok := m.inspections[insp.No]
	if !ok {
		return store.ErrNotFound
	}
	existing.Date = insp.Date
	existing.Time = insp.Time
	existing.Branch = insp.Branch
	existing.InspectedBy = insp.InspectedBy
	return nil
}

func (m *MemoryStore) UpdateInspectionStatus(ctx context.Context, inspectionNo string, status models.InspectionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	insp, ok := m.inspections[inspectionNo]
	if !ok {
		return store.ErrNotFound
	}
	insp.Status = status
	return nil
}

func (m *MemoryStore) DeleteInspection(ctx context.Context, inspectionNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if _, ok := m.inspections[inspectionNo]; !ok {
		return store.ErrNotFound
	}
	delete(m.inspections, inspectionNo)
	delete(m.images, inspectionNo)
	delete(m.detections, inspectionNo)
	delete(m.evaluations, inspectionNo)
	return nil
}

// --- Inspection images ---

func (m *MemoryStore) UpsertInspectionImage(ctx context.Context, img *models.InspectionImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	cp := *img
	m.images[img.InspectionNo] = &cp
	return nil
}

func (m *MemoryStore) GetInspectionImage(ctx context.Context, inspectionNo string) (*models.InspectionImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	img, ok := m.images[inspectionNo]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *img
	return &cp, nil
}

// --- Detection results ---

func (m *MemoryStore) ReplaceDetectionResults(ctx context.Context, inspectionNo string, results []*models.DetectionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.detections[inspectionNo] = append([]*models.DetectionResult(nil), results...)
	return nil
}

func (m *MemoryStore) ListDetectionResults(ctx context.Context, inspectionNo string) ([]*models.DetectionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	return append([]*models.DetectionResult(nil), m.detections[inspectionNo]...), nil
}

func (m *MemoryStore) DeleteDetectionResults(ctx context.Context, inspectionNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	delete(m.detections, inspectionNo)
	return nil
}

// --- Evaluation results ---

func (m *MemoryStore) ReplaceEvaluationResults(ctx context.Context, inspectionNo string, results []*models.EvaluationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.evaluations[inspectionNo] = append([]*models.EvaluationResult(nil), results...)
	return nil
}

func (m *MemoryStore) ListEvaluationResults(ctx context.Context, inspectionNo string) ([]*models.EvaluationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	return append([]*models.EvaluationResult(nil), m.evaluations[inspectionNo]...), nil
}

var _ store.Store = (*MemoryStore)(nil)
