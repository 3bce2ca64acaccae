package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devix/thermoscan/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Transformers ---

func (s *PostgresStore) CreateTransformer(ctx context.Context, t *models.Transformer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transformers (id, transformer_no, type, pole_no, region, location, capacity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.No, t.Type, t.PoleNo, t.Region, t.Location, t.Capacity, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create transformer: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTransformer(ctx context.Context, transformerNo string) (*models.Transformer, error) {
	var t models.Transformer
	err := s.pool.QueryRow(ctx,
		`SELECT id, transformer_no, type, pole_no, region, location, capacity, created_at, updated_at
		 FROM transformers WHERE transformer_no = $1`, transformerNo,
	).Scan(&t.ID, &t.No, &t.Type, &t.PoleNo, &t.Region, &t.Location, &t.Capacity, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transformer: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) ListTransformers(ctx context.Context) ([]*models.Transformer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, transformer_no, type, pole_no, region, location, capacity, created_at, updated_at
		 FROM transformers ORDER BY transformer_no`)
	if err != nil {
		return nil, fmt.Errorf("list transformers: %w", err)
	}
	defer rows.Close()

	var out []*models.Transformer
	for rows.Next() {
		var t models.Transformer
		if err := rows.Scan(&t.ID, &t.No, &t.Type, &t.PoleNo, &t.Region, &t.Location, &t.Capacity,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transformer: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateTransformer(ctx context.Context, t *models.Transformer) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE transformers SET type = $2, pole_no = $3, region = $4, location = $5, capacity = $6, updated_at = NOW()
		 WHERE transformer_no = $1`,
		t.No, t.Type, t.PoleNo, t.Region, t.Location, t.Capacity)
	if err != nil {
		return fmt.Errorf("update transformer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTransformer(ctx context.Context, transformerNo string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete transformer: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM transformers WHERE transformer_no = $1`, transformerNo)
	if err != nil {
		return fmt.Errorf("delete transformer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	for _, q := range []string{
		`DELETE FROM baseline_image_sets WHERE transformer_no = $1`,
		`DELETE FROM detection_results WHERE inspection_no IN (SELECT inspection_no FROM inspections WHERE transformer_no = $1)`,
		`DELETE FROM evaluation_results WHERE inspection_no IN (SELECT inspection_no FROM inspections WHERE transformer_no = $1)`,
		`DELETE FROM inspection_images WHERE transformer_no = $1`,
		`DELETE FROM inspections WHERE transformer_no = $1`,
	} {
		if _, err := tx.Exec(ctx, q, transformerNo); err != nil {
			return fmt.Errorf("cascade delete transformer: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// --- Baseline image sets ---

func (s *PostgresStore) UpsertBaselineImageSet(ctx context.Context, b *models.BaselineImageSet) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO baseline_image_sets (id, transformer_no, sunny_image_ref, cloudy_image_ref, rainy_image_ref, uploaded_by, uploaded_date, uploaded_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (transformer_no) DO UPDATE SET
		   sunny_image_ref = EXCLUDED.sunny_image_ref,
		   cloudy_image_ref = EXCLUDED.cloudy_image_ref,
		   rainy_image_ref = EXCLUDED.rainy_image_ref,
		   uploaded_by = EXCLUDED.uploaded_by,
		   uploaded_date = EXCLUDED.uploaded_date,
		   uploaded_time = EXCLUDED.uploaded_time,
		   updated_at = NOW()`,
		b.ID, b.TransformerNo, b.SunnyImageRef, b.CloudyImageRef, b.RainyImageRef,
		b.UploadedBy, b.UploadedDate, b.UploadedTime, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert baseline image set: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBaselineImageSet(ctx context.Context, transformerNo string) (*models.BaselineImageSet, error) {
	var b models.BaselineImageSet
	err := s.pool.QueryRow(ctx,
		`SELECT id, transformer_no, sunny_image_ref, cloudy_image_ref, rainy_image_ref, uploaded_by, uploaded_date, uploaded_time, created_at, updated_at
		 FROM baseline_image_sets WHERE transformer_no = $1`, transformerNo,
	).Scan(&b.ID, &b.TransformerNo, &b.SunnyImageRef, &b.CloudyImageRef, &b.RainyImageRef,
		&b.UploadedBy, &b.UploadedDate, &b.UploadedTime, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get baseline image set: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) DeleteBaselineImageSet(ctx context.Context, transformerNo string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM baseline_image_sets WHERE transformer_no = $1`, transformerNo)
	if err != nil {
		return fmt.Errorf("delete baseline image set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Inspections ---

func (s *PostgresStore) CreateInspection(ctx context.Context, insp *models.Inspection) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create inspection: %w", err)
	}
	defer tx.Rollback(ctx)

	var next int64
	if err := tx.QueryRow(ctx, `SELECT nextval('inspection_no_seq')`).Scan(&next); err != nil {
		return fmt.Errorf("allocate inspection number: %w", err)
	}
	insp.No = fmt.Sprintf("%05d", next)

	_, err = tx.Exec(ctx,
		`INSERT INTO inspections (id, inspection_no, transformer_no, inspection_date, inspection_time, branch, inspected_by, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		insp.ID, insp.No, insp.TransformerNo, insp.Date, insp.Time, insp.Branch, insp.InspectedBy,
		insp.Status, insp.CreatedAt, insp.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create inspection: %w", err)
	}

	return tx.Commit(ctx)
}

const inspectionColumns = `id, inspection_no, transformer_no, inspection_date, inspection_time, branch, inspected_by, status, created_at, updated_at`

func scanInspection(row pgx.Row) (*models.Inspection, error) {
	var i models.Inspection
	err := row.Scan(&i.ID, &i.No, &i.TransformerNo, &i.Date, &i.Time, &i.Branch, &i.InspectedBy,
		&i.Status, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *PostgresStore) GetInspection(ctx context.Context, inspectionNo string) (*models.Inspection, error) {
	insp, err := scanInspection(s.pool.QueryRow(ctx,
		`SELECT `+inspectionColumns+` FROM inspections WHERE inspection_no = $1`, inspectionNo))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get inspection: %w", err)
	}
	return insp, nil
}

func (s *PostgresStore) listInspections(ctx context.Context, query string, args ...any) ([]*models.Inspection, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	defer rows.Close()

	var out []*models.Inspection
	for rows.Next() {
		insp, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inspection: %w", err)
		}
		out = append(out, insp)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListInspections(ctx context.Context) ([]*models.Inspection, error) {
	return s.listInspections(ctx,
		`SELECT `+inspectionColumns+` FROM inspections ORDER BY inspection_no`)
}

func (s *PostgresStore) ListInspectionsByTransformer(ctx context.Context, transformerNo string) ([]*models.Inspection, error) {
	return s.listInspections(ctx,
		`SELECT `+inspectionColumns+` FROM inspections WHERE transformer_no = $1 ORDER BY inspection_no`, transformerNo)
}

func (s *PostgresStore) ListInspectionsByStatus(ctx context.Context, status models.InspectionStatus) ([]*models.Inspection, error) {
	return s.listInspections(ctx,
		`SELECT `+inspectionColumns+` FROM inspections WHERE status = $1 ORDER BY inspection_no`, status)
}

func (s *PostgresStore) UpdateInspection(ctx context.Context, insp *models.Inspection) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE inspections SET inspection_date = $2, inspection_time = $3, branch = $4, inspected_by = $5, updated_at = NOW()
		 WHERE inspection_no = $1`,
		insp.No, insp.Date, insp.Time, insp.Branch, insp.InspectedBy)
	if err != nil {
		return fmt.Errorf("update inspection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateInspectionStatus(ctx context.Context, inspectionNo string, status models.InspectionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE inspections SET status = $2, updated_at = NOW() WHERE inspection_no = $1`,
		inspectionNo, status)
	if err != nil {
		return fmt.Errorf("update inspection status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteInspection(ctx context.Context, inspectionNo string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete inspection: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM inspections WHERE inspection_no = $1`, inspectionNo)
	if err != nil {
		return fmt.Errorf("delete inspection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	for _, q := range []string{
		`DELETE FROM inspection_images WHERE inspection_no = $1`,
		`DELETE FROM detection_results WHERE inspection_no = $1`,
		`DELETE FROM evaluation_results WHERE inspection_no = $1`,
	} {
		if _, err := tx.Exec(ctx, q, inspectionNo); err != nil {
			return fmt.Errorf("cascade delete inspection: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// --- Inspection images ---

func (s *PostgresStore) UpsertInspectionImage(ctx context.Context, img *models.InspectionImage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO inspection_images (id, inspection_no, transformer_no, image_ref, condition, uploaded_by, uploaded_date, uploaded_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (inspection_no) DO UPDATE SET
		   image_ref = EXCLUDED.image_ref,
		   condition = EXCLUDED.condition,
		   uploaded_by = EXCLUDED.uploaded_by,
		   uploaded_date = EXCLUDED.uploaded_date,
		   uploaded_time = EXCLUDED.uploaded_time,
		   updated_at = NOW()`,
		img.ID, img.InspectionNo, img.TransformerNo, img.ImageRef, img.Condition,
		img.UploadedBy, img.UploadedDate, img.UploadedTime, img.CreatedAt, img.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert inspection image: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetInspectionImage(ctx context.Context, inspectionNo string) (*models.InspectionImage, error) {
	var img models.InspectionImage
	err := s.pool.QueryRow(ctx,
		`SELECT id, inspection_no, transformer_no, image_ref, condition, uploaded_by, uploaded_date, uploaded_time, created_at, updated_at
		 FROM inspection_images WHERE inspection_no = $1`, inspectionNo,
	).Scan(&img.ID, &img.InspectionNo, &img.TransformerNo, &img.ImageRef, &img.Condition,
		&img.UploadedBy, &img.UploadedDate, &img.UploadedTime, &img.CreatedAt, &img.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get inspection image: %w", err)
	}
	return &img, nil
}

// --- Detection results ---

func (s *PostgresStore) ReplaceDetectionResults(ctx context.Context, inspectionNo string, results []*models.DetectionResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace detection results: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM detection_results WHERE inspection_no = $1`, inspectionNo); err != nil {
		return fmt.Errorf("clear detection results: %w", err)
	}

	for _, r := range results {
		_, err := tx.Exec(ctx,
			`INSERT INTO detection_results (id, inspection_no, anomaly_status, fault_type, severity, confidence, x_coordinate, y_coordinate, bbox, area_px, hotspot_x, hotspot_y, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())`,
			r.ID, inspectionNo, r.AnomalyStatus, r.FaultType, r.Severity, r.Confidence,
			r.XCoordinate, r.YCoordinate, r.BBox, r.AreaPx, r.HotspotX, r.HotspotY)
		if err != nil {
			return fmt.Errorf("insert detection result: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListDetectionResults(ctx context.Context, inspectionNo string) ([]*models.DetectionResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, inspection_no, anomaly_status, fault_type, severity, confidence, x_coordinate, y_coordinate, bbox, area_px, hotspot_x, hotspot_y, created_at
		 FROM detection_results WHERE inspection_no = $1 ORDER BY created_at, id`, inspectionNo)
	if err != nil {
		return nil, fmt.Errorf("list detection results: %w", err)
	}
	defer rows.Close()

	var out []*models.DetectionResult
	for rows.Next() {
		var r models.DetectionResult
		if err := rows.Scan(&r.ID, &r.InspectionNo, &r.AnomalyStatus, &r.FaultType, &r.Severity,
			&r.Confidence, &r.XCoordinate, &r.YCoordinate, &r.BBox, &r.AreaPx, &r.HotspotX,
			&r.HotspotY, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan detection result: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteDetectionResults(ctx context.Context, inspectionNo string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM detection_results WHERE inspection_no = $1`, inspectionNo); err != nil {
		return fmt.Errorf("delete detection results: %w", err)
	}
	return nil
}

// --- Evaluation results ---

func (s *PostgresStore) ReplaceEvaluationResults(ctx context.Context, inspectionNo string, results []*models.EvaluationResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace evaluation results: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM evaluation_results WHERE inspection_no = $1`, inspectionNo); err != nil {
		return fmt.Errorf("clear evaluation results: %w", err)
	}

	for _, r := range results {
		_, err := tx.Exec(ctx,
			`INSERT INTO evaluation_results (id, inspection_no, transformer_no, anomaly_status, fault_type, severity, confidence, x_coordinate, y_coordinate, bbox, area_px, hotspot_x, hotspot_y, notes, evaluated_by, evaluated_date, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())`,
			r.ID, inspectionNo, r.TransformerNo, r.AnomalyStatus, r.FaultType, r.Severity,
			r.Confidence, r.XCoordinate, r.YCoordinate, r.BBox, r.AreaPx, r.HotspotX, r.HotspotY,
			r.Notes, r.EvaluatedBy, r.EvaluatedDate)
		if err != nil {
			return fmt.Errorf("insert evaluation result: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListEvaluationResults(ctx context.Context, inspectionNo string) ([]*models.EvaluationResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, inspection_no, transformer_no, anomaly_status, fault_type, severity, confidence, x_coordinate, y_coordinate, bbox, area_px, hotspot_x, hotspot_y, notes, evaluated_by, evaluated_date, created_at
		 FROM evaluation_results WHERE inspection_no = $1 ORDER BY created_at, id`, inspectionNo)
	if err != nil {
		return nil, fmt.Errorf("list evaluation results: %w", err)
	}
	defer rows.Close()

	var out []*models.EvaluationResult
	for rows.Next() {
		var r models.EvaluationResult
		if err := rows.Scan(&r.ID, &r.InspectionNo, &r.TransformerNo, &r.AnomalyStatus, &r.FaultType,
			&r.Severity, &r.Confidence, &r.XCoordinate, &r.YCoordinate, &r.BBox, &r.AreaPx,
			&r.HotspotX, &r.HotspotY, &r.Notes, &r.EvaluatedBy, &r.EvaluatedDate, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation result: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
