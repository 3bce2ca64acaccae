package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devix/thermoscan/internal/api/response"
	"github.com/devix/thermoscan/internal/reconcile"
	"github.com/devix/thermoscan/pkg/models"
)

// ReconcileService defines the comparison/report/evaluation operations the
// handlers depend on.
type ReconcileService interface {
	Comparison(ctx context.Context, inspectionNo string) (*reconcile.Comparison, error)
	Report(ctx context.Context, inspectionNo string) (*reconcile.Report, error)
	SubmitEvaluations(ctx context.Context, inspectionNo string, batch []reconcile.EvaluationInput) ([]*models.EvaluationResult, error)
	LastUpdated(ctx context.Context, inspectionNo string) (string, string, error)
}

// NewComparisonHandler returns the handler for GET /api/v1/inspections/{inspectionNo}/comparison.
func NewComparisonHandler(svc ReconcileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmp, err := svc.Comparison(r.Context(), chi.URLParam(r, "inspectionNo"))
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, cmp)
	}
}

// NewReportHandler returns the handler for GET /api/v1/inspections/{inspectionNo}/report.
func NewReportHandler(svc ReconcileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.Report(r.Context(), chi.URLParam(r, "inspectionNo"))
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, rep)
	}
}

// NewSubmitEvaluationsHandler returns the handler for
// POST /api/v1/inspections/{inspectionNo}/evaluations. The body is a JSON array
// of reviewer findings; it fully replaces any previously submitted batch.
func NewSubmitEvaluationsHandler(svc ReconcileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var batch []reconcile.EvaluationInput
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			badRequest(w, "Invalid JSON body")
			return
		}
		if len(batch) == 0 {
			badRequest(w, "at least one evaluation result is required")
			return
		}

		results, err := svc.SubmitEvaluations(r.Context(), chi.URLParam(r, "inspectionNo"), batch)
		if err != nil {
			serviceError(w, err)
			return
		}
		response.Created(w, results)
	}
}

// NewLastUpdatedHandler returns the handler for GET /api/v1/inspections/{inspectionNo}/last-updated.
func NewLastUpdatedHandler(svc ReconcileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, tm, err := svc.LastUpdated(r.Context(), chi.URLParam(r, "inspectionNo"))
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, map[string]string{
			"last_updated_date": date,
			"last_updated_time": tm,
		})
	}
}
