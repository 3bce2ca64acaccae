package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devix/thermoscan/internal/api/response"
	"github.com/devix/thermoscan/internal/inspection"
	"github.com/devix/thermoscan/pkg/models"
)

// InspectionService defines the lifecycle operations the handlers depend on.
type InspectionService interface {
	Create(ctx context.Context, p inspection.CreateParams) (*models.Inspection, error)
	Get(ctx context.Context, inspectionNo string) (*models.Inspection, error)
	List(ctx context.Context) ([]*models.Inspection, error)
	ListByTransformer(ctx context.Context, transformerNo string) ([]*models.Inspection, error)
	Update(ctx context.Context, inspectionNo string, p inspection.CreateParams) (*models.Inspection, error)
	Delete(ctx context.Context, inspectionNo string) error
	AttachThermalImage(ctx context.Context, inspectionNo string, up inspection.ImageUpload) (*models.InspectionImage, error)
}

type inspectionRequest struct {
	TransformerNo string `json:"transformer_no"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Branch        string `json:"branch"`
	InspectedBy   string `json:"inspected_by"`
}

// NewCreateInspectionHandler returns the handler for POST /api/v1/inspections.
func NewCreateInspectionHandler(svc InspectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inspectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid JSON body")
			return
		}
		if req.TransformerNo == "" {
			badRequest(w, "transformer_no is required")
			return
		}

		insp, err := svc.Create(r.Context(), inspection.CreateParams{
			TransformerNo: req.TransformerNo,
			Date:          req.Date,
			Time:          req.Time,
			Branch:        req.Branch,
			InspectedBy:   req.InspectedBy,
		})
		if err != nil {
			serviceError(w, err)
			return
		}
		response.Created(w, insp)
	}
}

// NewGetInspectionHandler returns the handler for GET /api/v1/inspections/{inspectionNo}.
func NewGetInspectionHandler(svc InspectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		insp, err := svc.Get(r.Context(), chi.URLParam(r, "inspectionNo"))
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, insp)
	}
}

// NewListInspectionsHandler returns the handler for GET /api/v1/inspections.
func NewListInspectionsHandler(svc InspectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		insps, err := svc.List(r.Context())
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, insps)
	}
}

// NewListTransformerInspectionsHandler returns the handler for
// GET /api/v1/transformers/{transformerNo}/inspections.
func NewListTransformerInspectionsHandler(svc InspectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		insps, err := svc.ListByTransformer(r.Context(), chi.URLParam(r, "transformerNo"))
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, insps)
	}
}

// NewUpdateInspectionHandler returns the handler for PUT /api/v1/inspections/{inspectionNo}.
func NewUpdateInspectionHandler(svc InspectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inspectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid JSON body")
			return
		}

		insp, err := svc.Update(r.Context(), chi.URLParam(r, "inspectionNo"), inspection.CreateParams{
			Date:        req.Date,
			Time:        req.Time,
			Branch:      req.Branch,
			InspectedBy: req.InspectedBy,
		})
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, insp)
	}
}

// NewDeleteInspectionHandler returns the handler for DELETE /api/v1/inspections/{inspectionNo}.
func NewDeleteInspectionHandler(svc InspectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "inspectionNo")); err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, map[string]string{"status": "deleted"})
	}
}

// NewAttachThermalImageHandler returns the handler for
// PUT /api/v1/inspections/{inspectionNo}/thermal-image. Multipart form: file
// plus condition and uploaded_by/uploaded_date/uploaded_time.
func NewAttachThermalImageHandler(svc InspectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			badRequest(w, "Invalid multipart form")
			return
		}

		condition := r.FormValue("condition")
		if condition == "" {
			badRequest(w, "condition is required")
			return
		}
		if _, err := models.ParseWeatherCondition(condition); err != nil {
			badRequest(w, err.Error())
			return
		}

		filename, data, err := formFile(r, "file")
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		img, err := svc.AttachThermalImage(r.Context(), chi.URLParam(r, "inspectionNo"), inspection.ImageUpload{
			Filename:     filename,
			Data:         data,
			Condition:    condition,
			UploadedBy:   r.FormValue("uploaded_by"),
			UploadedDate: r.FormValue("uploaded_date"),
			UploadedTime: r.FormValue("uploaded_time"),
		})
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, img)
	}
}
