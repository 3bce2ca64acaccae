package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devix/thermoscan/internal/api/response"
	"github.com/devix/thermoscan/internal/transformer"
	"github.com/devix/thermoscan/pkg/models"
)

// TransformerService defines the transformer operations the handlers depend on.
type TransformerService interface {
	Create(ctx context.Context, p transformer.CreateParams) (*models.Transformer, error)
	Get(ctx context.Context, transformerNo string) (*models.Transformer, error)
	List(ctx context.Context) ([]*models.Transformer, error)
	Update(ctx context.Context, p transformer.CreateParams) (*models.Transformer, error)
	Delete(ctx context.Context, transformerNo string) error
	SetBaseline(ctx context.Context, transformerNo string, up transformer.BaselineUpload) (*models.BaselineImageSet, error)
	GetBaseline(ctx context.Context, transformerNo string) (*models.BaselineImageSet, error)
	DeleteBaseline(ctx context.Context, transformerNo string) error
}

type transformerRequest struct {
	TransformerNo string `json:"transformer_no"`
	Type          string `json:"type"`
	PoleNo        string `json:"pole_no"`
	Region        string `json:"region"`
	Location      string `json:"location"`
	Capacity      string `json:"capacity"`
}

// NewCreateTransformerHandler returns the handler for POST /api/v1/transformers.
func NewCreateTransformerHandler(svc TransformerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transformerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid JSON body")
			return
		}
		if req.TransformerNo == "" {
			badRequest(w, "transformer_no is required")
			return
		}

		t, err := svc.Create(r.Context(), transformer.CreateParams{
			No:       req.TransformerNo,
			Type:     req.Type,
			PoleNo:   req.PoleNo,
			Region:   req.Region,
			Location: req.Location,
			Capacity: req.Capacity,
		})
		if err != nil {
			serviceError(w, err)
			return
		}
		response.Created(w, t)
	}
}

// NewGetTransformerHandler returns the handler for GET /api/v1/transformers/{transformerNo}.
func NewGetTransformerHandler(svc TransformerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.Get(r.Context(), chi.URLParam(r, "transformerNo"))
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, t)
	}
}

// NewListTransformersHandler returns the handler for GET /api/v1/transformers.
func NewListTransformersHandler(svc TransformerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, err := svc.List(r.Context())
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, ts)
	}
}

// NewUpdateTransformerHandler returns the handler for PUT /api/v1/transformers/{transformerNo}.
func NewUpdateTransformerHandler(svc TransformerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transformerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid JSON body")
			return
		}

		t, err := svc.Update(r.Context(), transformer.CreateParams{
			No:       chi.URLParam(r, "transformerNo"),
			Type:     req.Type,
			PoleNo:   req.PoleNo,
			Region:   req.Region,
			Location: req.Location,
			Capacity: req.Capacity,
		})
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, t)
	}
}

// NewDeleteTransformerHandler returns the handler for DELETE /api/v1/transformers/{transformerNo}.
func NewDeleteTransformerHandler(svc TransformerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "transformerNo")); err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, map[string]string{"status": "deleted"})
	}
}

// NewSetBaselineHandler returns the handler for PUT /api/v1/transformers/{transformerNo}/baseline.
// Multipart form: files sunny, cloudy, rainy plus uploaded_by/uploaded_date/uploaded_time.
func NewSetBaselineHandler(svc TransformerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			badRequest(w, "Invalid multipart form")
			return
		}

		up := transformer.BaselineUpload{
			UploadedBy:   r.FormValue("uploaded_by"),
			UploadedDate: r.FormValue("uploaded_date"),
			UploadedTime: r.FormValue("uploaded_time"),
		}

		var err error
		if up.SunnyName, up.Sunny, err = formFile(r, "sunny"); err != nil {
			badRequest(w, err.Error())
			return
		}
		if up.CloudyName, up.Cloudy, err = formFile(r, "cloudy"); err != nil {
			badRequest(w, err.Error())
			return
		}
		if up.RainyName, up.Rainy, err = formFile(r, "rainy"); err != nil {
			badRequest(w, err.Error())
			return
		}

		b, err := svc.SetBaseline(r.Context(), chi.URLParam(r, "transformerNo"), up)
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, b)
	}
}

// NewGetBaselineHandler returns the handler for GET /api/v1/transformers/{transformerNo}/baseline.
func NewGetBaselineHandler(svc TransformerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.GetBaseline(r.Context(), chi.URLParam(r, "transformerNo"))
		if err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, b)
	}
}

// NewDeleteBaselineHandler returns the handler for DELETE /api/v1/transformers/{transformerNo}/baseline.
func NewDeleteBaselineHandler(svc TransformerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteBaseline(r.Context(), chi.URLParam(r, "transformerNo")); err != nil {
			serviceError(w, err)
			return
		}
		response.JSON(w, map[string]string{"status": "deleted"})
	}
}
