package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/devix/thermoscan/internal/api/middleware"
	"github.com/devix/thermoscan/internal/api/response"
)

// Dependencies holds all handler dependencies for the router.
type Dependencies struct {
	HealthHandler http.HandlerFunc

	CreateTransformer http.HandlerFunc
	GetTransformer    http.HandlerFunc
	ListTransformers  http.HandlerFunc
	UpdateTransformer http.HandlerFunc
	DeleteTransformer http.HandlerFunc

	SetBaseline    http.HandlerFunc
	GetBaseline    http.HandlerFunc
	DeleteBaseline http.HandlerFunc

	CreateInspection           http.HandlerFunc
	GetInspection              http.HandlerFunc
	ListInspections            http.HandlerFunc
	ListTransformerInspections http.HandlerFunc
	UpdateInspection           http.HandlerFunc
	DeleteInspection           http.HandlerFunc
	AttachThermalImage         http.HandlerFunc

	Comparison        http.HandlerFunc
	Report            http.HandlerFunc
	SubmitEvaluations http.HandlerFunc
	LastUpdated       http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Route("/api/v1/transformers", func(r chi.Router) {
		r.Post("/", orNotImplemented(deps.CreateTransformer))
		r.Get("/", orNotImplemented(deps.ListTransformers))
		r.Get("/{transformerNo}", orNotImplemented(deps.GetTransformer))
		r.Put("/{transformerNo}", orNotImplemented(deps.UpdateTransformer))
		r.Delete("/{transformerNo}", orNotImplemented(deps.DeleteTransformer))

		r.Put("/{transformerNo}/baseline", orNotImplemented(deps.SetBaseline))
		r.Get("/{transformerNo}/baseline", orNotImplemented(deps.GetBaseline))
		r.Delete("/{transformerNo}/baseline", orNotImplemented(deps.DeleteBaseline))

		r.Get("/{transformerNo}/inspections", orNotImplemented(deps.ListTransformerInspections))
	})

	r.Route("/api/v1/inspections", func(r chi.Router) {
		r.Post("/", orNotImplemented(deps.CreateInspection))
		r.Get("/", orNotImplemented(deps.ListInspections))
		r.Get("/{inspectionNo}", orNotImplemented(deps.GetInspection))
		r.Put("/{inspectionNo}", orNotImplemented(deps.UpdateInspection))
		r.Delete("/{inspectionNo}", orNotImplemented(deps.DeleteInspection))

		r.Put("/{inspectionNo}/thermal-image", orNotImplemented(deps.AttachThermalImage))
		r.Get("/{inspectionNo}/comparison", orNotImplemented(deps.Comparison))
		r.Get("/{inspectionNo}/report", orNotImplemented(deps.Report))
		r.Post("/{inspectionNo}/evaluations", orNotImplemented(deps.SubmitEvaluations))
		r.Get("/{inspectionNo}/last-updated", orNotImplemented(deps.LastUpdated))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
