package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/CarCatalog/pkg/httputil"
)

// APIHandler serves the read-only JSON API.
type APIHandler struct {
	svc    CatalogService
	logger *slog.Logger
}

func NewAPIHandler(svc CatalogService, logger *slog.Logger) *APIHandler {
	return &APIHandler{svc: svc, logger: logger}
}

// ListCars handles GET /api/v1/cars.
func (h *APIHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.svc.ListCars(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cars})
}

// GetCar handles GET /api/v1/cars/{id}.
func (h *APIHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	details, err := h.svc.GetCarDetails(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: details})
}
