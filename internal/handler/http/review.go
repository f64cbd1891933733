package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/CarCatalog/pkg/httputil"
)

// AddReview handles POST /review/{id}.
func (h *CarHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	carID, err := httputil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	in, err := decodeReviewRequest(r)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if _, err := h.svc.CreateReview(r.Context(), carID, in); err != nil {
		h.pages.Error(w, r, err)
		return
	}
	seeOther(w, r, detailsPath(carID), "", nil)
}

// DeleteReview handles DELETE /delete_review/{review_id}.
func (h *CarHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParseID(chi.URLParam(r, "review_id"))
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	carID, err := h.svc.DeleteReview(r.Context(), id)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	seeOther(w, r, detailsPath(carID), "", nil)
}
