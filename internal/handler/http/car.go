package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/CarCatalog/internal/domain"
	"github.com/utafrali/CarCatalog/internal/service"
	apperrors "github.com/utafrali/CarCatalog/pkg/errors"
	"github.com/utafrali/CarCatalog/pkg/httputil"
)

// CatalogService is the part of *service.CatalogService the handlers use.
type CatalogService interface {
	ListCars(ctx context.Context) ([]domain.CarWithStats, error)
	GetCarDetails(ctx context.Context, id int64) (*domain.CarDetails, error)
	CreateCar(ctx context.Context, in service.CarInput) (*service.CreateCarResult, error)
	UpdateCar(ctx context.Context, id int64, in service.CarInput) (*service.Result, error)
	DeleteCar(ctx context.Context, id int64) (*service.Result, error)
	CreateReview(ctx context.Context, carID int64, in service.ReviewInput) (*domain.Review, error)
	DeleteReview(ctx context.Context, id int64) (int64, error)
	AttachImage(ctx context.Context, carID int64, in service.ImageInput) (*service.Result, error)
}

// CarHandler serves the HTML pages and form endpoints.
type CarHandler struct {
	svc       CatalogService
	pages     *Renderer
	maxUpload int64
	logger    *slog.Logger
}

func NewCarHandler(svc CatalogService, pages *Renderer, maxUpload int64, logger *slog.Logger) *CarHandler {
	return &CarHandler{svc: svc, pages: pages, maxUpload: maxUpload, logger: logger}
}

// Index handles GET /.
func (h *CarHandler) Index(w http.ResponseWriter, r *http.Request) {
	cars, err := h.svc.ListCars(r.Context())
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "index", cars)
}

// CreateForm handles GET /create.
func (h *CarHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "create_car", nil)
}

// AddCar handles POST /add.
func (h *CarHandler) AddCar(w http.ResponseWriter, r *http.Request) {
	in, err := decodeCarRequest(r)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	res, err := h.svc.CreateCar(r.Context(), in)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	seeOther(w, r, detailsPath(res.Car.ID), res.Message, res.Warnings)
}

// Details handles GET /details/{id}.
func (h *CarHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	details, err := h.svc.GetCarDetails(r.Context(), id)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	if len(details.Warnings) > 0 {
		q := r.URL.Query()
		for _, warn := range details.Warnings {
			q.Add("warning", warn)
		}
		r.URL.RawQuery = q.Encode()
	}
	h.pages.Render(w, r, http.StatusOK, "details", details)
}

// EditCar handles PUT /edit_car/{id}, from a form or a JSON object.
func (h *CarHandler) EditCar(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	in, err := decodeCarRequest(r)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	res, err := h.svc.UpdateCar(r.Context(), id, in)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	seeOther(w, r, "/", "", res.Warnings)
}

// DeleteCar handles DELETE /delete_car/{id}.
func (h *CarHandler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	res, err := h.svc.DeleteCar(r.Context(), id)
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	seeOther(w, r, "/", "", res.Warnings)
}

// UploadImage handles POST /upload_image/{id} (multipart field "image").
func (h *CarHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}

	// Allow 1MB on top of the image for the other parts of the form.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.pages.Error(w, r, apperrors.InvalidInput("image upload is too large or malformed"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		h.pages.Error(w, r, apperrors.Validation(map[string]string{"image": "is required"}))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	res, err := h.svc.AttachImage(r.Context(), id, service.ImageInput{
		ContentType: contentType,
		Size:        header.Size,
		Data:        file,
	})
	if err != nil {
		h.pages.Error(w, r, err)
		return
	}
	seeOther(w, r, detailsPath(id), "Image uploaded.", res.Warnings)
}

func detailsPath(id int64) string {
	return "/details/" + strconv.FormatInt(id, 10)
}

// seeOther redirects with 303, carrying message and warnings to the next
// page in the query string.
func seeOther(w http.ResponseWriter, r *http.Request, path, message string, warnings []string) {
	q := url.Values{}
	if message != "" {
		q.Set("message", message)
	}
	for _, warn := range warnings {
		q.Add("warning", warn)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
