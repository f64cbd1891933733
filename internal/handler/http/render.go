package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/CarCatalog/pkg/errors"
	"github.com/utafrali/CarCatalog/pkg/logger"
)

var pageNames = []string{"index", "create_car", "details", "error"}

var errPageNotFound = &apperrors.AppError{Code: "NOT_FOUND", Message: "page not found", Status: http.StatusNotFound, Err: apperrors.ErrNotFound}

var errTooManyRequests = &apperrors.AppError{Code: "RATE_LIMITED", Message: "too many requests, try again shortly", Status: http.StatusTooManyRequests}

var funcs = template.FuncMap{
	"deref": func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	},
}

// Renderer executes the HTML pages. Each page is parsed together with the
// shared base layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer(fsys fs.FS) (*Renderer, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(fsys, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parse base template: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.Must(base.Clone()).ParseFS(fsys, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// pageData is what every template sees. Message and Warnings come from the
// redirect that led to the page.
type pageData struct {
	Message  string
	Warnings []string
	Data     any
}

type errorData struct {
	Status     int
	StatusText string
	Message    string
	Fields     map[string]string
}

// Render writes page name with status. The page is rendered to a buffer
// first so a template error still yields a clean 500.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	t, ok := rd.pages[name]
	if !ok {
		rd.fail(w, r, fmt.Errorf("unknown page %q", name))
		return
	}

	q := r.URL.Query()
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", pageData{Message: q.Get("message"), Warnings: q["warning"], Data: data}); err != nil {
		rd.fail(w, r, fmt.Errorf("render %s: %w", name, err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Error answers err with the error page. Server-side failures are logged and
// their details hidden.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	data := errorData{Status: status, StatusText: http.StatusText(status), Message: "Something went wrong. Please try again later."}

	var appErr *apperrors.AppError
	if status < http.StatusInternalServerError && errors.As(err, &appErr) {
		data.Message, data.Fields = appErr.Message, appErr.Fields
	} else if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if status == http.StatusServiceUnavailable && errors.As(err, &appErr) {
			data.Message = appErr.Message
		}
	}

	t := rd.pages["error"]
	var buf bytes.Buffer
	if execErr := t.ExecuteTemplate(&buf, "base", pageData{Data: data}); execErr != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (rd *Renderer) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).ErrorContext(r.Context(), "page render failed", slog.String("error", err.Error()))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
