package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/form/v4"

	"github.com/utafrali/CarCatalog/internal/service"
	apperrors "github.com/utafrali/CarCatalog/pkg/errors"
	"github.com/utafrali/CarCatalog/pkg/validator"
)

var formDecoder = newFormDecoder()

func newFormDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		return strings.TrimSpace(vals[0]), nil
	}, "")
	return d
}

// fields collects per-field problems while a request is decoded.
type fields map[string]string

// check validates dst and returns one 422 error holding both the decode
// problems already in f and the validation failures of the other fields.
func (f fields) check(dst any) error {
	if err := validator.Validate(dst); err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			return err
		}
		for name, msg := range appErr.Fields {
			if _, seen := f[name]; !seen {
				f[name] = msg
			}
		}
	}
	if len(f) == 0 {
		return nil
	}
	return apperrors.Validation(f)
}

func decodeForm(values url.Values, dst any) error {
	f := fields{}
	if err := formDecoder.Decode(dst, values); err != nil {
		var derrs form.DecodeErrors
		if !errors.As(err, &derrs) {
			return apperrors.InvalidInput("malformed form body")
		}
		for name := range derrs {
			f[name] = "must be an integer"
		}
	}
	return f.check(dst)
}

// decodeJSON reports type mismatches per field. The caller runs check once
// it has normalized dst.
func decodeJSON(r *http.Request, dst any) (fields, error) {
	f := fields{}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || typeErr.Field == "" {
			return nil, apperrors.InvalidInput("request body must be a JSON object")
		}
		switch typeErr.Type.Kind() {
		case reflect.Int, reflect.Int64:
			f[typeErr.Field] = "must be an integer"
		default:
			f[typeErr.Field] = "must be a " + typeErr.Type.Kind().String()
		}
	}
	return f, nil
}

// decodeCarRequest reads a car from a form or, for JSON requests, from a
// JSON object.
func decodeCarRequest(r *http.Request) (service.CarInput, error) {
	var in service.CarInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		f, err := decodeJSON(r, &in)
		if err != nil {
			return in, err
		}
		in.Brand = strings.TrimSpace(in.Brand)
		in.Model = strings.TrimSpace(in.Model)
		in.FuelType = strings.TrimSpace(in.FuelType)
		return in, f.check(&in)
	}
	if err := r.ParseForm(); err != nil {
		return in, apperrors.InvalidInput("malformed form body")
	}
	return in, decodeForm(r.PostForm, &in)
}

func decodeReviewRequest(r *http.Request) (service.ReviewInput, error) {
	var in service.ReviewInput
	if err := r.ParseForm(); err != nil {
		return in, apperrors.InvalidInput("malformed form body")
	}
	return in, decodeForm(r.PostForm, &in)
}
