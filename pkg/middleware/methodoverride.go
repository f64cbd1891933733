package middleware

import (
	"net/http"
	"strings"
)

// MethodOverride lets HTML forms reach PUT and DELETE routes: a POST whose
// _method form field (or X-HTTP-Method-Override header) names one of those
// methods is routed as that method.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			m := r.Header.Get("X-HTTP-Method-Override")
			if m == "" && isURLEncodedForm(r) {
				m = r.PostFormValue("_method")
			}
			switch m = strings.ToUpper(strings.TrimSpace(m)); m {
			case http.MethodPut, http.MethodDelete, http.MethodPatch:
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Multipart bodies are left alone: parsing them here would buffer uploads
// before the handler applies its size limit.
func isURLEncodedForm(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}
