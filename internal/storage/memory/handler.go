package memory

import (
	"net/http"
	"strings"
)

// Handler serves stored objects under prefix, e.g. "/images/".
func (s *Storage) Handler(prefix string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, prefix)
		data, contentType, ok := s.Object(key)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(data)
	})
}
