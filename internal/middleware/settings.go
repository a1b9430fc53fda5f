package middleware

import (
	"net/http"

	"go-forum-app/internal/view"
)

// Settings checks for a "basic=true" query parameter and sets the basic mode
// flag in the request context, so pages render without the stylesheet.
func Settings(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		basic := r.URL.Query().Get("basic") == "true"
		next.ServeHTTP(w, r.WithContext(view.WithBasicMode(r.Context(), basic)))
	})
}
