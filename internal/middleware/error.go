package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go-forum-app/internal/logger"
	"go-forum-app/internal/view"
)

// AppError represents a custom error type for the application.
type AppError struct {
	Error   error
	Message string
	Code    int
}

// AppHandler is a custom handler function type that returns an AppError.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// Error converts handler errors into error pages, or JSON bodies for /api
// routes, and recovers panics.
func Error(log logger.Logger, v *view.View) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}
					log.Error(err, "Panic recovered")
					writeError(w, r, v, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
				}
			}()

			if appErr := next(w, r); appErr != nil {
				if appErr.Code >= http.StatusInternalServerError {
					log.Error(appErr.Error, appErr.Message)
				} else {
					log.Debug(fmt.Sprintf("%s: %v", appErr.Message, appErr.Error))
				}
				writeError(w, r, v, appErr.Code, appErr.Message)
			}
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, v *view.View, code int, message string) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": message, "code": code})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	data := map[string]interface{}{
		"Title":      http.StatusText(code),
		"StatusCode": code,
		"StatusText": message,
	}
	if v == nil || v.Render(w, r, "error.html", data) != nil {
		fmt.Fprintf(w, "Error %d: %s\n", code, message)
	}
}
