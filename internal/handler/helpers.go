package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go-forum-app/internal/data"
	"go-forum-app/internal/middleware"
	"go-forum-app/internal/service"
)

// appError maps a service error to a status code.
func appError(err error, message string) *middleware.AppError {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, data.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrTopicClosed), errors.Is(err, service.ErrNotOwner), errors.Is(err, service.ErrTopicReplied):
		code = http.StatusForbidden
		message = err.Error()
	}
	return &middleware.AppError{Error: err, Message: message, Code: code}
}

func badRequest(message string) *middleware.AppError {
	return &middleware.AppError{Error: errors.New(message), Message: message, Code: http.StatusBadRequest}
}

// idParam reads a positive numeric URL parameter. Anything else is a 404.
func idParam(r *http.Request, name string) (int64, *middleware.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &middleware.AppError{Error: err, Message: "Page not found", Code: http.StatusNotFound}
	}
	return id, nil
}

// pageParam reads the page number from the {page} URL parameter or the
// page query parameter, defaulting to 1.
func pageParam(r *http.Request) int {
	raw := chi.URLParam(r, "page")
	if raw == "" {
		raw = r.URL.Query().Get("page")
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// outOfRange reports a page past the end of a non-empty listing.
func outOfRange(p service.Pagination) *middleware.AppError {
	if p.Page > 1 && p.Page > p.NumPages() {
		return &middleware.AppError{Error: errors.New("invalid page"), Message: "Page not found", Code: http.StatusNotFound}
	}
	return nil
}
