package handler

import (
	"encoding/json"
	"net/http"

	"go-forum-app/internal/middleware"
	"go-forum-app/internal/service"
)

// APIHandler serves the admin JSON endpoints for moderation.
type APIHandler struct {
	topics *service.TopicService
	posts  *service.PostService
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(topics *service.TopicService, posts *service.PostService) *APIHandler {
	return &APIHandler{topics: topics, posts: posts}
}

type postPatch struct {
	Hidden *bool `json:"hidden"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) *middleware.AppError {
	body, err := json.Marshal(v)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to encode response", Code: http.StatusInternalServerError}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
	return nil
}

// listTopics returns a page of all topics, hidden ones included.
func (h *APIHandler) listTopics(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	topics, err := h.topics.ListAll(r.Context(), pageParam(r))
	if err != nil {
		return appError(err, "Failed to list topics")
	}
	return writeJSON(w, http.StatusOK, map[string]interface{}{"topics": topics, "page": pageParam(r)})
}

func (h *APIHandler) getTopic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	topic, _, err := h.topics.LoadTopic(r.Context(), id)
	if err != nil {
		return appError(err, "Topic not found")
	}
	return writeJSON(w, http.StatusOK, topic)
}

// patchTopic pins, closes or hides a topic.
func (h *APIHandler) patchTopic(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	var patch service.TopicPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		return badRequest("Invalid JSON body")
	}
	topic, err := h.topics.Moderate(r.Context(), id, patch)
	if err != nil {
		return appError(err, "Failed to update topic")
	}
	return writeJSON(w, http.StatusOK, topic)
}

// patchPost hides or shows a reply. The topic's aggregates follow.
func (h *APIHandler) patchPost(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	var patch postPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil || patch.Hidden == nil {
		return badRequest(`Body must be {"hidden": true|false}`)
	}
	post, err := h.posts.SetHidden(r.Context(), id, *patch.Hidden)
	if err != nil {
		return appError(err, "Failed to update post")
	}
	return writeJSON(w, http.StatusOK, post)
}

func (h *APIHandler) deletePost(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	if err := h.posts.DeletePost(r.Context(), id); err != nil {
		return appError(err, "Failed to delete post")
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
