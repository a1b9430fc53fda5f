package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go-forum-app/internal/middleware"
)

const maxTitleLength = 120

// replyHandler posts a reply to a topic and redirects to its last page.
func (h *ForumHandler) replyHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	u, ok, appErr := h.currentUser(r)
	if appErr != nil {
		return appErr
	}
	if !ok {
		return &middleware.AppError{Error: fmt.Errorf("anonymous reply"), Message: "Forbidden", Code: http.StatusForbidden}
	}

	raw := strings.TrimSpace(r.FormValue("content_raw"))
	if raw == "" {
		return badRequest("Reply content must not be empty")
	}
	if _, err := h.svc.Posts.Reply(r.Context(), u, id, raw); err != nil {
		return appError(err, "Failed to post reply")
	}

	_, p, err := h.svc.Posts.ListReplies(r.Context(), id, 1)
	if err != nil {
		return appError(err, "Failed to list replies")
	}
	target := fmt.Sprintf("/t/%d", id)
	if n := p.NumPages(); n > 1 {
		target += "?page=" + strconv.Itoa(n)
	}
	http.Redirect(w, r, target+"#replies", http.StatusSeeOther)
	return nil
}

// topicForm validates the create and edit forms. A non-empty problem is shown
// to the user instead of saving.
type topicForm struct {
	Title   string
	Content string
	NodeID  int64
	Problem string
}

func readTopicForm(r *http.Request) topicForm {
	f := topicForm{
		Title:   strings.TrimSpace(r.FormValue("title")),
		Content: strings.TrimSpace(r.FormValue("content_raw")),
	}
	f.NodeID, _ = strconv.ParseInt(r.FormValue("node"), 10, 64)
	switch {
	case f.Title == "":
		f.Problem = "Title must not be empty"
	case len([]rune(f.Title)) > maxTitleLength:
		f.Problem = fmt.Sprintf("Title must be at most %d characters", maxTitleLength)
	case f.Content == "":
		f.Problem = "Content must not be empty"
	}
	return f
}

// createTopicHandler shows the new topic form and creates the topic on POST.
func (h *ForumHandler) createTopicHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	u, ok, appErr := h.currentUser(r)
	if appErr != nil {
		return appErr
	}
	// /t/create also matches the public /t/:id policy.
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return nil
	}

	if r.Method != http.MethodPost {
		nodeID, _ := strconv.ParseInt(r.URL.Query().Get("node"), 10, 64)
		return h.render(w, r, "create_topic.html", map[string]interface{}{
			"Title": "New topic",
			"Form":  topicForm{NodeID: nodeID},
		})
	}

	f := readTopicForm(r)
	if f.Problem == "" && f.NodeID <= 0 {
		f.Problem = "Choose a node"
	}
	if f.Problem != "" {
		return h.renderStatus(w, r, http.StatusUnprocessableEntity, "create_topic.html", map[string]interface{}{"Title": "New topic", "Form": f})
	}

	topic, err := h.svc.Topics.CreateTopic(r.Context(), u, f.NodeID, f.Title, f.Content)
	if err != nil {
		return appError(err, "Failed to create topic")
	}
	http.Redirect(w, r, fmt.Sprintf("/t/%d", topic.ID), http.StatusSeeOther)
	return nil
}

// editTopicHandler lets the owner edit a topic nobody has replied to.
func (h *ForumHandler) editTopicHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	u, ok, appErr := h.currentUser(r)
	if appErr != nil {
		return appErr
	}
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return nil
	}

	if r.Method != http.MethodPost {
		topic, err := h.svc.Topics.VisibleTopic(r.Context(), id)
		if err != nil {
			return appError(err, "Topic not found")
		}
		return h.render(w, r, "edit_topic.html", map[string]interface{}{
			"Title": "Edit: " + topic.Title,
			"Topic": topic,
			"Form":  topicForm{Title: topic.Title, Content: topic.ContentRaw, NodeID: topic.NodeID},
		})
	}

	f := readTopicForm(r)
	if f.Problem != "" {
		topic, err := h.svc.Topics.VisibleTopic(r.Context(), id)
		if err != nil {
			return appError(err, "Topic not found")
		}
		return h.renderStatus(w, r, http.StatusUnprocessableEntity, "edit_topic.html", map[string]interface{}{"Title": "Edit: " + topic.Title, "Topic": topic, "Form": f})
	}
	if _, err := h.svc.Topics.EditTopic(r.Context(), u.ID, id, f.Title, f.Content); err != nil {
		return appError(err, "Failed to edit topic")
	}
	http.Redirect(w, r, fmt.Sprintf("/t/%d", id), http.StatusSeeOther)
	return nil
}

// appendHandler lets the owner append content to a topic.
func (h *ForumHandler) appendHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	u, ok, appErr := h.currentUser(r)
	if appErr != nil {
		return appErr
	}
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return nil
	}

	topic, err := h.svc.Topics.VisibleTopic(r.Context(), id)
	if err != nil {
		return appError(err, "Topic not found")
	}

	if r.Method != http.MethodPost {
		return h.render(w, r, "create_appendix.html", map[string]interface{}{
			"Title": "Append: " + topic.Title,
			"Topic": topic,
		})
	}

	raw := strings.TrimSpace(r.FormValue("content_raw"))
	if raw == "" {
		return h.renderStatus(w, r, http.StatusUnprocessableEntity, "create_appendix.html", map[string]interface{}{
			"Title":   "Append: " + topic.Title,
			"Topic":   topic,
			"Problem": "Content must not be empty",
		})
	}
	if _, err := h.svc.Appendices.Append(r.Context(), u.ID, id, raw); err != nil {
		return appError(err, "Failed to append to topic")
	}
	http.Redirect(w, r, fmt.Sprintf("/t/%d", id), http.StatusSeeOther)
	return nil
}
