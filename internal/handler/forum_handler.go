package handler

import (
	"fmt"
	"net/http"
	"strings"

	"go-forum-app/internal/data"
	"go-forum-app/internal/logger"
	"go-forum-app/internal/middleware"
	"go-forum-app/internal/service"
	"go-forum-app/internal/view"
)

// Services groups the services the forum pages use.
type Services struct {
	Topics        *service.TopicService
	Posts         *service.PostService
	Appendices    *service.AppendixService
	Users         *service.UserService
	Notifications *service.NotificationService
}

// ForumHandler serves the server-rendered forum pages.
type ForumHandler struct {
	svc      Services
	view     *view.View
	log      logger.Logger
	siteName string
}

// NewForumHandler creates a new ForumHandler.
func NewForumHandler(svc Services, v *view.View, log logger.Logger, siteName string) *ForumHandler {
	return &ForumHandler{svc: svc, view: v, log: log, siteName: siteName}
}

// render adds the layout data (site name, nodes, current user and unread
// count) and renders a page.
func (h *ForumHandler) render(w http.ResponseWriter, r *http.Request, name string, d map[string]interface{}) *middleware.AppError {
	return h.renderStatus(w, r, http.StatusOK, name, d)
}

func (h *ForumHandler) renderStatus(w http.ResponseWriter, r *http.Request, code int, name string, d map[string]interface{}) *middleware.AppError {
	if d == nil {
		d = make(map[string]interface{})
	}
	d["SiteName"] = h.siteName

	nodes, err := h.svc.Topics.Nodes(r.Context())
	if err != nil {
		return appError(err, "Failed to load nodes")
	}
	d["Nodes"] = nodes
	d["CurrentUserID"] = int64(0)

	if info := middleware.GetUserInfo(r.Context()); !info.IsAnonymous() {
		d["CurrentUserID"] = info.UserID
		d["CurrentUsername"] = info.Subject
		unread, err := h.svc.Notifications.UnreadCount(r.Context(), info.UserID)
		if err != nil {
			h.log.Warn(fmt.Sprintf("Failed to count unread notifications: %v", err))
		}
		d["Unread"] = unread
	}

	if code != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(code)
	}
	if err := h.view.Render(w, r, name, d); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render page", Code: http.StatusInternalServerError}
	}
	return nil
}

// currentUser loads the logged-in user. ok is false for anonymous visitors.
func (h *ForumHandler) currentUser(r *http.Request) (*data.User, bool, *middleware.AppError) {
	info := middleware.GetUserInfo(r.Context())
	if info.IsAnonymous() {
		return nil, false, nil
	}
	u, err := h.svc.Users.Get(r.Context(), info.UserID)
	if err != nil {
		return nil, false, appError(err, "Failed to load current user")
	}
	return u, true, nil
}

// indexHandler lists visible topics, pinned ones first.
func (h *ForumHandler) indexHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	tp, err := h.svc.Topics.ListTopics(r.Context(), service.TopicQuery{
		Ordering: r.URL.Query().Get("order"),
		Page:     pageParam(r),
	})
	if err != nil {
		return appError(err, "Failed to list topics")
	}
	if appErr := outOfRange(tp.Pagination); appErr != nil {
		return appErr
	}
	return h.render(w, r, "index.html", map[string]interface{}{
		"Title":      h.siteName,
		"TopicPage":  tp,
		"Pagination": tp.Pagination,
		"ShowOrder":  true,
		"PanelTitle": "Latest topics",
	})
}

// nodeHandler lists the visible topics of a node.
func (h *ForumHandler) nodeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	node, err := h.svc.Topics.Node(r.Context(), id)
	if err != nil {
		return appError(err, "Node not found")
	}
	tp, err := h.svc.Topics.ListTopics(r.Context(), service.TopicQuery{
		NodeID:   id,
		Ordering: r.URL.Query().Get("order"),
		Page:     pageParam(r),
	})
	if err != nil {
		return appError(err, "Failed to list topics")
	}
	if appErr := outOfRange(tp.Pagination); appErr != nil {
		return appErr
	}
	return h.render(w, r, "node.html", map[string]interface{}{
		"Title":      node.Title,
		"Node":       node,
		"TopicPage":  tp,
		"Pagination": tp.Pagination,
		"ShowOrder":  true,
		"PanelTitle": node.Title,
	})
}

// topicHandler shows a visible topic with its appendices and a page of replies.
func (h *ForumHandler) topicHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	topic, err := h.svc.Topics.ViewTopic(r.Context(), id)
	if err != nil {
		return appError(err, "Topic not found")
	}
	replies, p, err := h.svc.Posts.ListReplies(r.Context(), id, pageParam(r))
	if err != nil {
		return appError(err, "Failed to list replies")
	}
	if appErr := outOfRange(p); appErr != nil {
		return appErr
	}
	appendices, err := h.svc.Appendices.ListByTopic(r.Context(), id)
	if err != nil {
		return appError(err, "Failed to list appendices")
	}
	return h.render(w, r, "topic.html", map[string]interface{}{
		"Title":      topic.Title,
		"Topic":      topic,
		"Replies":    replies,
		"Appendices": appendices,
		"Pagination": p,
	})
}

// userInfoHandler shows a user's latest topics and replies.
func (h *ForumHandler) userInfoHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	info, err := h.svc.Users.Info(r.Context(), id)
	if err != nil {
		return appError(err, "User not found")
	}
	return h.render(w, r, "user_info.html", map[string]interface{}{
		"Title":   info.User.Username,
		"Profile": info,
	})
}

// userTopicsHandler lists a user's visible topics.
func (h *ForumHandler) userTopicsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	u, tp, err := h.svc.Users.Topics(r.Context(), id, r.URL.Query().Get("order"), pageParam(r))
	if err != nil {
		return appError(err, "User not found")
	}
	if appErr := outOfRange(tp.Pagination); appErr != nil {
		return appErr
	}
	return h.render(w, r, "user_topics.html", map[string]interface{}{
		"Title":      u.Username,
		"Profile":    u,
		"TopicPage":  tp,
		"Pagination": tp.Pagination,
		"PanelTitle": u.Username,
	})
}

// searchHandler lists visible topics whose titles contain every keyword.
func (h *ForumHandler) searchHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	tp, err := h.svc.Topics.Search(r.Context(), keyword, r.URL.Query().Get("order"), pageParam(r))
	if err != nil {
		return appError(err, "Search failed")
	}
	if appErr := outOfRange(tp.Pagination); appErr != nil {
		return appErr
	}
	return h.render(w, r, "search.html", map[string]interface{}{
		"Title":      "Search: " + keyword,
		"Keyword":    keyword,
		"TopicPage":  tp,
		"Pagination": tp.Pagination,
		"ShowOrder":  true,
		"PanelTitle": "Search: " + keyword,
	})
}

// notificationsHandler lists the current user's notifications and marks them read.
func (h *ForumHandler) notificationsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	u, ok, appErr := h.currentUser(r)
	if appErr != nil {
		return appErr
	}
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return nil
	}
	list, p, err := h.svc.Notifications.List(r.Context(), u.ID, pageParam(r))
	if err != nil {
		return appError(err, "Failed to list notifications")
	}
	if appErr := outOfRange(p); appErr != nil {
		return appErr
	}
	return h.render(w, r, "notifications.html", map[string]interface{}{
		"Title":         "Notifications",
		"Notifications": list,
		"Pagination":    p,
	})
}
