package handler

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"go-forum-app/internal/middleware"
	"go-forum-app/internal/session"
	"go-forum-app/web"
)

// Handlers groups the route handlers. Auth and SEO are optional.
type Handlers struct {
	Forum *ForumHandler
	API   *APIHandler
	Auth  *AuthHandler
	SEO   *SeoHandler
}

// NewRouter creates and configures a new chi router. Every route passes
// through the session and the casbin authorizer.
func NewRouter(h Handlers, authz func(http.Handler) http.Handler, errs func(middleware.AppHandler) http.Handler, sm session.Manager) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(sm.LoadAndSave)
	r.Use(middleware.Settings)
	r.Use(authz)

	if static, err := fs.Sub(web.StaticFS, "static"); err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	if h.Auth != nil {
		r.Get("/auth/login", h.Auth.handleLogin)
		r.Get("/auth/callback", h.Auth.handleCallback)
		r.Get("/auth/logout", h.Auth.handleLogout)
	}
	if h.SEO != nil {
		r.Get("/robots.txt", h.SEO.robotsHandler)
		r.Get("/sitemap.xml", h.SEO.sitemapHandler)
	}

	f := h.Forum
	r.Method(http.MethodGet, "/", errs(f.indexHandler))
	r.Method(http.MethodGet, "/page/{page}", errs(f.indexHandler))
	r.Method(http.MethodGet, "/n/{id}", errs(f.nodeHandler))
	r.Method(http.MethodGet, "/search", errs(f.searchHandler))
	r.Method(http.MethodGet, "/notifications", errs(f.notificationsHandler))

	r.Route("/t", func(r chi.Router) {
		r.Method(http.MethodGet, "/create", errs(f.createTopicHandler))
		r.Method(http.MethodPost, "/create", errs(f.createTopicHandler))
		r.Method(http.MethodGet, "/{id}", errs(f.topicHandler))
		r.Method(http.MethodPost, "/{id}", errs(f.replyHandler))
		r.Method(http.MethodGet, "/{id}/edit", errs(f.editTopicHandler))
		r.Method(http.MethodPost, "/{id}/edit", errs(f.editTopicHandler))
		r.Method(http.MethodGet, "/{id}/append", errs(f.appendHandler))
		r.Method(http.MethodPost, "/{id}/append", errs(f.appendHandler))
	})

	r.Method(http.MethodGet, "/u/{id}", errs(f.userInfoHandler))
	r.Method(http.MethodGet, "/u/{id}/topics", errs(f.userTopicsHandler))

	if h.API != nil {
		r.Route("/api", func(r chi.Router) {
			r.Method(http.MethodGet, "/topics", errs(h.API.listTopics))
			r.Method(http.MethodGet, "/topics/{id}", errs(h.API.getTopic))
			r.Method(http.MethodPatch, "/topics/{id}", errs(h.API.patchTopic))
			r.Method(http.MethodPatch, "/posts/{id}", errs(h.API.patchPost))
			r.Method(http.MethodDelete, "/posts/{id}", errs(h.API.deletePost))
		})
	}

	return r
}
