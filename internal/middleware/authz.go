package middleware

import (
	"net/http"

	"go-forum-app/internal/session"
)

// Enforcer decides whether a subject may perform an action on an object.
type Enforcer interface {
	Enforce(rvals ...interface{}) (bool, error)
}

// Authorizer loads the user from the session into the request context and
// checks the route against the casbin policy.
func Authorizer(e Enforcer, sm session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userInfo := &UserInfo{
				Subject: sm.GetString(r.Context(), session.KeySubject),
				UserID:  sm.GetInt64(r.Context(), session.KeyUserID),
			}
			if userInfo.Subject == "" || userInfo.UserID == 0 {
				userInfo = &UserInfo{Subject: Anonymous}
			}
			r = r.WithContext(SetUserInfo(r.Context(), userInfo))

			allowed, err := e.Enforce(userInfo.Subject, r.URL.Path, r.Method)
			if err != nil {
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				if userInfo.IsAnonymous() && r.Method == http.MethodGet {
					http.Redirect(w, r, "/auth/login", http.StatusFound)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
