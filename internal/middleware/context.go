package middleware

import "context"

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey = contextKey("user")

// Anonymous is the casbin subject of a visitor who is not logged in.
const Anonymous = "anonymous"

// UserInfo is the logged-in user as stored in the session, or an anonymous visitor.
type UserInfo struct {
	Subject string // username, or Anonymous
	UserID  int64
}

// IsAnonymous reports whether no user is logged in.
func (u *UserInfo) IsAnonymous() bool {
	return u.UserID == 0 || u.Subject == Anonymous
}

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	return &UserInfo{Subject: Anonymous}
}

// SetUserInfo adds the user information to the request context.
func SetUserInfo(ctx context.Context, userInfo *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, userInfo)
}
