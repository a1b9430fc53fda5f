package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/casbin/casbin/v2"
	"golang.org/x/oauth2"

	"go-forum-app/internal/auth"
	"go-forum-app/internal/data"
	"go-forum-app/internal/logger"
	"go-forum-app/internal/session"
)

// IdentityProvider is the OIDC client the login flow talks to.
type IdentityProvider interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	Identify(ctx context.Context, rawIDToken string) (*auth.Identity, error)
}

// UserDirectory creates forum accounts on first login.
type UserDirectory interface {
	EnsureUser(ctx context.Context, username, email string) (*data.User, error)
}

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	auth     IdentityProvider
	session  session.Manager
	enforcer casbin.IEnforcer
	users    UserDirectory
	log      logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(a IdentityProvider, sm session.Manager, e casbin.IEnforcer, users UserDirectory, log logger.Logger) *AuthHandler {
	return &AuthHandler{auth: a, session: sm, enforcer: e, users: users, log: log}
}

// handleLogin redirects the user to the OIDC provider to log in.
// It uses a random 'state' string for CSRF protection.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randString(16)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	// Store the state in a short-lived cookie to verify on callback.
	http.SetCookie(w, &http.Cookie{
		Name:     "state",
		Value:    state,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback completes the code exchange, creates the forum account on
// first login and stores the user in the session.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("state")
	if err != nil {
		http.Error(w, "state cookie not found", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "state did not match", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "state", Path: "/", MaxAge: -1})

	oauth2Token, err := h.auth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.log.Error(err, "Failed to exchange token")
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}
	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "No id_token field in oauth2 token", http.StatusInternalServerError)
		return
	}

	identity, err := h.auth.Identify(r.Context(), rawIDToken)
	if err != nil {
		h.log.Error(err, "Failed to verify ID token")
		http.Error(w, "Failed to verify ID Token", http.StatusUnauthorized)
		return
	}
	user, err := h.users.EnsureUser(r.Context(), identity.Username, identity.Email)
	if err != nil {
		h.log.Error(err, fmt.Sprintf("Failed to load user %q", identity.Username))
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	// A new token on privilege change prevents session fixation.
	if err := h.session.RenewToken(r.Context()); err != nil {
		http.Error(w, "Failed to renew session", http.StatusInternalServerError)
		return
	}
	h.session.Put(r.Context(), session.KeySubject, user.Username)
	h.session.Put(r.Context(), session.KeyUserID, user.ID)
	auth.GrantMember(h.enforcer, user.Username, h.log)

	h.log.Info(fmt.Sprintf("User %s logged in", user.Username))
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout clears the session and returns to the index.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Destroy(r.Context()); err != nil {
		http.Error(w, "Failed to log out", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
