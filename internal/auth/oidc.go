package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"go-forum-app/internal/config"
)

// Identity is the forum account an ID token stands for.
type Identity struct {
	Username string
	Email    string
}

// Authenticator is a struct that holds the OIDC provider, OAuth2 config, and ID token verifier.
type Authenticator struct {
	*oidc.Provider
	*oauth2.Config
	*oidc.IDTokenVerifier
}

// NewAuthenticator sets up the OIDC provider through its discovery endpoint
// and the OAuth2 configuration.
func NewAuthenticator(ctx context.Context, cfg *config.OIDCConfig) (*Authenticator, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, err
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return &Authenticator{
		Provider:        provider,
		Config:          oauth2Config,
		IDTokenVerifier: verifier,
	}, nil
}

// Identify verifies a raw ID token and reads the forum identity from its
// claims. The username is the preferred_username claim, falling back to
// the subject.
func (a *Authenticator) Identify(ctx context.Context, rawIDToken string) (*Identity, error) {
	token, err := a.IDTokenVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	var claims struct {
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse ID token claims: %w", err)
	}
	username := claims.PreferredUsername
	if username == "" {
		username = token.Subject
	}
	if username == "" {
		return nil, errors.New("ID token carries no username")
	}
	return &Identity{Username: username, Email: claims.Email}, nil
}
