package render

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"go-forum-app/internal/data"
)

// mentionPattern matches "@" followed by a run of non-whitespace. There is no
// left boundary, so "mail@bob" also yields "bob".
var mentionPattern = regexp.MustCompile(`@(\S+)`)

// Markup turns raw markup into HTML.
type Markup interface {
	ToHTML(raw string) (string, error)
}

// UserDirectory resolves usernames to users.
type UserDirectory interface {
	FindByUsernames(ctx context.Context, names []string) ([]*data.User, error)
}

// ProfileURLFunc builds the profile link of a user.
type ProfileURLFunc func(userID int64) string

// DefaultProfileURL links to the forum's user page.
func DefaultProfileURL(userID int64) string {
	return fmt.Sprintf("/u/%d", userID)
}

// Renderer renders content and resolves the users it mentions.
type Renderer struct {
	markup     Markup
	users      UserDirectory
	profileURL ProfileURLFunc
}

// NewRenderer creates a Renderer. A nil profileURL uses DefaultProfileURL.
func NewRenderer(markup Markup, users UserDirectory, profileURL ProfileURLFunc) *Renderer {
	if profileURL == nil {
		profileURL = DefaultProfileURL
	}
	return &Renderer{markup: markup, users: users, profileURL: profileURL}
}

// Render converts raw to HTML and returns the users mentioned in it, with
// each mention of a resolved user rewritten into a link to their profile.
// The sender is never part of the result.
func (r *Renderer) Render(ctx context.Context, raw, sender string) (string, []*data.User, error) {
	rendered, err := r.markup.ToHTML(raw)
	if err != nil {
		return "", nil, err
	}

	candidates := ScanMentions(raw, sender)
	if len(candidates) == 0 {
		return rendered, nil, nil
	}

	users, err := r.users.FindByUsernames(ctx, candidates)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve mentions: %w", err)
	}
	for _, u := range users {
		rendered = LinkMentions(rendered, u.Username, r.profileURL(u.ID))
	}
	return rendered, users, nil
}

// RenderPlain converts raw to HTML without looking at mentions.
func (r *Renderer) RenderPlain(raw string) (string, error) {
	return r.markup.ToHTML(raw)
}

// ScanMentions returns the distinct names mentioned in raw, in order of first
// appearance, leaving out sender.
func ScanMentions(raw, sender string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range mentionPattern.FindAllStringSubmatch(raw, -1) {
		name := m[1]
		if name == sender {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// LinkMentions rewrites every "@username" in rendered HTML that is followed by
// whitespace or a closing paragraph tag into "@<a href=...>username</a>",
// keeping the trailing token. Mentions followed by anything else, such as
// punctuation, stay plain text.
func LinkMentions(rendered, username, profileURL string) string {
	prefix := "@" + username
	pattern := regexp.MustCompile(regexp.QuoteMeta(prefix) + `(?:\s|</p>)`)
	anchor := `@<a href="` + html.EscapeString(profileURL) + `">` + html.EscapeString(username) + `</a>`
	return pattern.ReplaceAllStringFunc(rendered, func(match string) string {
		return anchor + strings.TrimPrefix(match, prefix)
	})
}
