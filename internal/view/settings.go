package view

import "context"

type settingsKey string

const (
	// BasicModeKey is the key for the basic mode setting in the request context.
	BasicModeKey settingsKey = "basicMode"
)

// WithBasicMode stores the basic mode flag in ctx.
func WithBasicMode(ctx context.Context, basic bool) context.Context {
	return context.WithValue(ctx, BasicModeKey, basic)
}

// IsBasicMode returns true if the "basic mode" flag is set in the request context.
// Pages rendered in basic mode are plain HTML without the stylesheet.
func IsBasicMode(ctx context.Context) bool {
	basic, ok := ctx.Value(BasicModeKey).(bool)
	return ok && basic
}
