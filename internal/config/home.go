// Package config resolves the aura home directory and loads <home>/config.yaml.
package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

type homeKey struct{}

// WithHome stores the aura home path in the context.
func WithHome(ctx context.Context, home string) context.Context {
	return context.WithValue(ctx, homeKey{}, home)
}

// HomeFrom returns the aura home path from the context, if set.
func HomeFrom(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(homeKey{}).(string)
	return s, ok
}

// MustHomeFrom returns the home path from the context, or panics if not set.
func MustHomeFrom(ctx context.Context) string {
	if h, ok := HomeFrom(ctx); ok && h != "" {
		return h
	}
	panic("aura home missing from context")
}

// ResolveHome returns the aura home directory (override, AURA_HOME, or default ~/.aura).
func ResolveHome(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}
	if env := os.Getenv("AURA_HOME"); env != "" {
		return filepath.Clean(env), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine user home directory")
	}
	return filepath.Join(home, ".aura"), nil
}

// ProtectedDir holds the database, pid, lock and log files.
func ProtectedDir(home string) string {
	return filepath.Join(home, "protected")
}

// DBPath is the SQLite database location.
func DBPath(home string) string {
	return filepath.Join(ProtectedDir(home), "db.sqlite")
}
