package core

import (
	"context"
	"log/slog"
)

const (
	// DisplayNameKey is the storage key holding the viewer's display name.
	DisplayNameKey = "prism-username"
	// ThemeKey is the storage key holding the viewer's theme preference.
	ThemeKey = "prism-theme"

	// DefaultDisplayName is used until the viewer picks a name.
	DefaultDisplayName = "You"
)

// IdentityStore keeps the viewer's display name in a single storage slot.
type IdentityStore struct {
	kv     KVStore
	logger *slog.Logger
}

// NewIdentityStore wraps kv. A nil kv behaves like a context without storage:
// reads return DefaultDisplayName and writes are dropped.
func NewIdentityStore(kv KVStore, logger *slog.Logger) *IdentityStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityStore{kv: kv, logger: logger}
}

// DisplayName returns the stored name or DefaultDisplayName when unset or unreadable.
func (s *IdentityStore) DisplayName(ctx context.Context) string {
	if s == nil || s.kv == nil {
		return DefaultDisplayName
	}
	name, ok, err := s.kv.Get(ctx, DisplayNameKey)
	if err != nil {
		s.logger.Warn("read display name", slog.String("err", err.Error()))
		return DefaultDisplayName
	}
	if !ok || name == "" {
		return DefaultDisplayName
	}
	return name
}

func (s *IdentityStore) SetDisplayName(ctx context.Context, name string) error {
	if s == nil || s.kv == nil {
		return nil
	}
	return s.kv.Set(ctx, DisplayNameKey, name)
}

// Theme is the viewer's colour scheme preference.
type Theme string

const (
	DarkTheme   Theme = "dark"
	LightTheme  Theme = "light"
	SystemTheme Theme = "system"

	DefaultTheme = DarkTheme
)

func (t Theme) Valid() bool {
	return t == DarkTheme || t == LightTheme || t == SystemTheme
}

// ThemeStore keeps the theme preference in a single storage slot.
type ThemeStore struct {
	kv KVStore
}

func NewThemeStore(kv KVStore) *ThemeStore {
	return &ThemeStore{kv: kv}
}

// Theme returns the stored theme, falling back to DefaultTheme when the
// slot is unset or holds an unknown value.
func (s *ThemeStore) Theme(ctx context.Context) (Theme, error) {
	if s.kv == nil {
		return DefaultTheme, nil
	}
	v, ok, err := s.kv.Get(ctx, ThemeKey)
	if err != nil {
		return DefaultTheme, err
	}
	if t := Theme(v); ok && t.Valid() {
		return t, nil
	}
	return DefaultTheme, nil
}

func (s *ThemeStore) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return NewAppError(ValidationError, "Theme must be one of dark, light or system",
			map[string]any{"theme": string(t)})
	}
	if s.kv == nil {
		return nil
	}
	return s.kv.Set(ctx, ThemeKey, string(t))
}
