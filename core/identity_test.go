package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}

func (failingKV) Set(context.Context, string, string) error {
	return errors.New("storage unavailable")
}

func TestIdentityStore(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to You", func(t *testing.T) {
		assert.Equal(t, DefaultDisplayName, NewIdentityStore(NewMemoryKV(), nil).DisplayName(ctx))
	})

	t.Run("round trip", func(t *testing.T) {
		kv := NewMemoryKV()
		s := NewIdentityStore(kv, nil)

		require.Nil(t, s.SetDisplayName(ctx, "Dana"))

		assert.Equal(t, "Dana", s.DisplayName(ctx))
		v, ok, _ := kv.Get(ctx, "prism-username")
		assert.True(t, ok)
		assert.Equal(t, "Dana", v)
	})

	t.Run("no storage", func(t *testing.T) {
		s := NewIdentityStore(nil, nil)
		assert.Nil(t, s.SetDisplayName(ctx, "Dana"))
		assert.Equal(t, DefaultDisplayName, s.DisplayName(ctx))

		var nilStore *IdentityStore
		assert.Equal(t, DefaultDisplayName, nilStore.DisplayName(ctx))
	})

	t.Run("unreadable storage", func(t *testing.T) {
		s := NewIdentityStore(failingKV{}, nil)
		assert.Equal(t, DefaultDisplayName, s.DisplayName(ctx))
		assert.Error(t, s.SetDisplayName(ctx, "Dana"))
	})
}

func TestThemeStore(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to dark", func(t *testing.T) {
		theme, err := NewThemeStore(NewMemoryKV()).Theme(ctx)
		require.Nil(t, err)
		assert.Equal(t, DarkTheme, theme)
	})

	t.Run("round trip", func(t *testing.T) {
		s := NewThemeStore(NewMemoryKV())
		for _, theme := range []Theme{LightTheme, SystemTheme, DarkTheme} {
			require.Nil(t, s.SetTheme(ctx, theme))
			got, err := s.Theme(ctx)
			require.Nil(t, err)
			assert.Equal(t, theme, got)
		}
	})

	t.Run("invalid theme", func(t *testing.T) {
		s := NewThemeStore(NewMemoryKV())
		err := s.SetTheme(ctx, Theme("sepia"))
		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, ValidationError, appErr.Code())
	})

	t.Run("unknown stored value falls back", func(t *testing.T) {
		kv := NewMemoryKV()
		require.Nil(t, kv.Set(ctx, ThemeKey, "neon"))
		theme, err := NewThemeStore(kv).Theme(ctx)
		require.Nil(t, err)
		assert.Equal(t, DefaultTheme, theme)
	})
}
