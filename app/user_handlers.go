package prism

import (
	"fmt"
	"net/http"

	"github.com/putto11262002/prism/core"
)

// UserHandler serves the viewer's own preferences.
type UserHandler struct {
	lifecycle *core.Lifecycle
	themes    *core.ThemeStore
}

func NewUserHandler(lifecycle *core.Lifecycle, themes *core.ThemeStore) *UserHandler {
	return &UserHandler{lifecycle: lifecycle, themes: themes}
}

type MeResponse struct {
	DisplayName string     `json:"display_name"`
	Theme       core.Theme `json:"theme"`
}

func (h *UserHandler) MeHandler(w http.ResponseWriter, r *http.Request) error {
	theme, err := h.themes.Theme(r.Context())
	if err != nil {
		return fmt.Errorf("Theme: %w", err)
	}
	return writeJSON(w, http.StatusOK, MeResponse{
		DisplayName: h.lifecycle.DisplayName(r.Context()),
		Theme:       theme,
	})
}

type UpdateNamePayload struct {
	Name string `json:"name"`
}

func (h *UserHandler) UpdateNameHandler(w http.ResponseWriter, r *http.Request) error {
	var payload UpdateNamePayload
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}

	if err := h.lifecycle.UpdateDisplayName(r.Context(), payload.Name); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type UpdateThemePayload struct {
	Theme string `json:"theme" validate:"theme"`
}

func (h *UserHandler) UpdateThemeHandler(w http.ResponseWriter, r *http.Request) error {
	var payload UpdateThemePayload
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	if err := validatePayload(payload); err != nil {
		return err
	}

	if err := h.themes.SetTheme(r.Context(), core.Theme(payload.Theme)); err != nil {
		return fmt.Errorf("SetTheme: %w", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type HealthResponse struct {
	Status string `json:"status"`
}

func HealthHandler(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
