package prism

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/putto11262002/prism/core"
)

type RoomHandler struct {
	lifecycle *core.Lifecycle
	random    core.Random
}

func NewRoomHandler(lifecycle *core.Lifecycle, random core.Random) *RoomHandler {
	if random == nil {
		random = core.SystemRandom
	}
	return &RoomHandler{lifecycle: lifecycle, random: random}
}

// CreateRoomPayload is the room setup form. A missing invite code is generated.
type CreateRoomPayload struct {
	Name             string `json:"name"`
	InviteCode       string `json:"invite_code" validate:"omitempty,invitecode" label:"invite code"`
	DisplayName      string `json:"display_name"`
	Password         string `json:"password"`
	MaxParticipants  int    `json:"max_participants" validate:"omitempty,min=2,max=50" label:"max participants"`
	SelfDestructTime int    `json:"self_destruct_time" validate:"min=0" label:"self-destruct time"`
}

func (h *RoomHandler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) error {
	var payload CreateRoomPayload
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	payload.InviteCode = normalizeInviteCode(payload.InviteCode)
	if err := validatePayload(payload); err != nil {
		return err
	}

	if payload.InviteCode == "" {
		payload.InviteCode = core.GenerateInviteCode(h.random)
	}

	room, err := h.lifecycle.CreateRoom(r.Context(), core.RoomConfig{
		Name:             payload.Name,
		InviteCode:       payload.InviteCode,
		Password:         payload.Password,
		MaxParticipants:  payload.MaxParticipants,
		SelfDestructTime: payload.SelfDestructTime,
	}, payload.DisplayName)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, room)
}

// JoinRoomPayload is the join form. A blank invite code is left to the
// lifecycle so it reports its own message.
type JoinRoomPayload struct {
	InviteCode  string `json:"invite_code" validate:"omitempty,invitecode" label:"invite code"`
	DisplayName string `json:"display_name"`
}

func (h *RoomHandler) JoinRoomHandler(w http.ResponseWriter, r *http.Request) error {
	var payload JoinRoomPayload
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	payload.InviteCode = normalizeInviteCode(payload.InviteCode)
	if err := validatePayload(payload); err != nil {
		return err
	}

	room, err := h.lifecycle.JoinRoom(r.Context(), payload.InviteCode, payload.DisplayName)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, room)
}

// UpdateSettingsPayload is the settings form. Omitted fields are left unchanged.
// PasswordEnabled false removes the password.
type UpdateSettingsPayload struct {
	Name             *string `json:"name" validate:"omitnil,notblank" label:"room name"`
	InviteCode       *string `json:"invite_code" validate:"omitnil,invitecode" label:"invite code"`
	PasswordEnabled  *bool   `json:"password_enabled"`
	Password         *string `json:"password"`
	MaxParticipants  *int    `json:"max_participants" validate:"omitnil,min=2,max=50" label:"max participants"`
	SelfDestructTime *int    `json:"self_destruct_time" validate:"omitnil,min=0" label:"self-destruct time"`
}

func (p UpdateSettingsPayload) settings() (core.RoomSettings, error) {
	s := core.RoomSettings{
		Name:             p.Name,
		InviteCode:       p.InviteCode,
		Password:         p.Password,
		MaxParticipants:  p.MaxParticipants,
		SelfDestructTime: p.SelfDestructTime,
	}
	if p.PasswordEnabled == nil {
		return s, nil
	}
	if !*p.PasswordEnabled {
		empty := ""
		s.Password = &empty
		return s, nil
	}
	if p.Password == nil || strings.TrimSpace(*p.Password) == "" {
		return s, core.NewAppError(core.ValidationError,
			"Password cannot be empty when password protection is enabled",
			map[string]any{"field": "password"})
	}
	return s, nil
}

func (h *RoomHandler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) error {
	var payload UpdateSettingsPayload
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	if payload.InviteCode != nil {
		code := normalizeInviteCode(*payload.InviteCode)
		payload.InviteCode = &code
	}
	if err := validatePayload(payload); err != nil {
		return err
	}
	settings, err := payload.settings()
	if err != nil {
		return err
	}

	room, err := h.lifecycle.UpdateSettings(r.Context(), settings)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) error {
	h.lifecycle.LeaveRoom()
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type SendMessagePayload struct {
	Content string `json:"content"`
	Sender  string `json:"sender"`
}

func (h *RoomHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) error {
	var payload SendMessagePayload
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}

	if err := h.lifecycle.SendMessage(payload.Content, payload.Sender); err != nil {
		return err
	}
	w.WriteHeader(http.StatusAccepted)
	return nil
}

func (h *RoomHandler) StateHandler(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, h.lifecycle.Snapshot(r.Context()))
}

type InviteCodeResponse struct {
	InviteCode string `json:"invite_code"`
}

func (h *RoomHandler) InviteCodeHandler(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, InviteCodeResponse{InviteCode: core.GenerateInviteCode(h.random)})
}

type PasswordResponse struct {
	Password string `json:"password"`
}

func (h *RoomHandler) PasswordHandler(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, PasswordResponse{Password: core.GeneratePassword(h.random)})
}

// normalizeInviteCode trims code and upper-cases it, the form rooms advertise.
func normalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("Decode: %w", errMalformedBody)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
	return nil
}
