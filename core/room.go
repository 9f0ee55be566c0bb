package core

import (
	"slices"
	"time"
)

const (
	// MinParticipants is the smallest room capacity a host can pick.
	MinParticipants = 2
	// UnlimitedParticipants is both the largest capacity and the value
	// meaning the room has no limit.
	UnlimitedParticipants = 50

	// SystemSender is the sender of welcome and notice messages.
	SystemSender = "System"
	// JoinedRoomName is the label given to rooms entered with an invite code.
	JoinedRoomName = "Joined Room"
)

// Room is the active chat session as seen by the local viewer.
type Room struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code"`
	// Password is empty when the room is not password protected.
	Password        string `json:"password,omitempty"`
	MaxParticipants int    `json:"max_participants"`
	IsHost          bool   `json:"is_host"`
	// SelfDestructTime is the number of hours after CreatedAt at which the
	// room is advertised to close. Zero disables it. Nothing enforces it.
	SelfDestructTime int       `json:"self_destruct_time,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Unlimited reports whether the room accepts any number of participants.
func (r Room) Unlimited() bool {
	return r.MaxParticipants == UnlimitedParticipants
}

// ExpiresAt returns the advertised self-destruct time, if one is set.
func (r Room) ExpiresAt() (time.Time, bool) {
	if r.SelfDestructTime <= 0 || r.CreatedAt.IsZero() {
		return time.Time{}, false
	}
	return r.CreatedAt.Add(time.Duration(r.SelfDestructTime) * time.Hour), true
}

// Participant is a member of the active room.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
}

// Message is an entry in the room's append-only log.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	IsSystem  bool      `json:"is_system,omitempty"`
}

// RoomConfig is the input for creating a room.
type RoomConfig struct {
	Name       string
	InviteCode string
	Password   string
	// MaxParticipants defaults to UnlimitedParticipants when zero.
	MaxParticipants  int
	SelfDestructTime int
}

// RoomSettings is a partial room update. Nil fields keep their current value.
type RoomSettings struct {
	Name       *string `json:"name,omitempty"`
	InviteCode *string `json:"invite_code,omitempty"`
	// An empty Password removes password protection.
	Password        *string `json:"password,omitempty"`
	MaxParticipants *int    `json:"max_participants,omitempty"`
	// A zero SelfDestructTime disables the countdown.
	SelfDestructTime *int `json:"self_destruct_time,omitempty"`
}

// apply returns a copy of r with the non-nil settings merged in.
func (s RoomSettings) apply(r Room) Room {
	if s.Name != nil {
		r.Name = *s.Name
	}
	if s.InviteCode != nil {
		r.InviteCode = *s.InviteCode
	}
	if s.Password != nil {
		r.Password = *s.Password
	}
	if s.MaxParticipants != nil {
		r.MaxParticipants = *s.MaxParticipants
	}
	if s.SelfDestructTime != nil {
		r.SelfDestructTime = *s.SelfDestructTime
	}
	return r
}

// RoomState is the room-level state of a lifecycle manager.
type RoomState string

const (
	NoRoom     RoomState = "no_room"
	ActiveRoom RoomState = "active"
)

// Snapshot is a consistent copy of the lifecycle manager's state.
type Snapshot struct {
	State        RoomState     `json:"state"`
	Room         *Room         `json:"room"`
	Participants []Participant `json:"participants"`
	Messages     []Message     `json:"messages"`
	DisplayName  string        `json:"display_name"`
}

func cloneRoom(r *Room) *Room {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func cloneParticipants(p []Participant) []Participant {
	if p == nil {
		return []Participant{}
	}
	return slices.Clone(p)
}

func cloneMessages(m []Message) []Message {
	if m == nil {
		return []Message{}
	}
	return slices.Clone(m)
}
