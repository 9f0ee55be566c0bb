package core

import (
	"fmt"
	"time"
)

// FormatTimeRemaining renders the time left until end as HH:MM:SS.
// Past deadlines render as 00:00:00. Hours are not capped at 24.
func FormatTimeRemaining(end, now time.Time) string {
	diff := max(end.Sub(now), 0)
	hours := int(diff / time.Hour)
	minutes := int(diff % time.Hour / time.Minute)
	seconds := int(diff % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// CountdownTick is the payload of a CountdownEvent.
type CountdownTick struct {
	RoomID    string    `json:"room_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Remaining string    `json:"remaining"`
	Expired   bool      `json:"expired"`
}

// Countdown computes the advertised self-destruct countdown of a room.
func Countdown(room *Room, now time.Time) (CountdownTick, bool) {
	if room == nil {
		return CountdownTick{}, false
	}
	end, ok := room.ExpiresAt()
	if !ok {
		return CountdownTick{}, false
	}
	return CountdownTick{
		RoomID:    room.ID,
		ExpiresAt: end,
		Remaining: FormatTimeRemaining(end, now),
		Expired:   !now.Before(end),
	}, true
}
