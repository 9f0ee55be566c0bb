package prism

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/putto11262002/prism/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *AppFixture) dialView(header http.Header) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(url, header)
}

// nextEvent reads events until one of type t arrives.
func nextEvent(t *testing.T, conn *websocket.Conn, eventType string) *core.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, r, err := conn.NextReader()
		require.NoError(t, err)
		var e core.Event
		require.NoError(t, core.DecodeEvent(r, &e))
		if e.Type == eventType {
			return &e
		}
	}
}

func TestViewFeed(t *testing.T) {
	t.Run("snapshot then events", func(t *testing.T) {
		f := NewAppFixture(t)
		defer f.tearDown()

		conn, _, err := f.dialView(nil)
		require.NoError(t, err)
		defer conn.Close()

		e := nextEvent(t, conn, SnapshotEvent)
		var snapshot core.Snapshot
		require.NoError(t, json.Unmarshal(e.Payload, &snapshot))
		assert.Equal(t, core.NoRoom, snapshot.State)
		assert.Equal(t, core.DefaultDisplayName, snapshot.DisplayName)

		f.createRoom("Team Sync")
		e = nextEvent(t, conn, core.RoomCreatedEvent)
		require.NoError(t, json.Unmarshal(e.Payload, &snapshot))
		assert.Equal(t, core.ActiveRoom, snapshot.State)
		assert.Equal(t, "Team Sync", snapshot.Room.Name)

		f.doInto(http.MethodPost, "/api/messages", SendMessagePayload{Content: "hi"}, http.StatusAccepted, nil)
		e = nextEvent(t, conn, core.MessageAppendedEvent)
		var msg core.Message
		require.NoError(t, json.Unmarshal(e.Payload, &msg))
		assert.Equal(t, "hi", msg.Content)

		f.doInto(http.MethodDelete, "/api/rooms/current", nil, http.StatusNoContent, nil)
		nextEvent(t, conn, core.RoomLeftEvent)
	})

	t.Run("countdown while the room has a self-destruct time", func(t *testing.T) {
		f := NewAppFixture(t, WithViewOptions(
			WithCountdownPeriod(10*time.Millisecond),
			WithViewClock(func() time.Time { return fixedNow.Add(30 * time.Minute) }),
		))
		defer f.tearDown()

		conn, _, err := f.dialView(nil)
		require.NoError(t, err)
		defer conn.Close()
		nextEvent(t, conn, SnapshotEvent)

		f.doInto(http.MethodPost, "/api/rooms", CreateRoomPayload{
			Name:             "Team Sync",
			InviteCode:       "AB12CD34",
			DisplayName:      "Dana",
			SelfDestructTime: 1,
		}, http.StatusCreated, nil)

		e := nextEvent(t, conn, core.CountdownEvent)
		var tick core.CountdownTick
		require.NoError(t, json.Unmarshal(e.Payload, &tick))
		assert.Equal(t, "00:30:00", tick.Remaining)
		assert.False(t, tick.Expired)
		assert.True(t, fixedNow.Add(time.Hour).Equal(tick.ExpiresAt))
	})

	t.Run("rejects foreign origins", func(t *testing.T) {
		f := newAppFixture(t, func(c *Config) {
			c.AllowedOrigins = []string{"http://allowed.test"}
		})
		defer f.tearDown()

		_, res, err := f.dialView(http.Header{"Origin": {"http://evil.test"}})
		require.Error(t, err)
		require.NotNil(t, res)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)

		conn, _, err := f.dialView(http.Header{"Origin": {"http://allowed.test"}})
		require.NoError(t, err)
		conn.Close()
	})

	t.Run("views are released on disconnect", func(t *testing.T) {
		f := NewAppFixture(t)
		defer f.tearDown()

		conn, _, err := f.dialView(nil)
		require.NoError(t, err)
		nextEvent(t, conn, SnapshotEvent)
		assert.Equal(t, 1, f.app.views.Len())

		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()

		assert.Eventually(t, func() bool {
			return f.app.views.Len() == 0
		}, 5*time.Second, 10*time.Millisecond)
	})
}
