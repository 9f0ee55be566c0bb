package prism

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/putto11262002/prism/core"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// SnapshotEvent is the first event sent on every view connection.
	SnapshotEvent = "view.snapshot"
)

var defaultUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ViewManager pushes lifecycle events to connected browser views.
// Views never send intents over the socket; it is push only.
type ViewManager struct {
	conns     *core.SyncMap[int64, *viewConn]
	nextID    atomic.Int64
	connWg    *sync.WaitGroup
	context   context.Context
	logger    *slog.Logger
	lifecycle *core.Lifecycle
	events    *core.Broadcaster

	upgrader        websocket.Upgrader
	now             func() time.Time
	countdownPeriod time.Duration
	BufferSize      int
}

type ViewOption func(*ViewManager)

func WithCheckOrigin(f func(r *http.Request) bool) ViewOption {
	return func(m *ViewManager) {
		m.upgrader.CheckOrigin = f
	}
}

// WithCountdownPeriod sets how often the self-destruct countdown is pushed.
func WithCountdownPeriod(d time.Duration) ViewOption {
	return func(m *ViewManager) {
		m.countdownPeriod = d
	}
}

func WithViewClock(now func() time.Time) ViewOption {
	return func(m *ViewManager) {
		m.now = now
	}
}

func NewViewManager(ctx context.Context, wg *sync.WaitGroup, lifecycle *core.Lifecycle,
	events *core.Broadcaster, logger *slog.Logger, opts ...ViewOption) *ViewManager {
	m := &ViewManager{
		conns:           core.NewSyncMap[int64, *viewConn](),
		connWg:          wg,
		context:         ctx,
		logger:          logger,
		lifecycle:       lifecycle,
		events:          events,
		upgrader:        defaultUpgrader,
		now:             time.Now,
		countdownPeriod: time.Second,
		BufferSize:      100,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Len returns the number of open view connections.
func (m *ViewManager) Len() int {
	return m.conns.Len()
}

// Connect upgrades the request and starts streaming events to it. The view
// first receives a snapshot of the current state, then every lifecycle event
// and, while the room has a self-destruct time, a countdown every period.
func (m *ViewManager) Connect(w http.ResponseWriter, r *http.Request) error {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("Upgrade: %w", err)
	}

	id := m.nextID.Add(1)
	ctx, cancel := context.WithCancel(m.context)
	// subscribe before taking the snapshot so no event falls in between
	sub := m.events.Subscribe(m.BufferSize)
	c := &viewConn{
		conn:            conn,
		id:              id,
		context:         ctx,
		cancel:          cancel,
		sub:             sub,
		lifecycle:       m.lifecycle,
		now:             m.now,
		pingTicker:      time.NewTicker(pingPeriod),
		countdownTicker: time.NewTicker(m.countdownPeriod),
		logger:          m.logger.With(slog.Int64("view", id)),
		notifyDisconnect: func() {
			m.conns.Delete(id)
		},
	}
	m.conns.Store(id, c)

	snapshot, err := core.NewEvent(SnapshotEvent, m.lifecycle.Snapshot(ctx))
	if err != nil {
		c.shutdown()
		return err
	}

	m.connWg.Add(1)
	go func() {
		defer m.connWg.Done()
		c.readLoop()
	}()
	m.connWg.Add(1)
	go func() {
		defer m.connWg.Done()
		c.writeLoop(snapshot)
	}()
	return nil
}

type viewConn struct {
	conn             *websocket.Conn
	id               int64
	context          context.Context
	cancel           context.CancelFunc
	sub              *core.Subscription
	lifecycle        *core.Lifecycle
	now              func() time.Time
	pingTicker       *time.Ticker
	countdownTicker  *time.Ticker
	notifyDisconnect func()
	logger           *slog.Logger
	once             sync.Once
}

// shutdown releases everything the connection holds. Safe to call more than once.
func (c *viewConn) shutdown() {
	c.once.Do(func() {
		c.cancel()
		c.pingTicker.Stop()
		c.countdownTicker.Stop()
		c.sub.Close()
		c.conn.Close()
		c.notifyDisconnect()
	})
}

// readLoop only services control frames; anything the view sends is discarded.
func (c *viewConn) readLoop() {
	c.logger.Debug("read loop started")
	defer func() {
		c.cancel()
		c.logger.Debug("read loop stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info(fmt.Sprintf("expected close: %v", err))
				return
			}
			if websocket.IsUnexpectedCloseError(err) {
				c.logger.Error(fmt.Sprintf("unexpected close: %v", err))
				return
			}
			c.logger.Debug(fmt.Sprintf("NextReader: %v", err))
			return
		}
	}
}

func (c *viewConn) writeLoop(first *core.Event) {
	c.logger.Debug("write loop started")
	defer func() {
		c.shutdown()
		c.logger.Debug("write loop stopped")
	}()

	if err := c.write(first); err != nil {
		c.logger.Error(err.Error())
		return
	}

	for {
		select {
		case e, ok := <-c.sub.C:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.write(e); err != nil {
				c.logger.Error(err.Error())
				return
			}
		case <-c.countdownTicker.C:
			tick, ok := core.Countdown(c.lifecycle.Room(), c.now())
			if !ok {
				continue
			}
			e, err := core.NewEvent(core.CountdownEvent, tick)
			if err != nil {
				c.logger.Error(err.Error())
				continue
			}
			if err := c.write(e); err != nil {
				c.logger.Error(err.Error())
				return
			}
		case <-c.pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error(fmt.Sprintf("writing ping: %v", err))
				return
			}
		case <-c.context.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

func (c *viewConn) write(e *core.Event) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return fmt.Errorf("NextWriter: %w", err)
	}
	if err := core.EncodeEvent(w, e); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
