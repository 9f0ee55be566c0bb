package prism

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/putto11262002/prism/core"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// stubRandom returns float for every Float64 draw and 0 for every IntN draw.
type stubRandom struct {
	mu    sync.Mutex
	float float64
}

func (r *stubRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.float
}

func (r *stubRandom) IntN(int) int {
	return 0
}

func (r *stubRandom) set(f float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.float = f
}

type AppFixture struct {
	ctx      context.Context
	app      *App
	server   *httptest.Server
	random   *stubRandom
	tearDown func()
	t        *testing.T
}

// NewAppFixture serves an app with an in-memory store, no latency, replies
// delivered immediately and a fixed clock.
func NewAppFixture(t *testing.T, opts ...Option) *AppFixture {
	return newAppFixture(t, nil, opts...)
}

func newAppFixture(t *testing.T, configure func(*Config), opts ...Option) *AppFixture {
	config := DefaultConfig()
	config.Store.Driver = MemoryStore
	config.LogLevel = "error"
	config.Simulation.Latency = 0
	if configure != nil {
		configure(config)
	}

	random := &stubRandom{float: 0.5}
	ctx, cancel := context.WithCancel(context.Background())

	defaults := []Option{
		WithLogOutput(io.Discard),
		WithRandom(random),
		WithLifecycleOptions(
			core.WithScheduler(core.ImmediateScheduler),
			core.WithClock(func() time.Time { return fixedNow }),
		),
	}
	app, err := New(ctx, config, append(defaults, opts...)...)
	require.NoError(t, err)

	server := httptest.NewServer(app.Handler())

	return &AppFixture{
		ctx:    ctx,
		app:    app,
		server: server,
		random: random,
		tearDown: func() {
			cancel()
			server.Close()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			app.Shutdown(shutdownCtx)
		},
		t: t,
	}
}

// do sends body as JSON and returns the response with its body read.
func (f *AppFixture) do(method, path string, body any) (*http.Response, []byte) {
	var r io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			r = bytes.NewBufferString(raw)
		} else {
			b, err := json.Marshal(body)
			require.NoError(f.t, err)
			r = bytes.NewBuffer(b)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, r)
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := f.server.Client().Do(req)
	require.NoError(f.t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(f.t, err)
	return res, b
}

// doInto sends body and decodes the response into v, requiring status.
func (f *AppFixture) doInto(method, path string, body any, status int, v any) {
	res, b := f.do(method, path, body)
	require.Equal(f.t, status, res.StatusCode, string(b))
	if v != nil {
		require.NoError(f.t, json.Unmarshal(b, v))
	}
}

func (f *AppFixture) createRoom(name string) core.Room {
	var room core.Room
	f.doInto(http.MethodPost, "/api/rooms", CreateRoomPayload{
		Name:        name,
		InviteCode:  "AB12CD34",
		DisplayName: "Dana",
	}, http.StatusCreated, &room)
	return room
}

func (f *AppFixture) state() core.Snapshot {
	var s core.Snapshot
	f.doInto(http.MethodGet, "/api/state", nil, http.StatusOK, &s)
	return s
}

func (f *AppFixture) expectError(method, path string, body any, status int, code core.ErrorCode) ErrorResponse {
	var e ErrorResponse
	f.doInto(method, path, body, status, &e)
	require.Equal(f.t, code, e.Code)
	return e
}
