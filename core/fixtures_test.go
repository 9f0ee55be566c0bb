package core

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type LifecycleFixture struct {
	ctx       context.Context
	kv        *MemoryKV
	random    *fakeRandom
	scheduler *manualScheduler
	events    *Subscription
	lifecycle *Lifecycle
	tearDown  func()
	t         *testing.T
}

// NewLifecycleFixture builds a lifecycle with no latency, a fixed clock and
// a manual scheduler holding the simulated replies.
func NewLifecycleFixture(t *testing.T, opts ...LifecycleOption) *LifecycleFixture {
	ctx, cancel := context.WithCancel(context.Background())
	kv := NewMemoryKV()
	random := &fakeRandom{}
	scheduler := &manualScheduler{}
	broadcaster := NewBroadcaster(nil)
	sub := broadcaster.Subscribe(64)

	defaults := []LifecycleOption{
		WithRandom(random),
		WithScheduler(scheduler),
		WithClock(func() time.Time { return fixedNow }),
		WithLatency(0),
		WithBroadcaster(broadcaster),
	}

	return &LifecycleFixture{
		ctx:       ctx,
		kv:        kv,
		random:    random,
		scheduler: scheduler,
		events:    sub,
		lifecycle: NewLifecycle(NewIdentityStore(kv, nil), append(defaults, opts...)...),
		tearDown: func() {
			sub.Close()
			cancel()
		},
		t: t,
	}
}

func (f *LifecycleFixture) createRoom(name string) *Room {
	room, err := f.lifecycle.CreateRoom(f.ctx, RoomConfig{Name: name, InviteCode: "AB12CD34"}, "Dana")
	if err != nil {
		f.t.Fatal(err)
	}
	return room
}

// drainEvents returns the types of all events published so far.
func (f *LifecycleFixture) drainEvents() []string {
	var types []string
	for {
		select {
		case e := <-f.events.C:
			types = append(types, e.Type)
		default:
			return types
		}
	}
}

type SQLiteFixture struct {
	ctx      context.Context
	db       *SQLiteDB
	kv       *SQLiteKV
	tearDown func()
}

func NewSQLiteFixture(t *testing.T) *SQLiteFixture {
	ctx, cancel := context.WithCancel(context.Background())

	db, err := NewSQLiteDB(uuid.NewString(), &SQLiteDBOption{Mode: "memory", Cache: "shared"})
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	return &SQLiteFixture{
		ctx: ctx,
		db:  db,
		kv:  NewSQLiteKV(db.DB),
		tearDown: func() {
			cancel()
			db.Close()
		},
	}
}
