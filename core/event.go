package core

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Event types published by the lifecycle manager.
const (
	RoomCreatedEvent        = "room.created"
	RoomJoinedEvent         = "room.joined"
	RoomUpdatedEvent        = "room.updated"
	RoomLeftEvent           = "room.left"
	MessageAppendedEvent    = "message.appended"
	ParticipantRenamedEvent = "participant.renamed"
	CountdownEvent          = "room.countdown"
)

type Event struct {
	ID      int64           `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (e Event) String() string {
	return fmt.Sprintf("Event{ID: %d, Type: %s, Payload.Size: %d}", e.ID, e.Type, len(e.Payload))
}

func NewEvent(t string, payload any) (*Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return &Event{Type: t, Payload: b}, nil
}

func EncodeEvent(w io.Writer, e *Event) error {
	if err := json.NewEncoder(w).Encode(e); err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return nil
}

func DecodeEvent(r io.Reader, e *Event) error {
	if err := json.NewDecoder(r).Decode(e); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return nil
}

// Subscription receives published events on C until it is closed.
type Subscription struct {
	id     int64
	C      <-chan *Event
	c      chan *Event
	b      *Broadcaster
	closed sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.closed.Do(func() {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()
		s.b.subs.Delete(s.id)
		close(s.c)
	})
}

// Broadcaster fans events out to subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	subs   *SyncMap[int64, *Subscription]
	nextID atomic.Int64
	seq    atomic.Int64
	// mu orders sends against Close so nothing is sent on a closed channel.
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{subs: NewSyncMap[int64, *Subscription](), logger: logger}
}

func (b *Broadcaster) Subscribe(buffer int) *Subscription {
	c := make(chan *Event, buffer)
	s := &Subscription{id: b.nextID.Add(1), C: c, c: c, b: b}
	b.subs.Store(s.id, s)
	return s
}

// Publish marshals payload into an event of type t and delivers it.
func (b *Broadcaster) Publish(t string, payload any) {
	if b == nil {
		return
	}
	e, err := NewEvent(t, payload)
	if err != nil {
		b.logger.Error(err.Error())
		return
	}
	e.ID = b.seq.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()
	b.subs.Range(func(id int64, s *Subscription) bool {
		select {
		case s.c <- e:
		default:
			b.logger.Warn("subscriber buffer full, dropping event",
				slog.Int64("subscriber", id), slog.String("event", e.String()))
		}
		return true
	})
}
