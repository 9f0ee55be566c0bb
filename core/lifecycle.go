package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLatency         = 500 * time.Millisecond
	DefaultReplyDelay      = 2000 * time.Millisecond
	DefaultJoinFailureRate = 0.2

	// SettingsUpdatedNotice is appended to the log after every settings update.
	SettingsUpdatedNotice = "Room settings have been updated."

	localParticipantID     = "1"
	syntheticParticipantID = "2"
	syntheticCounterpart   = "Alex"
)

var (
	// SyntheticNames are the senders a simulated reply is attributed to.
	SyntheticNames = []string{"Alex", "Taylor", "Jordan"}
	// CannedReplies are the contents a simulated reply is drawn from.
	CannedReplies = []string{
		"That's interesting!",
		"I agree with you.",
		"Could you explain more?",
		"Thanks for sharing that.",
		"I hadn't thought of it that way.",
	}
)

// WelcomeMessage returns the system greeting seeded into a new room's log.
func WelcomeMessage(roomName string) string {
	return fmt.Sprintf("Welcome to %s! 👋", roomName)
}

// RenameNotice returns the system notice appended when the viewer renames themselves.
func RenameNotice(oldName, newName string) string {
	return fmt.Sprintf("%s changed their name to %s.", oldName, newName)
}

// Lifecycle is the single authority over the viewer's room: whether one
// exists, its configuration, its participants and its message log.
//
// There is no backend. Creating and joining rooms, participants and
// replies are simulated with the configured Random and Scheduler.
type Lifecycle struct {
	mu           sync.Mutex
	room         *Room
	participants []Participant
	messages     []Message
	lastID       int64
	displayName  string
	nameLoaded   bool

	identity        *IdentityStore
	random          Random
	scheduler       Scheduler
	now             func() time.Time
	latency         time.Duration
	replyDelay      time.Duration
	joinFailureRate float64
	events          *Broadcaster
	logger          *slog.Logger
}

type LifecycleOption func(*Lifecycle)

func WithRandom(r Random) LifecycleOption {
	return func(l *Lifecycle) {
		l.random = r
	}
}

func WithScheduler(s Scheduler) LifecycleOption {
	return func(l *Lifecycle) {
		l.scheduler = s
	}
}

func WithClock(now func() time.Time) LifecycleOption {
	return func(l *Lifecycle) {
		l.now = now
	}
}

// WithLatency sets the simulated round trip of create, join and settings operations.
func WithLatency(d time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		l.latency = d
	}
}

// WithReplyDelay sets how long after a sent message the simulated reply arrives.
func WithReplyDelay(d time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		l.replyDelay = d
	}
}

// WithJoinFailureRate sets the probability in [0, 1] that a join finds no room.
func WithJoinFailureRate(rate float64) LifecycleOption {
	return func(l *Lifecycle) {
		l.joinFailureRate = rate
	}
}

func WithBroadcaster(b *Broadcaster) LifecycleOption {
	return func(l *Lifecycle) {
		l.events = b
	}
}

func WithLogger(logger *slog.Logger) LifecycleOption {
	return func(l *Lifecycle) {
		l.logger = logger
	}
}

func NewLifecycle(identity *IdentityStore, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		identity:        identity,
		random:          SystemRandom,
		scheduler:       SystemScheduler,
		now:             time.Now,
		latency:         DefaultLatency,
		replyDelay:      DefaultReplyDelay,
		joinFailureRate: DefaultJoinFailureRate,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateRoom makes the viewer the host of a new room described by config.
// Blank fields fail with a ValidationError before any state changes.
func (l *Lifecycle) CreateRoom(ctx context.Context, config RoomConfig, displayName string) (*Room, error) {
	if err := validateRoomConfig(&config, displayName); err != nil {
		return nil, err
	}

	if err := Sleep(ctx, l.scheduler, l.latency); err != nil {
		return nil, NewAppError(RoomError, "Room setup didn't complete. Let's try again?",
			map[string]any{"cause": err.Error()})
	}

	room := Room{
		ID:               uuid.New().String(),
		Name:             config.Name,
		InviteCode:       config.InviteCode,
		Password:         config.Password,
		MaxParticipants:  config.MaxParticipants,
		IsHost:           true,
		SelfDestructTime: config.SelfDestructTime,
		CreatedAt:        l.now(),
	}
	snapshot := l.enter(room, displayName)
	l.persistDisplayName(ctx, displayName)

	l.logger.Info("room created", slog.String("room", room.ID), slog.String("invite_code", room.InviteCode))
	l.events.Publish(RoomCreatedEvent, snapshot)
	return cloneRoom(snapshot.Room), nil
}

// JoinRoom enters the room identified by inviteCode. The lookup is
// simulated and fails with a RoomError at the configured rate.
func (l *Lifecycle) JoinRoom(ctx context.Context, inviteCode, displayName string) (*Room, error) {
	if strings.TrimSpace(displayName) == "" {
		return nil, validationError("display_name", "Please enter your name to continue")
	}
	inviteCode = strings.TrimSpace(inviteCode)
	if inviteCode == "" {
		return nil, validationError("invite_code", "An invite code is needed to find the room")
	}

	if err := Sleep(ctx, l.scheduler, l.latency); err != nil {
		return nil, NewAppError(RoomError, "Couldn't join the room right now. Mind trying again?",
			map[string]any{"cause": err.Error()})
	}

	if l.random.Float64() < l.joinFailureRate {
		l.logger.Info("simulated room lookup miss", slog.String("invite_code", inviteCode))
		return nil, NewAppError(RoomError, "We couldn't find that room. Double-check the invite code?",
			map[string]any{"invite_code": inviteCode})
	}

	room := Room{
		ID:              uuid.New().String(),
		Name:            JoinedRoomName,
		InviteCode:      inviteCode,
		MaxParticipants: UnlimitedParticipants,
		IsHost:          false,
		CreatedAt:       l.now(),
	}
	snapshot := l.enter(room, displayName)
	l.persistDisplayName(ctx, displayName)

	l.logger.Info("room joined", slog.String("room", room.ID), slog.String("invite_code", room.InviteCode))
	l.events.Publish(RoomJoinedEvent, snapshot)
	return cloneRoom(snapshot.Room), nil
}

// enter replaces the whole room state with room, reseeding the
// participants and the welcome message.
func (l *Lifecycle) enter(room Room, displayName string) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.room = &room
	l.displayName = displayName
	l.nameLoaded = true
	l.participants = []Participant{
		{ID: localParticipantID, Name: displayName, IsHost: room.IsHost},
		{ID: syntheticParticipantID, Name: syntheticCounterpart, IsHost: !room.IsHost},
	}
	l.messages = nil
	l.appendLocked(SystemSender, WelcomeMessage(room.Name), true)
	return l.snapshotLocked()
}

// UpdateSettings merges settings into the active room and records a notice
// in the log. The merged room is not revalidated.
func (l *Lifecycle) UpdateSettings(ctx context.Context, settings RoomSettings) (*Room, error) {
	if l.State() == NoRoom {
		return nil, errNoActiveRoom()
	}

	if err := Sleep(ctx, l.scheduler, l.latency); err != nil {
		return nil, NewAppError(RoomError, "Settings didn't save. Mind trying again?",
			map[string]any{"cause": err.Error()})
	}

	l.mu.Lock()
	if l.room == nil {
		l.mu.Unlock()
		return nil, errNoActiveRoom()
	}
	merged := settings.apply(*l.room)
	l.room = &merged
	msg := l.appendLocked(SystemSender, SettingsUpdatedNotice, true)
	room := cloneRoom(l.room)
	l.mu.Unlock()

	l.logger.Info("room settings updated", slog.String("room", room.ID))
	l.events.Publish(RoomUpdatedEvent, room)
	l.events.Publish(MessageAppendedEvent, msg)
	return room, nil
}

// UpdateDisplayName renames the viewer, persists the new name and, while a
// room is active, records the change in the log.
func (l *Lifecycle) UpdateDisplayName(ctx context.Context, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return validationError("display_name", "Display name cannot be empty")
	}

	// loads the stored identity on first use
	l.DisplayName(ctx)

	l.mu.Lock()
	oldName := l.displayName
	l.displayName = newName
	l.nameLoaded = true
	var notice *Message
	if l.room != nil {
		for i := range l.participants {
			if l.participants[i].ID == localParticipantID {
				l.participants[i].Name = newName
			}
		}
		msg := l.appendLocked(SystemSender, RenameNotice(oldName, newName), true)
		notice = &msg
	}
	l.mu.Unlock()

	l.persistDisplayName(ctx, newName)

	l.events.Publish(ParticipantRenamedEvent, Participant{ID: localParticipantID, Name: newName})
	if notice != nil {
		l.events.Publish(MessageAppendedEvent, notice)
	}
	return nil
}

// SendMessage appends content from sender to the log and schedules one
// simulated reply after the reply delay. Blank content is ignored. The reply
// is delivered even if the room has been left by then.
func (l *Lifecycle) SendMessage(content, sender string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	l.mu.Lock()
	if l.room == nil {
		l.mu.Unlock()
		return NewAppError(RoomError, "Create or join a room before sending messages", nil)
	}
	if strings.TrimSpace(sender) == "" {
		sender = l.displayName
	}
	msg := l.appendLocked(sender, content, false)
	l.mu.Unlock()

	l.events.Publish(MessageAppendedEvent, msg)
	l.scheduler.AfterFunc(l.replyDelay, l.reply)
	return nil
}

func (l *Lifecycle) reply() {
	l.mu.Lock()
	sender := SyntheticNames[l.random.IntN(len(SyntheticNames))]
	content := CannedReplies[l.random.IntN(len(CannedReplies))]
	msg := l.appendLocked(sender, content, false)
	l.mu.Unlock()

	l.events.Publish(MessageAppendedEvent, msg)
}

// LeaveRoom discards the room, its participants and its log.
func (l *Lifecycle) LeaveRoom() {
	l.mu.Lock()
	var id string
	if l.room != nil {
		id = l.room.ID
	}
	l.room = nil
	l.participants = nil
	l.messages = nil
	l.mu.Unlock()

	l.logger.Info("room left", slog.String("room", id))
	l.events.Publish(RoomLeftEvent, struct {
		ID string `json:"id"`
	}{ID: id})
}

func (l *Lifecycle) State() RoomState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.room == nil {
		return NoRoom
	}
	return ActiveRoom
}

// Room returns a copy of the active room, or nil.
func (l *Lifecycle) Room() *Room {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneRoom(l.room)
}

func (l *Lifecycle) Participants() []Participant {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneParticipants(l.participants)
}

func (l *Lifecycle) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneMessages(l.messages)
}

// DisplayName returns the viewer's current name, reading the identity
// store the first time it is needed.
func (l *Lifecycle) DisplayName(ctx context.Context) string {
	l.mu.Lock()
	loaded, name := l.nameLoaded, l.displayName
	l.mu.Unlock()
	if loaded {
		return name
	}

	name = l.identity.DisplayName(ctx)
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.nameLoaded {
		l.displayName = name
		l.nameLoaded = true
	}
	return l.displayName
}

func (l *Lifecycle) Snapshot(ctx context.Context) Snapshot {
	l.DisplayName(ctx)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Lifecycle) snapshotLocked() Snapshot {
	s := Snapshot{
		State:        NoRoom,
		Room:         cloneRoom(l.room),
		Participants: cloneParticipants(l.participants),
		Messages:     cloneMessages(l.messages),
		DisplayName:  l.displayName,
	}
	if l.room != nil {
		s.State = ActiveRoom
	}
	return s
}

// appendLocked adds a message to the log. l.mu must be held.
func (l *Lifecycle) appendLocked(sender, content string, system bool) Message {
	ts := l.now()
	id := ts.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id

	msg := Message{
		ID:        strconv.FormatInt(id, 10),
		Content:   content,
		Sender:    sender,
		Timestamp: ts,
		IsSystem:  system,
	}
	l.messages = append(l.messages, msg)
	return msg
}

func (l *Lifecycle) persistDisplayName(ctx context.Context, name string) {
	if err := l.identity.SetDisplayName(ctx, name); err != nil {
		l.logger.Error("persist display name", slog.String("err", err.Error()))
	}
}

func validateRoomConfig(config *RoomConfig, displayName string) error {
	if strings.TrimSpace(config.Name) == "" {
		return validationError("name", "Room name is needed to create your space")
	}
	if strings.TrimSpace(displayName) == "" {
		return validationError("display_name", "Please enter your name to continue")
	}
	if strings.TrimSpace(config.InviteCode) == "" {
		return validationError("invite_code", "An invite code helps others join your room")
	}
	if config.MaxParticipants == 0 {
		config.MaxParticipants = UnlimitedParticipants
	}
	if config.MaxParticipants < MinParticipants || config.MaxParticipants > UnlimitedParticipants {
		return validationError("max_participants",
			fmt.Sprintf("Max participants must be between %d and %d", MinParticipants, UnlimitedParticipants))
	}
	if config.SelfDestructTime < 0 {
		return validationError("self_destruct_time", "Self-destruct time cannot be negative")
	}
	return nil
}

func validationError(field, message string) *AppError {
	return NewAppError(ValidationError, message, map[string]any{"field": field})
}

func errNoActiveRoom() *AppError {
	return NewAppError(RoomError, "No active room to update", nil)
}
