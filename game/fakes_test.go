package game

import (
	"context"
	"errors"
	"sync"
)

// --- Random ---

// scriptedRandom replays values in order and panics when a value is out of
// range, so tests notice when the draw they scripted no longer applies.
type scriptedRandom struct {
	mu     sync.Mutex
	values []int
	calls  []int
}

func newScriptedRandom(values ...int) *scriptedRandom {
	return &scriptedRandom{values: values}
}

func (r *scriptedRandom) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, n)
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[0]
	r.values = r.values[1:]
	if v < 0 || v >= n {
		panic("scripted random value out of range")
	}
	return v
}

// --- RoomDirectory ---

type memoryDirectory struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	failing error
	saves   int
	deleted []string
}

func newMemoryDirectory(rooms ...*Room) *memoryDirectory {
	d := &memoryDirectory{rooms: make(map[string]*Room)}
	for _, r := range rooms {
		d.rooms[r.Code] = r
	}
	return d
}

func copyRoom(r *Room) *Room {
	cp := *r
	cp.Players = append([]Player(nil), r.Players...)
	return &cp
}

func (d *memoryDirectory) FindRoom(_ context.Context, code string) (*Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failing != nil {
		return nil, d.failing
	}
	r, ok := d.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return copyRoom(r), nil
}

func (d *memoryDirectory) SaveRoom(_ context.Context, room *Room) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failing != nil {
		return d.failing
	}
	d.saves++
	d.rooms[room.Code] = copyRoom(room)
	return nil
}

func (d *memoryDirectory) SetStatus(_ context.Context, code, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	r.Status = status
	return nil
}

func (d *memoryDirectory) DeleteRoom(_ context.Context, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.rooms, code)
	d.deleted = append(d.deleted, code)
	return nil
}

func (d *memoryDirectory) room(code string) (*Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[code]
	if !ok {
		return nil, false
	}
	return copyRoom(r), true
}

// --- Broadcaster ---

type sentEvent struct {
	Target  string
	Event   string
	Payload any
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	events   []sentEvent
	attached map[string]string
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{attached: make(map[string]string)}
}

func (b *recordingBroadcaster) Attach(code, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attached[connID] = code
}

func (b *recordingBroadcaster) Detach(code, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attached[connID] == code {
		delete(b.attached, connID)
	}
}

func (b *recordingBroadcaster) Broadcast(code, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{Target: "room:" + code, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) Send(connID, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{Target: "conn:" + connID, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) named(event string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (b *recordingBroadcaster) last(event string) (sentEvent, bool) {
	events := b.named(event)
	if len(events) == 0 {
		return sentEvent{}, false
	}
	return events[len(events)-1], true
}

func (b *recordingBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

// --- SnapshotStore / StatsRecorder ---

type memorySnapshots struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{snaps: make(map[string]Snapshot)}
}

func (m *memorySnapshots) Save(_ context.Context, code string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[code] = snap
	return nil
}

func (m *memorySnapshots) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, code)
	return nil
}

func (m *memorySnapshots) get(code string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[code]
	return s, ok
}

type countingStats struct {
	mu        sync.Mutex
	started   []uint
	completed map[uint]int
	failed    map[uint]int
}

func newCountingStats() *countingStats {
	return &countingStats{completed: map[uint]int{}, failed: map[uint]int{}}
}

func (s *countingStats) RecordGameStarted(_ context.Context, ids []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, ids...)
	return nil
}

func (s *countingStats) RecordTaskResult(_ context.Context, id uint, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if completed {
		s.completed[id]++
	} else {
		s.failed[id]++
	}
	return nil
}

var errDirectoryDown = errors.New("directory unavailable")

func players(names ...string) []Player {
	out := make([]Player, 0, len(names))
	for i, n := range names {
		out = append(out, Player{UserID: uint(i + 1), Name: n})
	}
	return out
}
