package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type roomDeps struct {
	now      func() time.Time
	cells    CellPicker
	schedule Scheduler
}

// RoomRegistry owns the live rooms and the random-match queue. Room
// lifecycle (create, look up, delete) is guarded by locker; the queue
// has its own lock so matchmaking never contends with room lookups.
type RoomRegistry struct {
	locker sync.RWMutex
	rooms  map[string]*GameRoom

	queueLocker sync.Mutex
	queue       []*Participant

	deps roomDeps
}

func NewRoomRegistry(cells CellPicker, schedule Scheduler) *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]*GameRoom),
		deps: roomDeps{
			now:      time.Now,
			cells:    cells,
			schedule: schedule,
		},
	}
}

// GetOrCreateRoom returns the room with the given id, creating an empty
// Waiting room when none exists.
func (rr *RoomRegistry) GetOrCreateRoom(id string) *GameRoom {
	rr.locker.Lock()
	defer rr.locker.Unlock()
	if room, ok := rr.rooms[id]; ok {
		return room
	}
	room := newGameRoom(id, rr.deps)
	rr.rooms[id] = room
	return room
}

func (rr *RoomRegistry) Room(id string) (*GameRoom, bool) {
	rr.locker.RLock()
	defer rr.locker.RUnlock()
	room, ok := rr.rooms[id]
	return room, ok
}

func (rr *RoomRegistry) DeleteRoom(id string) {
	rr.locker.Lock()
	defer rr.locker.Unlock()
	delete(rr.rooms, id)
}

// EnqueueRandom adds a participant to the matchmaking queue. Pairing is
// strict FIFO: whenever two participants are waiting, the two oldest are
// matched into a fresh room. Returns the room and both paired
// participants when this enqueue completed a pair, and whether the
// participant was actually enqueued (re-enqueueing while already
// waiting is a no-op).
func (rr *RoomRegistry) EnqueueRandom(p *Participant) (room *GameRoom, paired []*Participant, enqueued bool) {
	rr.queueLocker.Lock()
	defer rr.queueLocker.Unlock()

	for _, waiting := range rr.queue {
		if waiting.connId == p.connId {
			return nil, nil, false
		}
	}
	rr.queue = append(rr.queue, p)
	if len(rr.queue) < 2 {
		return nil, nil, true
	}

	first, second := rr.queue[0], rr.queue[1]
	rr.queue = rr.queue[2:]

	room = newGameRoom(uuid.NewString(), rr.deps)
	room.locker.Lock()
	defer room.locker.Unlock()

	rr.locker.Lock()
	rr.rooms[room.id] = room
	rr.locker.Unlock()

	matched := MatchedEvent{RoomId: room.id, Players: []string{first.name, second.name}}
	first.sendEvent(EventMatched, matched)
	second.sendEvent(EventMatched, matched)

	// join cannot fail here: the room is fresh and both connIds are
	// distinct queue entries.
	_ = room.join(first)
	_ = room.join(second)
	return room, []*Participant{first, second}, true
}

// Queued reports whether a participant is waiting for a random match.
func (rr *RoomRegistry) Queued(connId string) bool {
	rr.queueLocker.Lock()
	defer rr.queueLocker.Unlock()
	for _, p := range rr.queue {
		if p.connId == connId {
			return true
		}
	}
	return false
}

// RemoveFromQueue drops a waiting participant, typically on disconnect.
// Reports whether the participant was queued.
func (rr *RoomRegistry) RemoveFromQueue(connId string) bool {
	rr.queueLocker.Lock()
	defer rr.queueLocker.Unlock()
	for i, p := range rr.queue {
		if p.connId == connId {
			rr.queue = append(rr.queue[:i], rr.queue[i+1:]...)
			return true
		}
	}
	return false
}
