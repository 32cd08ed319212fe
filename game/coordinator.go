package game

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// ResultReporter receives the outcome of a finished match. Reporting
// must not block gameplay; implementations are fire-and-forget.
type ResultReporter interface {
	Report(result *GameResult)
}

// MatchCoordinator routes intents from connected participants to rooms
// and the matchmaking queue, and tracks which room each connection
// belongs to. Its lock serializes intent handling, so room state only
// ever changes under it or under a scheduler callback.
type MatchCoordinator struct {
	registry *RoomRegistry
	reporter ResultReporter

	locker      sync.Mutex
	memberships map[string]string // connId -> roomId
}

func NewMatchCoordinator(registry *RoomRegistry, reporter ResultReporter) *MatchCoordinator {
	return &MatchCoordinator{
		registry:    registry,
		reporter:    reporter,
		memberships: make(map[string]string),
	}
}

// Dispatch handles one decoded intent from a participant's read pump.
// Unknown intents are logged and dropped.
func (c *MatchCoordinator) Dispatch(p *Participant, intent IntentEnvelope) {
	switch intent.Intent {
	case IntentJoinRoom:
		c.JoinRoom(p, intent.RoomId, intent.Name)
	case IntentFindRandomMatch:
		c.FindRandomMatch(p, intent.Name)
	case IntentCellClicked:
		c.CellClicked(p, intent.Row, intent.Col)
	case IntentLeaveRoom:
		c.LeaveRoom(p)
	default:
		log.Warn().Str("intent", intent.Intent).Str("connId", p.connId).Msg("unknown intent")
	}
}

// nameParticipant records the display name sent with a join intent,
// falling back to the account's ledger key. Lock held; names never
// change once set, so mid-game rename attempts are ignored.
func (c *MatchCoordinator) nameParticipant(p *Participant, name string) {
	if p.name != "" {
		return
	}
	if name == "" {
		name = p.ledgerKey
	}
	p.name = name
}

// JoinRoom places a participant into the named room, creating it when
// absent. A participant already in a room or waiting in the queue gets
// alreadyInRoom; a full or started room gets roomAlreadyFilled. Errors
// go to the sender only.
func (c *MatchCoordinator) JoinRoom(p *Participant, roomId, name string) {
	if roomId == "" {
		return
	}

	c.locker.Lock()
	defer c.locker.Unlock()

	c.nameParticipant(p, name)
	if _, member := c.memberships[p.connId]; member || c.registry.Queued(p.connId) {
		p.sendEvent(EventAlreadyInRoom, struct{}{})
		return
	}

	room := c.registry.GetOrCreateRoom(roomId)
	room.locker.Lock()
	err := room.join(p)
	room.locker.Unlock()

	switch err {
	case nil:
		c.memberships[p.connId] = roomId
	case ErrRoomFull:
		p.sendEvent(EventRoomAlreadyFilled, struct{}{})
	case ErrAlreadyJoined:
		p.sendEvent(EventAlreadyInRoom, struct{}{})
	}
}

// FindRandomMatch enqueues a participant for FIFO matchmaking. If a
// partner is already waiting the two are paired immediately; otherwise
// the participant is told to wait. Re-requesting while queued is a
// silent no-op.
func (c *MatchCoordinator) FindRandomMatch(p *Participant, name string) {
	c.locker.Lock()
	defer c.locker.Unlock()

	c.nameParticipant(p, name)
	if _, member := c.memberships[p.connId]; member {
		p.sendEvent(EventAlreadyInRoom, struct{}{})
		return
	}

	room, paired, enqueued := c.registry.EnqueueRandom(p)
	if !enqueued {
		return
	}
	if room == nil {
		p.sendEvent(EventWaitingForMatch, struct{}{})
		return
	}
	for _, matched := range paired {
		c.memberships[matched.connId] = room.Id()
	}
}

// CellClicked forwards a reaction to the participant's room. Clicks
// from participants not in any room are dropped.
func (c *MatchCoordinator) CellClicked(p *Participant, row, col int) {
	c.locker.Lock()
	defer c.locker.Unlock()

	roomId, member := c.memberships[p.connId]
	if !member {
		return
	}
	room, ok := c.registry.Room(roomId)
	if !ok {
		return
	}

	room.locker.Lock()
	result := room.registerReaction(p.connId, row, col)
	room.locker.Unlock()

	if result != nil {
		c.reporter.Report(result)
	}
}

// LeaveRoom tears the participant's room down without ceremony: no
// playerLeft, no gameOver, no score report. Everyone who was in the
// room is released from it.
func (c *MatchCoordinator) LeaveRoom(p *Participant) {
	c.locker.Lock()
	defer c.locker.Unlock()

	roomId, member := c.memberships[p.connId]
	if !member {
		return
	}
	room, ok := c.registry.Room(roomId)
	if !ok {
		delete(c.memberships, p.connId)
		return
	}

	room.locker.Lock()
	room.state = StateEnded
	room.generation++
	roster := room.participants
	room.locker.Unlock()

	c.registry.DeleteRoom(roomId)
	for _, occupant := range roster {
		delete(c.memberships, occupant.connId)
	}
}

// Disconnect handles a dropped connection: dequeue if waiting, forfeit
// the match if one is running, otherwise just vacate the room.
func (c *MatchCoordinator) Disconnect(p *Participant) {
	c.locker.Lock()
	defer c.locker.Unlock()

	if c.registry.RemoveFromQueue(p.connId) {
		return
	}

	roomId, member := c.memberships[p.connId]
	if !member {
		return
	}
	delete(c.memberships, p.connId)

	room, ok := c.registry.Room(roomId)
	if !ok {
		return
	}

	room.locker.Lock()
	state := room.state
	remaining, removed := room.removeParticipant(p.connId)
	if !removed {
		room.locker.Unlock()
		return
	}

	var result *GameResult
	switch {
	case remaining == nil:
		room.locker.Unlock()
		c.registry.DeleteRoom(roomId)
		return
	case state == StateRunning:
		result = room.forceTerminate(p, remaining)
		room.locker.Unlock()
	case state == StateEnded:
		room.emit(EventPlayerLeft, PlayerLeftEvent{LeftId: p.connId})
		room.locker.Unlock()
		return
	default: // StateWaiting with someone still in it
		room.emit(EventPlayersUpdate, PlayersUpdateEvent{Players: room.names()})
		room.locker.Unlock()
		return
	}

	c.reporter.Report(result)
	c.registry.DeleteRoom(roomId)
	delete(c.memberships, remaining.connId)
}
