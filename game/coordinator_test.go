package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coordinatorFixture struct {
	coordinator *MatchCoordinator
	registry    *RoomRegistry
	clock       *fakeClock
	sched       *manualScheduler
	reporter    *recordingReporter
}

func newCoordinatorFixture(cells CellPicker) *coordinatorFixture {
	clock := newFakeClock()
	sched := newManualScheduler()
	registry := newTestRegistry(clock, cells, sched)
	reporter := &recordingReporter{}
	return &coordinatorFixture{
		coordinator: NewMatchCoordinator(registry, reporter),
		registry:    registry,
		clock:       clock,
		sched:       sched,
		reporter:    reporter,
	}
}

func TestCoordinator_JoinRoomFlow(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(newScriptedCells(Cell{Row: 0, Col: 0}))

	naruto := NewParticipant("n1", "naruto@konoha.io")
	sasuke := NewParticipant("s1", "sasuke@konoha.io")
	sakura := NewParticipant("k1", "sakura@konoha.io")

	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "naruto"})
	assert.Equal(t, "naruto", naruto.name)
	assert.Equal(t, []string{EventPlayersUpdate}, eventNames(drainEvents(t, naruto)))

	// joining anywhere else while already in a room
	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "other", Name: "naruto"})
	assert.Equal(t, []string{EventAlreadyInRoom}, eventNames(drainEvents(t, naruto)))

	f.coordinator.Dispatch(sasuke, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "sasuke"})
	assert.Equal(t, []string{EventPlayersUpdate, EventGameStart}, eventNames(drainEvents(t, sasuke)))
	assert.Equal(t, []string{EventPlayersUpdate, EventGameStart}, eventNames(drainEvents(t, naruto)))

	// the room is full now
	f.coordinator.Dispatch(sakura, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "sakura"})
	assert.Equal(t, []string{EventRoomAlreadyFilled}, eventNames(drainEvents(t, sakura)))
	assert.Empty(t, drainEvents(t, naruto))
}

func TestCoordinator_BlankNameFallsBackToAccount(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(newScriptedCells(Cell{}))

	naruto := NewParticipant("n1", "naruto@konoha.io")
	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena"})
	assert.Equal(t, "naruto@konoha.io", naruto.name)
}

func TestCoordinator_RandomMatchFlow(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(newScriptedCells(Cell{Row: 3, Col: 3}))

	naruto := NewParticipant("n1", "naruto@konoha.io")
	sasuke := NewParticipant("s1", "sasuke@konoha.io")

	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentFindRandomMatch, Name: "naruto"})
	assert.Equal(t, []string{EventWaitingForMatch}, eventNames(drainEvents(t, naruto)))

	// asking again while queued stays silent
	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentFindRandomMatch, Name: "naruto"})
	assert.Empty(t, drainEvents(t, naruto))

	// and a queued participant cannot also join a named room
	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "naruto"})
	assert.Equal(t, []string{EventAlreadyInRoom}, eventNames(drainEvents(t, naruto)))

	f.coordinator.Dispatch(sasuke, IntentEnvelope{Intent: IntentFindRandomMatch, Name: "sasuke"})
	assert.Equal(t, []string{EventMatched, EventPlayersUpdate, EventPlayersUpdate, EventGameStart}, eventNames(drainEvents(t, naruto)))

	// both are members now: clicks route to the shared room
	f.sched.FireNext(t)
	drainEvents(t, naruto)
	drainEvents(t, sasuke)

	f.clock.Advance(120 * time.Millisecond)
	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentCellClicked, Row: 3, Col: 3})
	var reacted PlayerReactedEvent
	lastEventData(t, drainEvents(t, sasuke), EventPlayerReacted, &reacted)
	assert.Equal(t, "n1", reacted.PlayerId)
	assert.Equal(t, int64(120), reacted.ReactionTime)
}

func TestCoordinator_FinishedGameIsReported(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(newScriptedCells(Cell{Row: 1, Col: 1}))

	naruto := NewParticipant("n1", "naruto@konoha.io")
	sasuke := NewParticipant("s1", "sasuke@konoha.io")
	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "naruto"})
	f.coordinator.Dispatch(sasuke, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "sasuke"})

	for round := 1; round <= MaxRounds; round++ {
		f.sched.FireNext(t)
		f.clock.Advance(100 * time.Millisecond)
		f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentCellClicked, Row: 1, Col: 1})
		f.clock.Advance(50 * time.Millisecond)
		f.coordinator.Dispatch(sasuke, IntentEnvelope{Intent: IntentCellClicked, Row: 1, Col: 1})
	}

	results := f.reporter.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "n1", results[0].Winner)
	assert.Equal(t, 100*time.Millisecond, results[0].Averages["n1"])
	assert.Equal(t, 150*time.Millisecond, results[0].Averages["s1"])
	assert.Equal(t, "naruto@konoha.io", results[0].Players[0].LedgerKey)

	// the room lingers in Ended state until its occupants go away
	room, ok := f.registry.Room("arena")
	require.True(t, ok)
	assert.Equal(t, StateEnded, room.state)
}

func TestCoordinator_LeaveRoomIsSilent(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(newScriptedCells(Cell{Row: 0, Col: 0}))

	naruto := NewParticipant("n1", "naruto@konoha.io")
	sasuke := NewParticipant("s1", "sasuke@konoha.io")
	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "naruto"})
	f.coordinator.Dispatch(sasuke, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "sasuke"})
	drainEvents(t, naruto)
	drainEvents(t, sasuke)

	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentLeaveRoom})

	// no farewell events, no report, no room
	assert.Empty(t, drainEvents(t, naruto))
	assert.Empty(t, drainEvents(t, sasuke))
	assert.Empty(t, f.reporter.Results())
	_, ok := f.registry.Room("arena")
	assert.False(t, ok)

	// both are free to play again
	f.coordinator.Dispatch(sasuke, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "rematch", Name: "sasuke"})
	assert.Equal(t, []string{EventPlayersUpdate}, eventNames(drainEvents(t, sasuke)))

	// the pending round timer from the dead match does nothing
	f.sched.FireNext(t)
	assert.Empty(t, drainEvents(t, sasuke))
}

func TestCoordinator_DisconnectForfeitsRunningMatch(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(newScriptedCells(Cell{Row: 2, Col: 2}))

	naruto := NewParticipant("n1", "naruto@konoha.io")
	sasuke := NewParticipant("s1", "sasuke@konoha.io")
	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "naruto"})
	f.coordinator.Dispatch(sasuke, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "sasuke"})
	f.sched.FireNext(t)
	drainEvents(t, naruto)
	drainEvents(t, sasuke)

	f.coordinator.Disconnect(naruto)

	events := drainEvents(t, sasuke)
	assert.Equal(t, []string{EventPlayerLeft, EventGameOver}, eventNames(events))

	var over GameOverEvent
	lastEventData(t, events, EventGameOver, &over)
	assert.Equal(t, ReasonOpponentDisconnected, over.Reason)
	require.NotNil(t, over.Winner)
	assert.Equal(t, "s1", *over.Winner)

	results := f.reporter.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].Winner)

	_, ok := f.registry.Room("arena")
	assert.False(t, ok)

	// the winner is released and can queue up again
	f.coordinator.Dispatch(sasuke, IntentEnvelope{Intent: IntentFindRandomMatch, Name: "sasuke"})
	assert.Equal(t, []string{EventWaitingForMatch}, eventNames(drainEvents(t, sasuke)))
}

func TestCoordinator_DisconnectWhileQueued(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(newScriptedCells(Cell{}))

	naruto := NewParticipant("n1", "naruto@konoha.io")
	sasuke := NewParticipant("s1", "sasuke@konoha.io")

	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentFindRandomMatch, Name: "naruto"})
	f.coordinator.Disconnect(naruto)

	f.coordinator.Dispatch(sasuke, IntentEnvelope{Intent: IntentFindRandomMatch, Name: "sasuke"})
	assert.Equal(t, []string{EventWaitingForMatch}, eventNames(drainEvents(t, sasuke)))
}

func TestCoordinator_DisconnectFromWaitingRoom(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(newScriptedCells(Cell{}))

	naruto := NewParticipant("n1", "naruto@konoha.io")
	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "naruto"})
	f.coordinator.Disconnect(naruto)

	_, ok := f.registry.Room("arena")
	assert.False(t, ok)
	assert.Empty(t, f.reporter.Results())
}

func TestCoordinator_DisconnectAfterGameOver(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(newScriptedCells(Cell{Row: 1, Col: 1}))

	naruto := NewParticipant("n1", "naruto@konoha.io")
	sasuke := NewParticipant("s1", "sasuke@konoha.io")
	f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "naruto"})
	f.coordinator.Dispatch(sasuke, IntentEnvelope{Intent: IntentJoinRoom, RoomId: "arena", Name: "sasuke"})

	for round := 1; round <= MaxRounds; round++ {
		f.sched.FireNext(t)
		f.clock.Advance(100 * time.Millisecond)
		f.coordinator.Dispatch(naruto, IntentEnvelope{Intent: IntentCellClicked, Row: 1, Col: 1})
		f.coordinator.Dispatch(sasuke, IntentEnvelope{Intent: IntentCellClicked, Row: 1, Col: 1})
	}
	drainEvents(t, naruto)
	drainEvents(t, sasuke)
	require.Len(t, f.reporter.Results(), 1)

	// leaving a finished game is not a forfeit
	f.coordinator.Disconnect(naruto)
	events := drainEvents(t, sasuke)
	assert.Equal(t, []string{EventPlayerLeft}, eventNames(events))
	var left PlayerLeftEvent
	lastEventData(t, events, EventPlayerLeft, &left)
	assert.Equal(t, "n1", left.LeftId)
	assert.Empty(t, left.WinnerId)
	assert.Len(t, f.reporter.Results(), 1)

	// the room empties out with the last disconnect
	f.coordinator.Disconnect(sasuke)
	_, ok := f.registry.Room("arena")
	assert.False(t, ok)
}
