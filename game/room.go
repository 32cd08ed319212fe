package game

import (
	"sync"
	"time"
)

// Fixed game parameters. These mirror the browser client and are not
// runtime configuration.
const (
	GridSize  = 5
	MaxRounds = 5

	preStartDelay   = time.Second
	interRoundDelay = time.Second
)

type RoomState int

const (
	StateWaiting RoomState = iota // 0 or 1 participants, match not started
	StateRunning                  // 2 participants, rounds in progress
	StateEnded                    // terminal, never reused
)

type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// GameRoom is the state machine for one two-player match. Every read or
// mutation must happen with locker held; the exported coordinator entry
// points take care of that. Events are emitted while the lock is held so
// participants observe them in mutation order.
type GameRoom struct {
	id     string
	locker sync.Mutex

	state        RoomState
	round        int
	litCell      *Cell
	litAt        time.Time
	participants []*Participant
	reactions    map[string][]time.Duration

	// generation is bumped on every terminal transition; a deferred round
	// start from an older generation must be inert.
	generation uint64

	now      func() time.Time
	cells    CellPicker
	schedule Scheduler
}

// GameResult is the outcome of an Ended room, handed to the score
// reporter outside the room lock. Averages holds only participants whose
// average is present; Winner/Loser are empty when there is none (draw).
type GameResult struct {
	RoomId   string
	Players  []PlayerRef
	Times    map[string][]time.Duration
	Averages map[string]time.Duration
	Winner   string
	Loser    string
	Reason   string
}

type PlayerRef struct {
	Id        string
	Username  string
	LedgerKey string
}

func newGameRoom(id string, deps roomDeps) *GameRoom {
	return &GameRoom{
		id:        id,
		state:     StateWaiting,
		reactions: make(map[string][]time.Duration),
		now:       deps.now,
		cells:     deps.cells,
		schedule:  deps.schedule,
	}
}

func (r *GameRoom) Id() string { return r.id }

// names returns the display names in join order. Lock held.
func (r *GameRoom) names() []string {
	names := make([]string, 0, len(r.participants))
	for _, p := range r.participants {
		names = append(names, p.name)
	}
	return names
}

func (r *GameRoom) member(connId string) *Participant {
	for _, p := range r.participants {
		if p.connId == connId {
			return p
		}
	}
	return nil
}

func (r *GameRoom) emit(event string, data any) {
	frame, ok := encodeEvent(event, data)
	if !ok {
		return
	}
	for _, p := range r.participants {
		p.send(frame)
	}
}

// join appends a participant and starts the match once the roster is
// full. Lock held.
func (r *GameRoom) join(p *Participant) error {
	if r.member(p.connId) != nil {
		return ErrAlreadyJoined
	}
	if len(r.participants) >= 2 || r.state != StateWaiting {
		return ErrRoomFull
	}

	r.participants = append(r.participants, p)
	r.reactions[p.connId] = nil
	r.emit(EventPlayersUpdate, PlayersUpdateEvent{Players: r.names()})

	if len(r.participants) == 2 {
		r.begin()
	}
	return nil
}

// begin transitions Waiting -> Running and schedules the first round.
// Lock held, roster must be full.
func (r *GameRoom) begin() {
	r.state = StateRunning
	r.emit(EventGameStart, struct{}{})
	r.scheduleRound(preStartDelay)
}

// scheduleRound defers the next startRound. The callback re-checks state
// and generation under the lock: a disconnect or game end during the
// delay window turns it into a no-op.
func (r *GameRoom) scheduleRound(delay time.Duration) {
	gen := r.generation
	r.schedule.After(delay, func() {
		r.locker.Lock()
		defer r.locker.Unlock()
		if r.state != StateRunning || r.generation != gen {
			return
		}
		r.startRound()
	})
}

// startRound lights a fresh random cell and advances the round counter
// (1 for the first call). Lock held, state must be Running.
func (r *GameRoom) startRound() {
	cell := r.cells.Pick(GridSize)
	r.litCell = &cell
	r.litAt = r.now()
	r.round++
	r.emit(EventNewLitCell, NewLitCellEvent{LitCell: cell, Round: r.round})
}

// registerReaction records a participant's click on the lit cell. Each
// participant claims the cell at most once per round; a duplicate click,
// a wrong cell, a cleared cell or a non-Running room are all silent
// no-ops, absorbing the race between reaction delivery and round
// advance. Returns a result when the reaction finished the match.
func (r *GameRoom) registerReaction(connId string, row, col int) *GameResult {
	if r.state != StateRunning || r.litCell == nil {
		return nil
	}
	if row != r.litCell.Row || col != r.litCell.Col {
		return nil
	}
	p := r.member(connId)
	if p == nil {
		return nil
	}
	if len(r.reactions[connId]) >= r.round {
		// already claimed this round's cell
		return nil
	}

	elapsed := r.now().Sub(r.litAt)
	r.reactions[connId] = append(r.reactions[connId], elapsed)
	r.emit(EventPlayerReacted, PlayerReactedEvent{
		PlayerId:     p.connId,
		Username:     p.name,
		ReactionTime: elapsed.Milliseconds(),
	})

	if !r.allReacted() {
		return nil
	}

	r.litCell = nil
	if r.round >= MaxRounds {
		result := r.finish("")
		r.emitGameOver(result)
		return result
	}

	r.scheduleRound(interRoundDelay)
	return nil
}

// allReacted reports whether every current participant has claimed the
// current round's cell. Lock held.
func (r *GameRoom) allReacted() bool {
	for _, p := range r.participants {
		if len(r.reactions[p.connId]) < r.round {
			return false
		}
	}
	return true
}

// removeParticipant drops a participant from the roster and returns the
// remaining occupant, if any. Lock held. The caller decides what the
// removal means (forfeit, silent leave, post-game exit).
func (r *GameRoom) removeParticipant(connId string) (remaining *Participant, removed bool) {
	for i, p := range r.participants {
		if p.connId == connId {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return nil, false
	}
	if len(r.participants) == 1 {
		remaining = r.participants[0]
	}
	return remaining, true
}

// forceTerminate ends a Running match because one of its two
// participants disconnected. The departed participant must already be
// off the roster; their recorded reactions are discarded and the
// remaining participant wins unconditionally. Lock held.
func (r *GameRoom) forceTerminate(departed, remaining *Participant) *GameResult {
	delete(r.reactions, departed.connId)

	r.emit(EventPlayerLeft, PlayerLeftEvent{
		LeftId:   departed.connId,
		WinnerId: remaining.connId,
	})

	result := r.finish(ReasonOpponentDisconnected)
	result.Winner = remaining.connId
	result.Loser = departed.connId
	r.emitGameOver(result)
	return result
}

// finish performs the terminal transition and computes averages and the
// winner. Lock held. A forced termination overrides Winner/Loser after
// this returns.
func (r *GameRoom) finish(reason string) *GameResult {
	r.state = StateEnded
	r.generation++
	r.litCell = nil

	result := &GameResult{
		RoomId:   r.id,
		Times:    make(map[string][]time.Duration, len(r.reactions)),
		Averages: make(map[string]time.Duration),
		Reason:   reason,
	}
	for _, p := range r.participants {
		result.Players = append(result.Players, PlayerRef{Id: p.connId, Username: p.name, LedgerKey: p.ledgerKey})
	}
	for connId, times := range r.reactions {
		result.Times[connId] = times
		if len(times) == MaxRounds {
			var sum time.Duration
			for _, t := range times {
				sum += t
			}
			result.Averages[connId] = sum / MaxRounds
		}
	}

	if reason == "" && len(r.participants) == 2 {
		a, b := r.participants[0], r.participants[1]
		avgA, okA := result.Averages[a.connId]
		avgB, okB := result.Averages[b.connId]
		switch {
		case okA && okB && avgA < avgB:
			result.Winner, result.Loser = a.connId, b.connId
		case okA && okB && avgB < avgA:
			result.Winner, result.Loser = b.connId, a.connId
		default:
			// equal averages: a draw, no winner and no loser
		}
	}

	return result
}

// emitGameOver publishes the terminal event to whoever is still in the
// room. Lock held.
func (r *GameRoom) emitGameOver(result *GameResult) {
	data := GameOverEvent{
		ReactionTimes: make(map[string][]int64, len(result.Times)),
		Averages:      make(map[string]*float64, len(r.participants)),
		Reason:        result.Reason,
	}
	for connId, times := range result.Times {
		ms := make([]int64, 0, len(times))
		for _, t := range times {
			ms = append(ms, t.Milliseconds())
		}
		data.ReactionTimes[connId] = ms
	}
	for _, p := range r.participants {
		data.Players = append(data.Players, PlayerInfo{Id: p.connId, Username: p.name})
		if avg, ok := result.Averages[p.connId]; ok {
			v := float64(avg) / float64(time.Millisecond)
			data.Averages[p.connId] = &v
		} else {
			data.Averages[p.connId] = nil
		}
	}
	if result.Winner != "" {
		data.Winner = &result.Winner
	}
	if result.Loser != "" {
		data.Loser = &result.Loser
	}

	r.emit(EventGameOver, data)
}
