package game

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Outbound event names. These are the wire contract with the browser
// client and must not be renamed casually.
const (
	EventConnected         = "connected"
	EventPlayersUpdate     = "playersUpdate"
	EventGameStart         = "gameStart"
	EventNewLitCell        = "newLitCell"
	EventPlayerReacted     = "playerReacted"
	EventGameOver          = "gameOver"
	EventPlayerLeft        = "playerLeft"
	EventWaitingForMatch   = "waitingForMatch"
	EventMatched           = "matched"
	EventRoomAlreadyFilled = "roomAlreadyFilled"
	EventAlreadyInRoom     = "alreadyInRoom"
)

// ReasonOpponentDisconnected tags a gameOver caused by forced termination.
const ReasonOpponentDisconnected = "opponentDisconnected"

type EventEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type ConnectedEvent struct {
	PlayerId string `json:"playerId"`
}

type PlayersUpdateEvent struct {
	Players []string `json:"players"`
}

type NewLitCellEvent struct {
	LitCell Cell `json:"litCell"`
	Round   int  `json:"round"`
}

type PlayerReactedEvent struct {
	PlayerId     string `json:"playerId"`
	Username     string `json:"username"`
	ReactionTime int64  `json:"reactionTime"`
}

type PlayerInfo struct {
	Id       string `json:"id"`
	Username string `json:"username"`
}

type GameOverEvent struct {
	ReactionTimes map[string][]int64  `json:"reactionTimes"`
	Averages      map[string]*float64 `json:"averages"`
	Winner        *string             `json:"winner"`
	Loser         *string             `json:"loser"`
	Reason        string              `json:"reason,omitempty"`
	Players       []PlayerInfo        `json:"players"`
}

type PlayerLeftEvent struct {
	LeftId   string `json:"leftId"`
	WinnerId string `json:"winnerId,omitempty"`
}

type MatchedEvent struct {
	RoomId  string   `json:"roomId"`
	Players []string `json:"players"`
}

func encodeEvent(event string, data any) ([]byte, bool) {
	frame, err := json.Marshal(EventEnvelope{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return nil, false
	}
	return frame, true
}
