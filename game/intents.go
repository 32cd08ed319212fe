package game

// IntentEnvelope is the flat JSON frame the client sends over the game
// socket. Unused fields stay at their zero value for a given intent.
type IntentEnvelope struct {
	Intent string `json:"intent"`
	RoomId string `json:"roomId,omitempty"`
	Name   string `json:"name,omitempty"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

const (
	IntentJoinRoom        = "joinRoom"
	IntentFindRandomMatch = "findRandomMatch"
	IntentCellClicked     = "cellClicked"
	IntentLeaveRoom       = "leaveRoom"
)
