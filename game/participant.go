package game

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const outboxSize = 256

// Reaction clicks arrive in bursts, so the reader tolerates a short burst
// well above the sustained rate before it starts discarding frames.
const (
	readRate  = 20
	readBurst = 40
)

const pingInterval = 30 * time.Second

// Participant is one connected player, alive while its socket is. It may
// occupy at most one room or one matchmaking queue slot at a time.
type Participant struct {
	connId    string
	name      string
	ledgerKey string // account email, used for best-score submission

	outbox    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewParticipant(connId, ledgerKey string) *Participant {
	return &Participant{
		connId:    connId,
		ledgerKey: ledgerKey,
		outbox:    make(chan []byte, outboxSize),
		done:      make(chan struct{}),
	}
}

func (p *Participant) ConnId() string { return p.connId }

// send never blocks: a participant that cannot drain its outbox loses
// frames instead of stalling the room that is emitting to it.
func (p *Participant) send(frame []byte) {
	select {
	case p.outbox <- frame:
	default:
		log.Warn().Err(ErrSendBufferFull).Str("conn", p.connId).Msg("dropping outbound frame")
	}
}

func (p *Participant) sendEvent(event string, data any) {
	if frame, ok := encodeEvent(event, data); ok {
		p.send(frame)
	}
}

func (p *Participant) close() {
	p.closeOnce.Do(func() { close(p.done) })
}

// ReadPump owns the inbound side of the socket: it decodes intent frames
// and hands them to the coordinator until the connection dies, then
// reports the disconnect exactly once.
func (p *Participant) ReadPump(coordinator *MatchCoordinator, sess NetworkSession) {
	limiter := rate.NewLimiter(rate.Limit(readRate), readBurst)

	for {
		data, err := sess.Read()
		if err != nil {
			break
		}
		if !limiter.Allow() {
			continue
		}

		var intent IntentEnvelope
		if err := json.Unmarshal(data, &intent); err != nil {
			log.Debug().Str("conn", p.connId).Msg("dropping malformed intent frame")
			continue
		}

		coordinator.Dispatch(p, intent)
	}

	coordinator.Disconnect(p)
	p.close()
	sess.Close("")
}

// WritePump drains the outbox and keeps the connection alive with pings.
func (p *Participant) WritePump(sess NetworkSession) {
	pings := time.NewTicker(pingInterval)
	defer pings.Stop()

	for {
		select {
		case frame := <-p.outbox:
			if err := sess.Write(frame); err != nil {
				return
			}
		case <-pings.C:
			if err := sess.Ping(); err != nil {
				return
			}
		case <-p.done:
			return
		}
	}
}
