package game

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/domain"
)

// UserGetter resolves the authenticated user behind a connection.
type UserGetter interface {
	GetUserById(ctx context.Context, id string) (domain.User, error)
}

type GameHandler struct {
	coordinator *MatchCoordinator
	users       UserGetter
}

func NewGameHandler(coordinator *MatchCoordinator, users UserGetter) *GameHandler {
	return &GameHandler{coordinator: coordinator, users: users}
}

// ConnectHandler upgrades an authenticated request to a websocket and
// runs the participant's pumps. The write pump gets its own goroutine;
// the read pump occupies the handler until the connection dies.
func (h *GameHandler) ConnectHandler(ctx *gin.Context) {
	id := ctx.GetString("id")
	if id == "" {
		log.Error().
			Str("ip", ctx.ClientIP()).
			Str("userAgent", ctx.Request.UserAgent()).
			Msg("unexpected error, id not found. What is the middleware doing?")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unexpected-error"})
		return
	}

	user, err := h.users.GetUserById(ctx.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to load user for websocket session")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unexpected-error"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := NewWebsocketSession(conn)
	participant := NewParticipant(uuid.NewString(), user.Email)
	participant.sendEvent(EventConnected, ConnectedEvent{PlayerId: participant.ConnId()})

	go participant.WritePump(sess)
	participant.ReadPump(h.coordinator, sess)
}
