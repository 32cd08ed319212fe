package scores

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/domain"
)

const leaderboardLimit = 10

type ScoreRepo interface {
	TopScores(ctx context.Context, limit int) ([]domain.BestScore, error)
}

type ScoresHandler struct {
	scoreRepo ScoreRepo
}

func NewScoresHandler(scoreRepo ScoreRepo) *ScoresHandler {
	return &ScoresHandler{scoreRepo: scoreRepo}
}

// TopScoresHandler serves the public leaderboard, fastest average first.
func (sh *ScoresHandler) TopScoresHandler(ctx *gin.Context) {
	scores, err := sh.scoreRepo.TopScores(ctx.Request.Context(), leaderboardLimit)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			ctx.String(http.StatusGatewayTimeout, "server-timeout")
		case errors.Is(err, context.Canceled):
			ctx.Status(499)
		default:
			log.Error().Err(err).Str("ip", ctx.ClientIP()).Msg("TopScores: failed to load leaderboard")
			ctx.String(http.StatusInternalServerError, "unknown-error")
		}
		ctx.Abort()
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"scores": scores})
}
