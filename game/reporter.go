package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const reportTimeout = 5 * time.Second

// ScoreLedger persists finished-match averages. TryInsertScore reports
// whether the average actually entered the ledger.
type ScoreLedger interface {
	TryInsertScore(ctx context.Context, email string, average time.Duration) (inserted bool, err error)
}

// ScoreReporter pushes match results to the ledger off the gameplay
// path. Failures are logged and swallowed: a lost score never affects a
// running or finishing game.
type ScoreReporter struct {
	ledger  ScoreLedger
	timeout time.Duration
}

func NewScoreReporter(ledger ScoreLedger) *ScoreReporter {
	return &ScoreReporter{ledger: ledger, timeout: reportTimeout}
}

func (sr *ScoreReporter) Report(result *GameResult) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sr.timeout)
		defer cancel()
		sr.report(ctx, result)
	}()
}

func (sr *ScoreReporter) report(ctx context.Context, result *GameResult) {
	for _, player := range result.Players {
		average, ok := result.Averages[player.Id]
		if !ok {
			continue
		}
		inserted, err := sr.ledger.TryInsertScore(ctx, player.LedgerKey, average)
		if err != nil {
			log.Error().
				Err(err).
				Str("roomId", result.RoomId).
				Str("email", player.LedgerKey).
				Msg("failed to record score")
			continue
		}
		if inserted {
			log.Info().
				Str("email", player.LedgerKey).
				Dur("average", average).
				Msg("score entered leaderboard")
		}
	}
}
