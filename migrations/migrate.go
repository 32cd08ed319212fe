package migrations

import (
	"database/sql"
	"embed"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

//go:embed *.sql
var embedMigrations embed.FS

func Migrate(pgurl string) {
	migrationDB, err := sql.Open("pgx", pgurl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open DB for migrations")
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal().Err(err).Msg("failed to set goose dialect")
	}

	if err := goose.Up(migrationDB, "."); err != nil {
		log.Fatal().Err(err).Msg("failed to run up migrations")
	}

	if err := migrationDB.Close(); err != nil {
		log.Fatal().Err(err).Msg("failed to close migration db connection")
	}
	log.Info().Msg("migrations applied successfully")
}
