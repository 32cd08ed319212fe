package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/domain"
)

// leaderboardSize caps the best_scores table. Only the ten fastest
// averages ever recorded are kept.
const leaderboardSize = 10

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pgr *PostgresRepo) Close() {
	pgr.pool.Close()
}

func (pgr *PostgresRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	user := domain.User{Email: email}

	row := pgr.pool.QueryRow(ctx, "SELECT id, password_hash FROM users WHERE email = $1", email)

	err := row.Scan(&user.Id, &user.PasswordHash)

	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return user, domain.ErrUserNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.User{}, err
		default:
			return domain.User{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	return user, nil
}

func (pgr *PostgresRepo) GetUserById(ctx context.Context, id string) (domain.User, error) {
	user := domain.User{Id: id}

	row := pgr.pool.QueryRow(ctx, "SELECT email, password_hash FROM users WHERE id = $1", id)

	err := row.Scan(&user.Email, &user.PasswordHash)

	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.User{}, domain.ErrUserNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.User{}, err
		default:
			return domain.User{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	return user, nil
}

func (pgr *PostgresRepo) CreateUser(ctx context.Context, email string, passwordHash string) (string, error) {
	row := pgr.pool.QueryRow(ctx, "INSERT INTO users(email, password_hash) VALUES($1, $2) RETURNING id", email, passwordHash)

	var id string
	err := row.Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// "23505" is the PostgreSQL error code for unique_violation
			if pgErr.Code == "23505" {
				return "", domain.ErrDuplicateEmail
			}
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		return "", fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return id, nil
}

// TryInsertScore records a finished match's average reaction time when
// it is good enough for the top-ten leaderboard. The whole check runs in
// one transaction so two matches finishing together cannot both squeeze
// past a full board.
func (pgr *PostgresRepo) TryInsertScore(ctx context.Context, email string, average time.Duration) (bool, error) {
	averageMs := float64(average) / float64(time.Millisecond)

	tx, err := pgr.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	defer tx.Rollback(ctx)

	var worstMs float64
	err = tx.QueryRow(ctx,
		"SELECT average_ms FROM best_scores ORDER BY average_ms, id OFFSET $1 LIMIT 1",
		leaderboardSize-1,
	).Scan(&worstMs)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// board not full yet, everything qualifies
	case err != nil:
		return false, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	case averageMs >= worstMs:
		return false, nil
	}

	_, err = tx.Exec(ctx, "INSERT INTO best_scores(email, average_ms) VALUES($1, $2)", email, averageMs)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	_, err = tx.Exec(ctx,
		"DELETE FROM best_scores WHERE id IN (SELECT id FROM best_scores ORDER BY average_ms, id OFFSET $1)",
		leaderboardSize,
	)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return true, nil
}

// TopScores returns the leaderboard, fastest first. Ties break on
// insertion order.
func (pgr *PostgresRepo) TopScores(ctx context.Context, limit int) ([]domain.BestScore, error) {
	rows, err := pgr.pool.Query(ctx,
		"SELECT id, email, average_ms FROM best_scores ORDER BY average_ms, id LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	defer rows.Close()

	scores := make([]domain.BestScore, 0, limit)
	for rows.Next() {
		var score domain.BestScore
		if err := rows.Scan(&score.Id, &score.Email, &score.AverageMs); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return scores, nil
}

func (pgr *PostgresRepo) SaveUserDetails(ctx context.Context, details domain.UserDetails) error {
	_, err := pgr.pool.Exec(ctx,
		`INSERT INTO user_details(email, display_name, age) VALUES($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET display_name = EXCLUDED.display_name, age = EXCLUDED.age`,
		details.Email, details.DisplayName, details.Age)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return nil
}

func (pgr *PostgresRepo) GetUserDetailsByEmail(ctx context.Context, email string) (domain.UserDetails, error) {
	details := domain.UserDetails{Email: email}

	row := pgr.pool.QueryRow(ctx, "SELECT display_name, age FROM user_details WHERE email = $1", email)

	err := row.Scan(&details.DisplayName, &details.Age)

	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.UserDetails{}, domain.ErrDetailsNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.UserDetails{}, err
		default:
			return domain.UserDetails{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	return details, nil
}
