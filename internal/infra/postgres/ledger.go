package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telequiz/internal/domain"
)

// Ledger is the durable, postgres-backed implementation of app.Ledger.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) EnsureUser(ctx context.Context, userID string) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO users (user_id, score) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return storageErr("ensure user", err)
	}
	return nil
}

func (l *Ledger) Score(ctx context.Context, userID string) (int, error) {
	var score int
	err := l.pool.QueryRow(ctx,
		`SELECT score FROM users WHERE user_id = $1`, userID).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("read score", err)
	}
	return score, nil
}

// RecordAnswer appends the event and, for a correct answer, increments the
// user's score in the same transaction. The upsert increments in-database
// (score = users.score + 1), so concurrent submissions for one user
// serialize on the row instead of losing updates.
func (l *Ledger) RecordAnswer(ctx context.Context, event domain.AnswerEvent) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO answers (user_id, question_id, selected_option, correct, answered_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.UserID, event.QuestionID, event.Selected, event.Correct, event.AnsweredAt)
	if err != nil {
		return storageErr("append answer", err)
	}

	if event.Correct {
		_, err = tx.Exec(ctx,
			`INSERT INTO users (user_id, score) VALUES ($1, 1)
			 ON CONFLICT (user_id) DO UPDATE SET score = users.score + 1`,
			event.UserID)
		if err != nil {
			return storageErr("increment score", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

func (l *Ledger) TopN(ctx context.Context, n int, since time.Time) ([]domain.LeaderboardEntry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT user_id, COUNT(*) AS correct_count
		 FROM answers
		 WHERE correct AND answered_at >= $1
		 GROUP BY user_id
		 ORDER BY correct_count DESC, user_id ASC
		 LIMIT $2`,
		since, n)
	if err != nil {
		return nil, storageErr("leaderboard query", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Score); err != nil {
			return nil, storageErr("leaderboard scan", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("leaderboard rows", err)
	}
	return entries, nil
}

func (l *Ledger) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, storageErr("list users scan", err)
		}
		users = append(users, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list users rows", err)
	}
	return users, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStorageUnavailable, op, err)
}
