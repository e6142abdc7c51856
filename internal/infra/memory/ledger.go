package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"telequiz/internal/domain"
)

// Ledger is an in-memory implementation of app.Ledger. It backs unit tests
// and credential-less demo runs; production uses the postgres twin.
type Ledger struct {
	mu     sync.Mutex
	scores map[string]int
	events []domain.AnswerEvent
}

func NewLedger() *Ledger {
	return &Ledger{scores: make(map[string]int)}
}

func (l *Ledger) EnsureUser(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.scores[userID]; !ok {
		l.scores[userID] = 0
	}
	return nil
}

func (l *Ledger) Score(_ context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scores[userID], nil
}

// RecordAnswer appends the event and, when correct, increments the score.
// Both happen under one lock so concurrent submissions never lose an update.
func (l *Ledger) RecordAnswer(_ context.Context, event domain.AnswerEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	if event.Correct {
		l.scores[event.UserID]++
	}
	return nil
}

func (l *Ledger) TopN(_ context.Context, n int, since time.Time) ([]domain.LeaderboardEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[string]int)
	for _, e := range l.events {
		if e.Correct && !e.AnsweredAt.Before(since) {
			counts[e.UserID]++
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(counts))
	for userID, count := range counts {
		entries = append(entries, domain.LeaderboardEntry{UserID: userID, Score: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (l *Ledger) ListUsers(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	users := make([]string, 0, len(l.scores))
	for userID := range l.scores {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users, nil
}
