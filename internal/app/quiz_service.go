package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"telequiz/internal/catalog"
	"telequiz/internal/domain"
)

// Ledger is the durable store of users, scores and answer history. It is the
// only component allowed to mutate them.
type Ledger interface {
	EnsureUser(ctx context.Context, userID string) error
	Score(ctx context.Context, userID string) (int, error)
	RecordAnswer(ctx context.Context, event domain.AnswerEvent) error
	TopN(ctx context.Context, n int, since time.Time) ([]domain.LeaderboardEntry, error)
	ListUsers(ctx context.Context) ([]string, error)
}

// LeaderboardSource serves windowed leaderboard reads. The ledger satisfies
// it directly; a cache may sit in front for the on-demand /top command.
type LeaderboardSource interface {
	TopN(ctx context.Context, n int, since time.Time) ([]domain.LeaderboardEntry, error)
}

// Sender is the outbound half of the transport boundary.
type Sender interface {
	SendText(ctx context.Context, userID, text string) error
	SendChoice(ctx context.Context, userID string, msg domain.QuizMessage) error
}

const (
	// leaderboardWindow is the rolling window for ranked correct answers.
	leaderboardWindow = 30 * 24 * time.Hour
	// topSize is how many winners the monthly announcement congratulates.
	topSize = 3

	broadcastWorkers = 8
	deliveryTimeout  = 10 * time.Second
)

// QuizService maps inbound user events and scheduled triggers to ledger
// reads/writes and outbound messages.
type QuizService struct {
	ledger      Ledger
	leaderboard LeaderboardSource
	catalog     *catalog.Catalog
	sender      Sender
	quizSize    int
	log         *slog.Logger
	now         func() time.Time
}

func NewQuizService(ledger Ledger, leaderboard LeaderboardSource, cat *catalog.Catalog, sender Sender, quizSize int, log *slog.Logger) *QuizService {
	if leaderboard == nil {
		leaderboard = ledger
	}
	return &QuizService{
		ledger:      ledger,
		leaderboard: leaderboard,
		catalog:     cat,
		sender:      sender,
		quizSize:    quizSize,
		log:         log,
		now:         time.Now,
	}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(ledger Ledger, leaderboard LeaderboardSource, cat *catalog.Catalog, sender Sender, quizSize int, log *slog.Logger, now func() time.Time) *QuizService {
	s := NewQuizService(ledger, leaderboard, cat, sender, quizSize, log)
	s.now = now
	return s
}

// Start registers the user and immediately issues a first quiz.
func (s *QuizService) Start(ctx context.Context, userID string) error {
	if err := s.ledger.EnsureUser(ctx, userID); err != nil {
		return fmt.Errorf("ensure user %s: %w", userID, err)
	}
	if err := s.sender.SendText(ctx, userID, msgWelcome); err != nil {
		return fmt.Errorf("welcome %s: %w", userID, err)
	}
	return s.IssueQuiz(ctx, userID)
}

// IssueQuiz samples a fresh set of questions and sends one choice message per
// question, each option carrying an encoded answer payload.
func (s *QuizService) IssueQuiz(ctx context.Context, userID string) error {
	questions, err := s.catalog.Sample(s.quizSize)
	if err != nil {
		return fmt.Errorf("sample quiz: %w", err)
	}

	for _, q := range questions {
		msg := domain.QuizMessage{Text: q.Prompt}
		for i, option := range q.Options {
			msg.Options = append(msg.Options, domain.ChoiceOption{
				Label:   option,
				Payload: EncodeAnswer(q.ID, i),
			})
		}
		if err := s.sender.SendChoice(ctx, userID, msg); err != nil {
			return fmt.Errorf("send question %s to %s: %w", q.ID, userID, err)
		}
	}
	return nil
}

// HandleAnswer scores one button press. Malformed payloads and stale buttons
// referencing questions no longer in the catalog get a generic failure ack;
// neither terminates the event loop.
func (s *QuizService) HandleAnswer(ctx context.Context, userID, payload string) error {
	questionID, selected, err := DecodeAnswer(payload)
	if err != nil {
		s.failAck(ctx, userID)
		return err
	}

	question, err := s.catalog.Lookup(questionID)
	if err != nil {
		s.failAck(ctx, userID)
		return fmt.Errorf("answer for %s: %w", questionID, err)
	}

	correct := selected == question.Answer
	event := domain.AnswerEvent{
		UserID:     userID,
		QuestionID: questionID,
		Selected:   selected,
		Correct:    correct,
		AnsweredAt: s.now(),
	}
	if err := s.ledger.RecordAnswer(ctx, event); err != nil {
		s.failAck(ctx, userID)
		return fmt.Errorf("record answer: %w", err)
	}

	ack := msgCorrect
	if !correct {
		ack = msgIncorrect(question.CorrectOption())
	}
	return s.sender.SendText(ctx, userID, ack)
}

// UserScore replies with the cumulative score. Unknown users read as zero.
func (s *QuizService) UserScore(ctx context.Context, userID string) error {
	score, err := s.ledger.Score(ctx, userID)
	if err != nil {
		s.failAck(ctx, userID)
		return fmt.Errorf("score %s: %w", userID, err)
	}
	return s.sender.SendText(ctx, userID, msgScore(score))
}

// TopScores replies with the rolling 30-day leaderboard.
func (s *QuizService) TopScores(ctx context.Context, userID string) error {
	entries, err := s.leaderboard.TopN(ctx, topSize, s.now().Add(-leaderboardWindow))
	if err != nil {
		s.failAck(ctx, userID)
		return fmt.Errorf("leaderboard: %w", err)
	}
	if len(entries) == 0 {
		return s.sender.SendText(ctx, userID, msgEmptyLeaderboard)
	}

	lines := make([]string, 0, len(entries))
	for i, e := range entries {
		lines = append(lines, msgLeaderboardLine(i+1, e.UserID, e.Score))
	}
	return s.sender.SendText(ctx, userID, strings.Join(lines, "\n"))
}

// DailyBroadcast issues a quiz to every known user through a bounded worker
// pool. A delivery failure for one user never aborts the rest of the batch.
func (s *QuizService) DailyBroadcast(ctx context.Context) (sent, failed int, err error) {
	users, err := s.ledger.ListUsers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list users: %w", err)
	}

	var okCount, failCount atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastWorkers)
	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			userCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
			defer cancel()
			if err := s.IssueQuiz(userCtx, userID); err != nil {
				failCount.Add(1)
				s.log.Warn("daily quiz delivery failed", "user", userID, "err", err)
				return nil
			}
			okCount.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	sent, failed = int(okCount.Load()), int(failCount.Load())
	s.log.Info("daily broadcast done", "sent", sent, "failed", failed)
	return sent, failed, nil
}

// MonthlyLeaderboard congratulates the top users of the rolling window, each
// delivery fault-isolated like the daily broadcast.
func (s *QuizService) MonthlyLeaderboard(ctx context.Context) error {
	entries, err := s.ledger.TopN(ctx, topSize, s.now().Add(-leaderboardWindow))
	if err != nil {
		return fmt.Errorf("monthly leaderboard: %w", err)
	}

	for i, e := range entries {
		userCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		err := s.sender.SendText(userCtx, e.UserID, msgCongrats(i+1, e.Score))
		cancel()
		if err != nil {
			s.log.Warn("congratulation delivery failed", "user", e.UserID, "err", err)
		}
	}
	return nil
}

// failAck tells the user something went wrong without leaking details.
func (s *QuizService) failAck(ctx context.Context, userID string) {
	if err := s.sender.SendText(ctx, userID, msgFailure); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("failure ack not delivered", "user", userID, "err", err)
	}
}
