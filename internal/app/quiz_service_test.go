package app_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"telequiz/internal/app"
	"telequiz/internal/catalog"
	"telequiz/internal/domain"
	"telequiz/internal/infra/memory"
)

func TestStartRegistersAndIssuesQuiz(t *testing.T) {
	ctx := context.Background()
	svc, ledger, sender := newTestService(t, 1)

	if err := svc.Start(ctx, "42"); err != nil {
		t.Fatalf("start: %v", err)
	}

	users, _ := ledger.ListUsers(ctx)
	if len(users) != 1 || users[0] != "42" {
		t.Fatalf("expected user 42 registered, got %v", users)
	}
	if len(sender.texts["42"]) != 1 {
		t.Fatalf("expected one welcome text, got %v", sender.texts["42"])
	}
	if len(sender.choices["42"]) != 1 {
		t.Fatalf("expected one quiz question, got %d", len(sender.choices["42"]))
	}
}

func TestIssueQuizEncodesPayloads(t *testing.T) {
	ctx := context.Background()
	svc, _, sender := newTestService(t, 2)

	if err := svc.IssueQuiz(ctx, "42"); err != nil {
		t.Fatalf("issue quiz: %v", err)
	}

	msgs := sender.choices["42"]
	if len(msgs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(msgs))
	}
	for _, msg := range msgs {
		for i, opt := range msg.Options {
			questionID, option, err := app.DecodeAnswer(opt.Payload)
			if err != nil {
				t.Fatalf("button payload %q not decodable: %v", opt.Payload, err)
			}
			if option != i {
				t.Fatalf("payload %q: expected option %d, got %d", opt.Payload, i, option)
			}
			if questionID == "" {
				t.Fatalf("payload %q carries no question id", opt.Payload)
			}
		}
	}
}

func TestHandleAnswerScenario(t *testing.T) {
	// Catalog of one question: q1, options A/B, A correct. User 42 answers
	// correctly, then answers the same question wrong.
	ctx := context.Background()
	cat, err := catalog.New([]domain.Question{
		{ID: "q1", Prompt: "Pick one", Options: []string{"A", "B"}, Answer: 0},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	ledger := memory.NewLedger()
	sender := newFakeSender()
	svc := app.NewQuizService(ledger, nil, cat, sender, 1, discardLog())

	if err := svc.HandleAnswer(ctx, "42", app.EncodeAnswer("q1", 0)); err != nil {
		t.Fatalf("correct answer: %v", err)
	}
	if got := sender.lastText("42"); got != "✅ Correct!" {
		t.Fatalf("expected correct ack, got %q", got)
	}
	if score, _ := ledger.Score(ctx, "42"); score != 1 {
		t.Fatalf("expected score 1, got %d", score)
	}

	if err := svc.HandleAnswer(ctx, "42", app.EncodeAnswer("q1", 1)); err != nil {
		t.Fatalf("incorrect answer: %v", err)
	}
	if got := sender.lastText("42"); !strings.Contains(got, "A") {
		t.Fatalf("incorrect ack must reveal the right option, got %q", got)
	}
	if score, _ := ledger.Score(ctx, "42"); score != 1 {
		t.Fatalf("score must stay 1 after wrong answer, got %d", score)
	}
}

func TestHandleAnswerMalformedPayload(t *testing.T) {
	ctx := context.Background()
	svc, _, sender := newTestService(t, 1)

	err := svc.HandleAnswer(ctx, "42", "not-a-payload")
	if !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if got := sender.lastText("42"); got == "" {
		t.Fatal("expected a failure ack for the user")
	}
}

func TestHandleAnswerStaleQuestion(t *testing.T) {
	ctx := context.Background()
	svc, ledger, sender := newTestService(t, 1)

	err := svc.HandleAnswer(ctx, "42", app.EncodeAnswer("gone", 0))
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	if got := sender.lastText("42"); got == "" {
		t.Fatal("expected a failure ack for the user")
	}
	if score, _ := ledger.Score(ctx, "42"); score != 0 {
		t.Fatalf("stale press must not score, got %d", score)
	}
}

func TestDailyBroadcastIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	svc, ledger, sender := newTestService(t, 1)
	_ = ledger.EnsureUser(ctx, "u1")
	_ = ledger.EnsureUser(ctx, "u2")
	sender.failChoice("u1", fmt.Errorf("blocked by user"))

	sent, failed, err := svc.DailyBroadcast(ctx)
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if sent != 1 || failed != 1 {
		t.Fatalf("expected 1 sent / 1 failed, got %d / %d", sent, failed)
	}
	if len(sender.choices["u2"]) != 1 {
		t.Fatalf("u2 must still receive its quiz, got %d messages", len(sender.choices["u2"]))
	}
}

func TestMonthlyLeaderboardCongratulatesTopThree(t *testing.T) {
	ctx := context.Background()
	svc, ledger, sender := newTestService(t, 1)

	now := time.Now()
	for user, wins := range map[string]int{"u1": 3, "u2": 2, "u3": 1, "u4": 1} {
		for i := 0; i < wins; i++ {
			_ = ledger.RecordAnswer(ctx, domain.AnswerEvent{
				UserID: user, QuestionID: "q1", Correct: true, AnsweredAt: now,
			})
		}
	}

	if err := svc.MonthlyLeaderboard(ctx); err != nil {
		t.Fatalf("monthly leaderboard: %v", err)
	}

	for _, user := range []string{"u1", "u2", "u3"} {
		if len(sender.texts[user]) != 1 {
			t.Fatalf("expected congratulation for %s, got %v", user, sender.texts[user])
		}
	}
	if len(sender.texts["u4"]) != 0 {
		t.Fatalf("u4 is not in the top 3, got %v", sender.texts["u4"])
	}
	if !strings.Contains(sender.lastText("u1"), "#1") {
		t.Fatalf("expected rank in message, got %q", sender.lastText("u1"))
	}
}

func TestMonthlyLeaderboardToleratesDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	svc, ledger, sender := newTestService(t, 1)
	now := time.Now()
	_ = ledger.RecordAnswer(ctx, domain.AnswerEvent{UserID: "u1", QuestionID: "q1", Correct: true, AnsweredAt: now})
	_ = ledger.RecordAnswer(ctx, domain.AnswerEvent{UserID: "u2", QuestionID: "q1", Correct: true, AnsweredAt: now})
	sender.failText("u1", fmt.Errorf("blocked by user"))

	if err := svc.MonthlyLeaderboard(ctx); err != nil {
		t.Fatalf("monthly leaderboard: %v", err)
	}
	if len(sender.texts["u2"]) != 1 {
		t.Fatalf("u2 must still be congratulated, got %v", sender.texts["u2"])
	}
}

func TestUserScoreAndTopScores(t *testing.T) {
	ctx := context.Background()
	svc, ledger, sender := newTestService(t, 1)

	if err := svc.TopScores(ctx, "42"); err != nil {
		t.Fatalf("empty top: %v", err)
	}
	if got := sender.lastText("42"); !strings.Contains(got, "first") {
		t.Fatalf("expected empty-leaderboard message, got %q", got)
	}

	_ = ledger.RecordAnswer(ctx, domain.AnswerEvent{UserID: "42", QuestionID: "q1", Correct: true, AnsweredAt: time.Now()})

	if err := svc.UserScore(ctx, "42"); err != nil {
		t.Fatalf("score: %v", err)
	}
	if got := sender.lastText("42"); !strings.Contains(got, "1") {
		t.Fatalf("expected score 1 in message, got %q", got)
	}

	if err := svc.TopScores(ctx, "42"); err != nil {
		t.Fatalf("top: %v", err)
	}
	if got := sender.lastText("42"); !strings.Contains(got, "42") {
		t.Fatalf("expected leaderboard line for 42, got %q", got)
	}
}

func newTestService(t *testing.T, quizSize int) (*app.QuizService, *memory.Ledger, *fakeSender) {
	t.Helper()
	cat, err := catalog.New([]domain.Question{
		{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4"}, Answer: 1},
		{ID: "q2", Prompt: "Capital of France?", Options: []string{"Paris", "Rome"}, Answer: 0},
		{ID: "q3", Prompt: "Largest planet?", Options: []string{"Mars", "Jupiter"}, Answer: 1},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	ledger := memory.NewLedger()
	sender := newFakeSender()
	svc := app.NewQuizService(ledger, nil, cat, sender, quizSize, discardLog())
	return svc, ledger, sender
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSender records outbound messages per user; broadcasts hit it from
// multiple goroutines.
type fakeSender struct {
	mu         sync.Mutex
	texts      map[string][]string
	choices    map[string][]domain.QuizMessage
	textErrs   map[string]error
	choiceErrs map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		texts:      make(map[string][]string),
		choices:    make(map[string][]domain.QuizMessage),
		textErrs:   make(map[string]error),
		choiceErrs: make(map[string]error),
	}
}

func (f *fakeSender) SendText(_ context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.textErrs[userID]; err != nil {
		return err
	}
	f.texts[userID] = append(f.texts[userID], text)
	return nil
}

func (f *fakeSender) SendChoice(_ context.Context, userID string, msg domain.QuizMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.choiceErrs[userID]; err != nil {
		return err
	}
	f.choices[userID] = append(f.choices[userID], msg)
	return nil
}

func (f *fakeSender) failText(userID string, err error)   { f.textErrs[userID] = err }
func (f *fakeSender) failChoice(userID string, err error) { f.choiceErrs[userID] = err }

func (f *fakeSender) lastText(userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.texts[userID]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}
