package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestDailyAtBeforeAndAfter(t *testing.T) {
	loc := time.UTC
	next := DailyAt(9, 0, loc)

	morning := time.Date(2024, 3, 10, 8, 0, 0, 0, loc)
	if got := next(morning); !got.Equal(time.Date(2024, 3, 10, 9, 0, 0, 0, loc)) {
		t.Fatalf("expected same-day fire, got %v", got)
	}

	evening := time.Date(2024, 3, 10, 21, 0, 0, 0, loc)
	if got := next(evening); !got.Equal(time.Date(2024, 3, 11, 9, 0, 0, 0, loc)) {
		t.Fatalf("expected next-day fire, got %v", got)
	}

	exactly := time.Date(2024, 3, 10, 9, 0, 0, 0, loc)
	if got := next(exactly); !got.After(exactly) {
		t.Fatalf("fire time must be strictly after now, got %v", got)
	}
}

func TestMonthlyAtRollsOver(t *testing.T) {
	loc := time.UTC
	next := MonthlyAt(1, 0, 0, loc)

	midMonth := time.Date(2024, 1, 15, 12, 0, 0, 0, loc)
	if got := next(midMonth); !got.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, loc)) {
		t.Fatalf("expected feb 1, got %v", got)
	}

	// December rolls into January of the next year.
	december := time.Date(2024, 12, 15, 12, 0, 0, 0, loc)
	if got := next(december); !got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, loc)) {
		t.Fatalf("expected jan 1 next year, got %v", got)
	}
}

func TestRunFiresAndStops(t *testing.T) {
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	fired := make(chan struct{}, 1)
	s.Add(Job{
		Name: "tick",
		Next: func(now time.Time) time.Time { return now.Add(10 * time.Millisecond) },
		Run: func(ctx context.Context) error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job never fired")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}
