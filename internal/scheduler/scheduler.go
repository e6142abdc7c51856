// Package scheduler runs recurring jobs at wall-clock times in a configured
// time zone. Each job computes its own next fire time, so daylight-saving
// shifts are absorbed by recomputing after every run.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Job is one recurring task. Next returns the first fire time strictly after
// the given instant.
type Job struct {
	Name string
	Next func(now time.Time) time.Time
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	jobs []Job
	log  *slog.Logger
	now  func() time.Time
}

func New(log *slog.Logger) *Scheduler {
	return &Scheduler{log: log, now: time.Now}
}

func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Run blocks until ctx is canceled, firing each job on its own timer. Job
// errors are logged, never propagated; periodic jobs get another chance on
// the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	for _, job := range s.jobs {
		go s.runJob(ctx, job)
	}
	<-ctx.Done()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	for {
		next := job.Next(s.now())
		s.log.Info("job scheduled", "job", job.Name, "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := job.Run(ctx); err != nil {
			s.log.Error("job failed", "job", job.Name, "err", err)
		}
	}
}

// DailyAt returns a Next function firing every day at hour:minute in loc.
func DailyAt(hour, minute int, loc *time.Location) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		t := now.In(loc)
		next := time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, loc)
		if !next.After(t) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// MonthlyAt returns a Next function firing on the given day of every month
// at hour:minute in loc. Day must be 1..28 so every month has it.
func MonthlyAt(day, hour, minute int, loc *time.Location) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		t := now.In(loc)
		next := time.Date(t.Year(), t.Month(), day, hour, minute, 0, 0, loc)
		if !next.After(t) {
			next = time.Date(t.Year(), t.Month()+1, day, hour, minute, 0, 0, loc)
		}
		return next
	}
}
