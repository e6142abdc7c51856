package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"telequiz/internal/domain"
)

func TestLeaderboardCacheServesFromRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingSource{entries: []domain.LeaderboardEntry{
		{UserID: "u1", Score: 5},
		{UserID: "u2", Score: 3},
	}}
	cache := NewLeaderboardCache(client, source, time.Minute)

	since := time.Now().Add(-30 * 24 * time.Hour)
	entries, err := cache.TopN(context.Background(), 3, since)
	if err != nil {
		t.Fatalf("topn: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != "u1" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if source.calls != 1 {
		t.Fatalf("expected one source call, got %d", source.calls)
	}
	if !mr.Exists("quiz:leaderboard:3") {
		t.Fatalf("expected cached key to be set")
	}

	if _, err := cache.TopN(context.Background(), 3, since); err != nil {
		t.Fatalf("topn 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.calls)
	}
}

func TestLeaderboardCacheExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingSource{}
	cache := NewLeaderboardCache(client, source, time.Second)

	since := time.Now().Add(-time.Hour)
	if _, err := cache.TopN(context.Background(), 3, since); err != nil {
		t.Fatalf("topn: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := cache.TopN(context.Background(), 3, since); err != nil {
		t.Fatalf("topn after expiry: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected recompute after expiry, source calls %d", source.calls)
	}
}

type countingSource struct {
	entries []domain.LeaderboardEntry
	calls   int
}

func (s *countingSource) TopN(_ context.Context, n int, _ time.Time) ([]domain.LeaderboardEntry, error) {
	s.calls++
	if len(s.entries) > n {
		return s.entries[:n], nil
	}
	return s.entries, nil
}
