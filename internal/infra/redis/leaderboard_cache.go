package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"telequiz/internal/domain"
)

// LeaderboardSource computes windowed leaderboards from the backing store.
type LeaderboardSource interface {
	TopN(ctx context.Context, n int, since time.Time) ([]domain.LeaderboardEntry, error)
}

// LeaderboardCache keeps recent TopN results in Redis so the on-demand /top
// command does not hit the answers table on every press. Entries are stored
// as a JSON blob per requested size: SET quiz:leaderboard:{n} [...] EX ttl.
// The rolling window start moves continuously, so a short TTL bounds
// staleness instead of keying on the window itself.
type LeaderboardCache struct {
	client *redis.Client
	source LeaderboardSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, source LeaderboardSource, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) TopN(ctx context.Context, n int, since time.Time) ([]domain.LeaderboardEntry, error) {
	key := c.key(n)

	if entries, ok := c.get(ctx, key); ok {
		return entries, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if entries, ok := c.get(ctx, key); ok {
			return entries, nil
		}

		entries, err := c.source.TopN(ctx, n, since)
		if err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(entries); err == nil {
			// best-effort: a failed cache write never fails the read
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

func (c *LeaderboardCache) get(ctx context.Context, key string) ([]domain.LeaderboardEntry, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) key(n int) string {
	return "quiz:leaderboard:" + strconv.Itoa(n)
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
