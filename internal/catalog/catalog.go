package catalog

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"telequiz/internal/domain"
)

// Delimiter separates the question ID from the option index in callback
// payloads. Question IDs must not contain it.
const Delimiter = ":"

// Catalog is the immutable set of quiz questions loaded at startup.
type Catalog struct {
	questions []domain.Question
	byID      map[string]domain.Question

	mu  sync.Mutex
	rnd *rand.Rand
}

// Load reads and validates a JSON catalog file. Any malformed entry is a
// fatal startup error, so the process never runs with a partial catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(questions)
}

// New builds a catalog from already-parsed questions, validating each entry.
func New(questions []domain.Question) (*Catalog, error) {
	byID := make(map[string]domain.Question, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d: empty id", i)
		}
		if strings.Contains(q.ID, Delimiter) {
			return nil, fmt.Errorf("question %q: id contains reserved delimiter %q", q.ID, Delimiter)
		}
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("question %q: duplicate id", q.ID)
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("question %q: needs at least two options", q.ID)
		}
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return nil, fmt.Errorf("question %q: answer index %d out of range", q.ID, q.Answer)
		}
		byID[q.ID] = q
	}

	return &Catalog{
		questions: questions,
		byID:      byID,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Len reports the number of questions in the catalog.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// Lookup returns the question with the given ID.
func (c *Catalog) Lookup(id string) (domain.Question, error) {
	q, ok := c.byID[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

// Sample returns n distinct questions chosen uniformly without replacement.
func (c *Catalog) Sample(n int) ([]domain.Question, error) {
	if len(c.questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	if n > len(c.questions) {
		return nil, fmt.Errorf("%w: want %d, have %d", domain.ErrInsufficientCatalog, n, len(c.questions))
	}

	c.mu.Lock()
	picks := c.rnd.Perm(len(c.questions))[:n]
	c.mu.Unlock()

	sampled := make([]domain.Question, 0, n)
	for _, i := range picks {
		sampled = append(sampled, c.questions[i])
	}
	return sampled, nil
}
