package domain

import "time"

// Question is a multiple-choice quiz item. Immutable after catalog load.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"` // zero-based index into Options
}

// CorrectOption returns the text of the correct option.
func (q Question) CorrectOption() string {
	return q.Options[q.Answer]
}

// User is a quiz participant with a cumulative score.
type User struct {
	ID    string
	Score int
}

// AnswerEvent is one answer submission. Append-only; never updated.
type AnswerEvent struct {
	UserID     string
	QuestionID string
	Selected   int
	Correct    bool
	AnsweredAt time.Time
}

// LeaderboardEntry is one row of a windowed leaderboard. Score counts correct
// answers inside the window, not the cumulative user score.
type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Score  int    `json:"score"`
}

// ChoiceOption is one selectable button of an outbound quiz message.
type ChoiceOption struct {
	Label   string
	Payload string
}

// QuizMessage is one outbound question: prompt plus one button per option.
type QuizMessage struct {
	Text    string
	Options []ChoiceOption
}
