package app

import "fmt"

const msgWelcome = `Welcome! I will send you a few quiz questions every day.
Answer by tapping an option. /quiz gets you a fresh round any time,
/score shows your total and /top the last 30 days' leaderboard.`

const msgCorrect = `✅ Correct!`

const msgFailure = `Something went wrong, please try again.`

const msgEmptyLeaderboard = `Nobody has scored in the last 30 days yet. Be the first!`

func msgIncorrect(correctOption string) string {
	return fmt.Sprintf("❌ Incorrect. The right answer: %s", correctOption)
}

func msgScore(score int) string {
	return fmt.Sprintf("Your total score: %d", score)
}

func msgCongrats(rank, score int) string {
	return fmt.Sprintf("🏆 Congratulations! You are #%d this month with %d points!", rank, score)
}

func msgLeaderboardLine(rank int, userID string, score int) string {
	return fmt.Sprintf("%d. %s — %d", rank, userID, score)
}
