// Package stats derives read-only views from a progress aggregate. All
// functions are pure: they are recomputed from the live aggregate on every
// call and never cache or mutate anything.
package stats

import (
	"fmt"
	"time"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

// PercentLearned returns the share of the vocabulary learned, in percent.
func PercentLearned(p *entities.Progress, totalWords int) float64 {
	if totalWords <= 0 {
		return 0
	}
	return float64(len(p.Learned)) / float64(totalWords) * 100
}

// WeeklyWordsLearned sums the words learned across sessions in the seven
// days leading up to now.
func WeeklyWordsLearned(p *entities.Progress, now time.Time) int {
	cutoff := now.AddDate(0, 0, -7)
	total := 0
	for _, rec := range p.Sessions {
		if rec.Date.After(cutoff) {
			total += rec.WordsLearned
		}
	}
	return total
}

// AverageQuizScore returns the overall percentage of correct quiz answers
// across every word, or zero when no answer was ever recorded.
func AverageQuizScore(p *entities.Progress) float64 {
	var correct, attempts int
	for _, score := range p.QuizScores {
		correct += score.Correct
		attempts += score.Attempts
	}
	if attempts == 0 {
		return 0
	}
	return float64(correct) / float64(attempts) * 100
}

// TotalStudyTime returns the accumulated study time.
func TotalStudyTime(p *entities.Progress) time.Duration {
	return time.Duration(p.Stats.TotalTimeSpent) * time.Second
}

// StreakText renders the current streak for display.
func StreakText(p *entities.Progress) string {
	switch p.Stats.CurrentStreak {
	case 0:
		return "no streak yet"
	case 1:
		return "1-day streak"
	default:
		return fmt.Sprintf("%d-day streak", p.Stats.CurrentStreak)
	}
}
