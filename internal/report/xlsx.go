// Package report renders a user's learning state into a spreadsheet, the
// shareable counterpart of the JSON export artifact.
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
	"github.com/vocadrill/vocadrill/internal/stats"
)

// WriteXLSX writes an overview, session history and per-word quiz scores to
// an Excel workbook at path.
func WriteXLSX(path string, user entities.User, p *entities.Progress, totalWords int) error {
	f := excelize.NewFile()
	defer f.Close()

	overview := "Overview"
	if err := f.SetSheetName("Sheet1", overview); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{
		{"User", user.Name},
		{"Words learned", p.Stats.TotalWordsLearned},
		{"Percent learned", fmt.Sprintf("%.1f%%", stats.PercentLearned(p, totalWords))},
		{"Average quiz score", fmt.Sprintf("%.1f%%", stats.AverageQuizScore(p))},
		{"Quizzes taken", p.Stats.TotalQuizzesTaken},
		{"Total study time", stats.TotalStudyTime(p).Round(time.Minute).String()},
		{"Current streak", p.Stats.CurrentStreak},
		{"Longest streak", p.Stats.LongestStreak},
		{"Last study date", p.Stats.LastStudyDate},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(overview, cell, &row); err != nil {
			return fmt.Errorf("write overview row %d: %w", i+1, err)
		}
	}

	sessions := "Sessions"
	if _, err := f.NewSheet(sessions); err != nil {
		return fmt.Errorf("create sessions sheet: %w", err)
	}
	header := []any{"Date", "Duration (s)", "Words studied", "Words learned", "Quizzes", "Quiz score"}
	if err := f.SetSheetRow(sessions, "A1", &header); err != nil {
		return fmt.Errorf("write sessions header: %w", err)
	}
	for i, rec := range p.Sessions {
		row := []any{
			rec.Date.Format("2006-01-02 15:04"),
			rec.Duration,
			rec.WordsStudied,
			rec.WordsLearned,
			rec.QuizzesTaken,
			rec.QuizScore,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sessions, cell, &row); err != nil {
			return fmt.Errorf("write session row %d: %w", i+2, err)
		}
	}

	scores := "Quiz Scores"
	if _, err := f.NewSheet(scores); err != nil {
		return fmt.Errorf("create scores sheet: %w", err)
	}
	scoreHeader := []any{"Word ID", "Correct", "Attempts"}
	if err := f.SetSheetRow(scores, "A1", &scoreHeader); err != nil {
		return fmt.Errorf("write scores header: %w", err)
	}
	rowIdx := 2
	for wordID, score := range p.QuizScores {
		row := []any{wordID, score.Correct, score.Attempts}
		cell := fmt.Sprintf("A%d", rowIdx)
		if err := f.SetSheetRow(scores, cell, &row); err != nil {
			return fmt.Errorf("write score row %d: %w", rowIdx, err)
		}
		rowIdx++
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}
