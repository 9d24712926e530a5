package vocab

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportResult summarizes one import run.
type ImportResult struct {
	TotalProcessed int
	Imported       int
	Errors         []string
}

// Expected sheet columns: id, word, definition, part of speech, synonyms
// (semicolon separated), examples (semicolon separated), difficulty.
const importColumns = 7

// ImportXLSX reads vocabulary entries from the first sheet of an Excel
// workbook. Rows that cannot be parsed are collected in the result rather
// than aborting the run; the first row is assumed to be a header.
func ImportXLSX(path string) ([]Word, *ImportResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	var words []Word
	seen := map[int]struct{}{}

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		result.TotalProcessed++

		word, err := parseRow(row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if _, dup := seen[word.ID]; dup {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: duplicate id %d", i+1, word.ID))
			continue
		}
		seen[word.ID] = struct{}{}
		words = append(words, word)
		result.Imported++
	}

	return words, result, nil
}

func parseRow(row []string) (Word, error) {
	if len(row) < 3 {
		return Word{}, fmt.Errorf("expected at least 3 columns, got %d", len(row))
	}

	// Pad so optional trailing columns can be absent.
	for len(row) < importColumns {
		row = append(row, "")
	}

	id, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return Word{}, fmt.Errorf("invalid id %q", row[0])
	}

	word := Word{
		ID:           id,
		Word:         strings.TrimSpace(row[1]),
		Definition:   strings.TrimSpace(row[2]),
		PartOfSpeech: strings.TrimSpace(row[3]),
		Synonyms:     splitList(row[4]),
		Examples:     splitList(row[5]),
		Difficulty:   strings.TrimSpace(row[6]),
	}
	if word.Word == "" {
		return Word{}, fmt.Errorf("empty word in row with id %d", id)
	}
	if word.Definition == "" {
		return Word{}, fmt.Errorf("empty definition for %q", word.Word)
	}
	return word, nil
}

func splitList(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SaveJSON writes the dataset to path in the format NewRepository reads.
func SaveJSON(path string, words []Word) error {
	wrapper := struct {
		Words []Word `json:"words"`
	}{Words: words}

	data, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("encode vocabulary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write vocabulary: %w", err)
	}
	return nil
}
