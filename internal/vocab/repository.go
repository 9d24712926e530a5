package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
)

var ErrWordNotFound = errors.New("word not found")

// Word is one vocabulary entry of the study set.
type Word struct {
	ID           int      `json:"id"`
	Word         string   `json:"word"`
	Definition   string   `json:"definition"`
	PartOfSpeech string   `json:"partOfSpeech"`
	Synonyms     []string `json:"synonyms"`
	Examples     []string `json:"examples"`
	Difficulty   string   `json:"difficulty"` // basic, intermediate, advanced
}

// Repository provides access to the vocabulary dataset. The dataset is
// loaded once from JSON and held in memory; content never changes within a
// session.
type Repository struct {
	words []Word
	byID  map[int]Word
}

// NewRepository loads the vocabulary dataset from path.
func NewRepository(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	var wrapper struct {
		Words []Word `json:"words"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vocabulary JSON: %w", err)
	}
	if len(wrapper.Words) == 0 {
		return nil, errors.New("vocabulary dataset is empty")
	}

	byID := make(map[int]Word, len(wrapper.Words))
	for _, w := range wrapper.Words {
		if _, dup := byID[w.ID]; dup {
			return nil, fmt.Errorf("duplicate word id %d", w.ID)
		}
		byID[w.ID] = w
	}

	return &Repository{words: wrapper.Words, byID: byID}, nil
}

// GetByID retrieves a word by its identifier.
func (r *Repository) GetByID(id int) (Word, error) {
	w, ok := r.byID[id]
	if !ok {
		return Word{}, ErrWordNotFound
	}
	return w, nil
}

// GetAll retrieves the full dataset.
func (r *Repository) GetAll() []Word {
	return r.words
}

// Count returns the dataset size.
func (r *Repository) Count() int {
	return len(r.words)
}

// GetRandom retrieves a random word.
func (r *Repository) GetRandom() Word {
	return r.words[rand.Intn(len(r.words))]
}

// ByDifficulty retrieves every word of the given difficulty.
func (r *Repository) ByDifficulty(difficulty string) []Word {
	var out []Word
	for _, w := range r.words {
		if w.Difficulty == difficulty {
			out = append(out, w)
		}
	}
	return out
}
