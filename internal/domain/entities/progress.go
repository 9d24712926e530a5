package entities

import "time"

// MaxSessions is the number of session records retained per user.
// Insertion happens at the front, eviction from the back.
const MaxSessions = 30

// DateLayout is the calendar-day format used for streak bookkeeping.
const DateLayout = "2006-01-02"

// QuizScore accumulates quiz answers for a single word.
// Counts only ever grow, and Correct never exceeds Attempts.
type QuizScore struct {
	Correct  int `json:"correct"`
	Attempts int `json:"attempts"`
}

// SessionRecord describes one study session.
type SessionRecord struct {
	Date         time.Time `json:"date"`
	Duration     int       `json:"duration"` // seconds
	WordsStudied int       `json:"wordsStudied"`
	WordsLearned int       `json:"wordsLearned"`
	QuizzesTaken int       `json:"quizzesTaken"`
	QuizScore    float64   `json:"quizScore"` // percent correct during the session
}

// Stats is the cached summary derived from the rest of the aggregate.
type Stats struct {
	TotalTimeSpent    int    `json:"totalTimeSpent"` // seconds
	CurrentStreak     int    `json:"currentStreak"`
	LongestStreak     int    `json:"longestStreak"`
	LastStudyDate     string `json:"lastStudyDate"` // YYYY-MM-DD, empty means never studied
	TotalWordsLearned int    `json:"totalWordsLearned"`
	TotalQuizzesTaken int    `json:"totalQuizzesTaken"`
}

// Progress is the complete learning state for one user: the aggregate that
// the unified store reads, mutates and persists as a whole.
type Progress struct {
	Learned     []int             `json:"learned"`
	QuizScores  map[int]QuizScore `json:"quizScores"`
	Sessions    []SessionRecord   `json:"sessions"`
	Preferences Preferences       `json:"preferences"`
	Stats       Stats             `json:"stats"`
}

// NewProgress returns an empty aggregate with all defaults applied.
func NewProgress() *Progress {
	return &Progress{
		Learned:     []int{},
		QuizScores:  map[int]QuizScore{},
		Sessions:    []SessionRecord{},
		Preferences: DefaultPreferences(),
		Stats:       Stats{},
	}
}

// IsLearned reports whether the word is in the learned set.
func (p *Progress) IsLearned(wordID int) bool {
	for _, id := range p.Learned {
		if id == wordID {
			return true
		}
	}
	return false
}

// MarkLearned adds a word to the learned set. It returns false without
// modifying anything if the word is already learned.
func (p *Progress) MarkLearned(wordID int) bool {
	if p.IsLearned(wordID) {
		return false
	}
	p.Learned = append(p.Learned, wordID)
	p.Stats.TotalWordsLearned = len(p.Learned)
	return true
}

// UnmarkLearned removes a word from the learned set. It returns false if the
// word was not learned in the first place.
func (p *Progress) UnmarkLearned(wordID int) bool {
	for i, id := range p.Learned {
		if id == wordID {
			p.Learned = append(p.Learned[:i], p.Learned[i+1:]...)
			p.Stats.TotalWordsLearned = len(p.Learned)
			return true
		}
	}
	return false
}

// RecordQuizAnswer bumps the per-word quiz counters.
func (p *Progress) RecordQuizAnswer(wordID int, correct bool) {
	if p.QuizScores == nil {
		p.QuizScores = map[int]QuizScore{}
	}
	score := p.QuizScores[wordID]
	score.Attempts++
	if correct {
		score.Correct++
	}
	p.QuizScores[wordID] = score
}

// AddSession inserts a session record at the front of the history, evicting
// the oldest entry once the cap is reached, and folds the session into the
// cached totals.
func (p *Progress) AddSession(rec SessionRecord) {
	p.Sessions = append([]SessionRecord{rec}, p.Sessions...)
	if len(p.Sessions) > MaxSessions {
		p.Sessions = p.Sessions[:MaxSessions]
	}
	p.Stats.TotalTimeSpent += rec.Duration
	p.Stats.TotalQuizzesTaken += rec.QuizzesTaken
}

// UpdateStreak advances the day-based streak relative to now.
//
// The streak grows by one when the previous study day was exactly yesterday,
// resets to one after a longer gap, and stays untouched when today has
// already been counted. Returns true if any field changed.
func (p *Progress) UpdateStreak(now time.Time) bool {
	today := now.Format(DateLayout)
	if p.Stats.LastStudyDate == today {
		return false
	}

	yesterday := now.AddDate(0, 0, -1).Format(DateLayout)
	if p.Stats.LastStudyDate == yesterday {
		p.Stats.CurrentStreak++
	} else {
		p.Stats.CurrentStreak = 1
	}

	if p.Stats.CurrentStreak > p.Stats.LongestStreak {
		p.Stats.LongestStreak = p.Stats.CurrentStreak
	}
	p.Stats.LastStudyDate = today
	return true
}

// Clone returns a deep copy of the aggregate. The store hands out clones so
// callers cannot mutate the in-memory snapshot behind its back.
func (p *Progress) Clone() *Progress {
	out := &Progress{
		Learned:     make([]int, len(p.Learned)),
		QuizScores:  make(map[int]QuizScore, len(p.QuizScores)),
		Sessions:    make([]SessionRecord, len(p.Sessions)),
		Preferences: p.Preferences.Clone(),
		Stats:       p.Stats,
	}
	copy(out.Learned, p.Learned)
	copy(out.Sessions, p.Sessions)
	for id, score := range p.QuizScores {
		out.QuizScores[id] = score
	}
	return out
}

// Normalize repairs an aggregate decoded from an untrusted source so the
// documented invariants hold: learned ids are unique, quiz counters stay
// consistent, the session cap is enforced and the cached learned count
// matches the set.
func (p *Progress) Normalize() {
	seen := make(map[int]struct{}, len(p.Learned))
	learned := p.Learned[:0]
	for _, id := range p.Learned {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		learned = append(learned, id)
	}
	p.Learned = learned

	for id, score := range p.QuizScores {
		if score.Attempts < 0 {
			score.Attempts = 0
		}
		if score.Correct < 0 {
			score.Correct = 0
		}
		if score.Correct > score.Attempts {
			score.Correct = score.Attempts
		}
		p.QuizScores[id] = score
	}

	if len(p.Sessions) > MaxSessions {
		p.Sessions = p.Sessions[:MaxSessions]
	}

	p.Stats.TotalWordsLearned = len(p.Learned)
	if p.Stats.LongestStreak < p.Stats.CurrentStreak {
		p.Stats.LongestStreak = p.Stats.CurrentStreak
	}
}
