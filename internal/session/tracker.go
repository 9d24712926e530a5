package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

// DefaultMinDuration is the shortest stretch of study time worth recording.
const DefaultMinDuration = 10 * time.Second

// ProgressStore is what the tracker needs from the unified store. The
// tracker holds no persistent state of its own; sessions and streaks live
// in the aggregate.
type ProgressStore interface {
	AddSession(ctx context.Context, rec entities.SessionRecord) error
	UpdateStreak(ctx context.Context) error
}

// Tracker accumulates study time and activity counters between flushes and
// turns them into session records. Flushes happen on a fixed interval while
// running, and once more on Stop, so a crash loses at most one interval of
// study time.
type Tracker struct {
	store ProgressStore
	log   *zap.Logger
	now   func() time.Time
	sched *gocron.Scheduler

	minDuration time.Duration

	mu           sync.Mutex
	start        time.Time
	wordsStudied int
	wordsLearned int
	quizCorrect  int
	quizAttempts int
}

// Option tweaks tracker construction.
type Option func(*Tracker)

// WithClock overrides the wall clock, used in tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithMinDuration overrides the minimum meaningful session length.
func WithMinDuration(d time.Duration) Option {
	return func(t *Tracker) { t.minDuration = d }
}

// New creates a tracker bound to the given store. The session clock starts
// on Start, not on construction.
func New(store ProgressStore, log *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:       store,
		log:         log,
		now:         time.Now,
		minDuration: DefaultMinDuration,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins the session clock and schedules periodic flushes.
func (t *Tracker) Start(interval time.Duration) {
	t.startClock()

	t.sched = gocron.NewScheduler(time.UTC)
	_, err := t.sched.Every(interval).Do(func() {
		if err := t.Flush(context.Background()); err != nil {
			t.log.Warn("session flush failed", zap.Error(err))
		}
	})
	if err != nil {
		t.log.Warn("schedule session flush", zap.Error(err))
		return
	}
	t.sched.StartAsync()
}

func (t *Tracker) startClock() {
	t.mu.Lock()
	t.start = t.now()
	t.mu.Unlock()
}

// Stop flushes one final time and halts the scheduler.
func (t *Tracker) Stop(ctx context.Context) error {
	if t.sched != nil {
		t.sched.Stop()
	}
	return t.Flush(ctx)
}

// NoteStudied records that n words were shown this session.
func (t *Tracker) NoteStudied(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.wordsStudied += n
}

// NoteLearned records that n words were newly learned this session.
func (t *Tracker) NoteLearned(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.wordsLearned += n
}

// NoteQuizAnswer records one quiz answer given this session.
func (t *Tracker) NoteQuizAnswer(correct bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quizAttempts++
	if correct {
		t.quizCorrect++
	}
}

// Flush turns the accumulated interval into a session record and advances
// the streak. Intervals shorter than the minimum are left running so a
// sequence of early flushes cannot discard study time; a successful flush
// resets the session clock so overlapping flushes never double-count.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	now := t.now()
	duration := now.Sub(t.start)
	if duration < t.minDuration {
		t.mu.Unlock()
		return nil
	}

	rec := entities.SessionRecord{
		Date:         now,
		Duration:     int(duration.Seconds()),
		WordsStudied: t.wordsStudied,
		WordsLearned: t.wordsLearned,
	}
	if t.quizAttempts > 0 {
		rec.QuizzesTaken = 1
		rec.QuizScore = float64(t.quizCorrect) / float64(t.quizAttempts) * 100
	}

	t.start = now
	t.wordsStudied = 0
	t.wordsLearned = 0
	t.quizCorrect = 0
	t.quizAttempts = 0
	t.mu.Unlock()

	// The store applies both changes to its in-memory snapshot even when
	// every persistence tier is degraded, so study time recorded here is
	// never silently dropped within a live session.
	if err := t.store.AddSession(ctx, rec); err != nil {
		return err
	}
	return t.store.UpdateStreak(ctx)
}
