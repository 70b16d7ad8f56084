// Package state holds the in-memory view of the dashboard session: the
// selected job, the job history, and aggregate stats.
package state

import (
	"sync"

	"github.com/kiranshivaraju/copydesk/pkg/models"
)

// SelectedHook is called after every change to the selected job, outside the
// store lock. prev or next may be nil.
type SelectedHook func(prev, next *models.Job)

// Snapshot is a read-only copy of the store.
type Snapshot struct {
	Selected     *models.Job   `json:"selected"`
	History      []models.Job  `json:"history"`
	Stats        *models.Stats `json:"stats"`
	IsSubmitting bool          `json:"is_submitting"`
}

// Store is the only mutable shared state of a session. It performs no I/O.
//
// User intents (submit, select, delete) carry an intent number obtained from
// NextIntent when the request was issued. An intent is applied only if it is
// newer than the last applied intent, so an overtaken response never
// clobbers a newer one.
//
// Status polls are ordered separately. BeginPoll hands out a PollTicket bound
// to the current selection generation, which every applied intent advances.
// A poll response is applied only while that generation is unchanged and
// only if it is newer than the last applied poll, so a poll can refresh the
// selected job but never supersede an intent.
type Store struct {
	mu            sync.RWMutex
	intentSeq     uint64
	appliedIntent uint64
	generation    uint64
	pollSeq       uint64
	appliedPoll   uint64
	selected      *models.Job
	history       []models.Job
	stats         *models.Stats
	submitting    int

	hookMu sync.RWMutex
	hooks  []SelectedHook
}

// PollTicket orders a status poll response. It is issued by BeginPoll.
type PollTicket struct {
	Generation uint64
	Seq        uint64
}

// New creates an empty Store.
func New() *Store {
	return &Store{history: []models.Job{}}
}

// OnSelectedChanged registers a hook run after each selected-job mutation.
func (s *Store) OnSelectedChanged(hook SelectedHook) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// NextIntent returns a new intent number. Call it when the intent's request
// is issued.
func (s *Store) NextIntent() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intentSeq++
	return s.intentSeq
}

// BeginPoll returns the ticket for a status poll being issued now.
func (s *Store) BeginPoll() PollTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollSeq++
	return PollTicket{Generation: s.generation, Seq: s.pollSeq}
}

// Selected returns a copy of the selected job, or nil.
func (s *Store) Selected() *models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected.Clone()
}

// History returns a copy of the job history.
func (s *Store) History() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneJobs(s.history)
}

// Stats returns a copy of the aggregate stats, or nil if never fetched.
func (s *Store) Stats() *models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stats == nil {
		return nil
	}
	st := *s.stats
	return &st
}

// Snapshot returns a consistent copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Selected:     s.selected.Clone(),
		History:      cloneJobs(s.history),
		IsSubmitting: s.submitting > 0,
	}
	if s.stats != nil {
		st := *s.stats
		snap.Stats = &st
	}
	return snap
}

// SetSelected replaces the selected job regardless of which job was selected
// before. It returns false if a later-issued intent was already applied.
func (s *Store) SetSelected(job models.Job, intent uint64) bool {
	s.mu.Lock()
	if intent <= s.appliedIntent {
		s.mu.Unlock()
		return false
	}
	prev := s.selected
	s.selected = job.Clone()
	s.appliedIntent = intent
	s.generation++
	next := s.selected
	s.mu.Unlock()

	s.notify(prev.Clone(), next.Clone())
	return true
}

// UpdateSelected overwrites the selected job with a fresh copy of the same
// job from a status poll. It is a no-op if a different job (or none) is
// selected, if an intent was applied after the poll was issued, or if a
// later poll was already applied.
func (s *Store) UpdateSelected(job models.Job, t PollTicket) bool {
	s.mu.Lock()
	if t.Generation != s.generation || t.Seq <= s.appliedPoll ||
		s.selected == nil || s.selected.ID != job.ID {
		s.mu.Unlock()
		return false
	}
	prev := s.selected
	s.selected = job.Clone()
	s.appliedPoll = t.Seq
	next := s.selected
	s.mu.Unlock()

	s.notify(prev.Clone(), next.Clone())
	return true
}

// ClearSelected drops the selected job if its id is id. A deleted job never
// stays selected, so the id match alone decides; intent only retires
// intents issued before it.
func (s *Store) ClearSelected(id string, intent uint64) bool {
	s.mu.Lock()
	if s.selected == nil || s.selected.ID != id {
		s.mu.Unlock()
		return false
	}
	prev := s.selected
	s.selected = nil
	if intent > s.appliedIntent {
		s.appliedIntent = intent
	}
	s.generation++
	s.mu.Unlock()

	s.notify(prev.Clone(), nil)
	return true
}

func (s *Store) notify(prev, next *models.Job) {
	s.hookMu.RLock()
	hooks := append([]SelectedHook(nil), s.hooks...)
	s.hookMu.RUnlock()

	for _, h := range hooks {
		h(prev, next)
	}
}

// ReplaceHistory replaces the history wholesale.
func (s *Store) ReplaceHistory(jobs []models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = cloneJobs(jobs)
}

// ReplaceStats replaces the aggregate stats wholesale.
func (s *Store) ReplaceStats(stats models.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = &stats
}

// BeginSubmit marks a submission as in flight. The returned func ends it.
func (s *Store) BeginSubmit() (done func()) {
	s.mu.Lock()
	s.submitting++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.submitting--
			s.mu.Unlock()
		})
	}
}

func cloneJobs(jobs []models.Job) []models.Job {
	out := make([]models.Job, 0, len(jobs))
	for i := range jobs {
		out = append(out, *jobs[i].Clone())
	}
	return out
}
