package ProgressSync

import (
	"errors"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a toggle is committed. Rapid
// repeated toggles on the same task/day within this window collapse into a
// single network call.
const DefaultDebounce = 100 * time.Millisecond

// ErrClosed is returned by Toggle after the store has been shut down.
var ErrClosed = errors.New("progress store is closed")

// Committer sends one toggle to the backend. The wire call carries toggle
// semantics: the server flips whatever state it currently holds, it is not a
// "set to value" call.
type Committer interface {
	ToggleTask(taskID string, date string) (*CompletionRecord, error)
}

// StoreConfig configures a Store.
type StoreConfig struct {
	Committer Committer
	// OwnerID stamps locally synthesized records with the viewing patient.
	OwnerID string
	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration
	// OnFailure is invoked after a rollback so the caller can surface a
	// user-visible notification. May be nil.
	OnFailure func(taskID string, day time.Time, err error)
}

// Store holds the completion records for one checklist view. All access goes
// through the store so isolated instances can be built in tests; nothing lives
// in package scope.
type Store struct {
	mu        sync.Mutex
	records   map[CompletionKey]*CompletionRecord
	pending   map[CompletionKey]bool
	timers    map[CompletionKey]*time.Timer
	committer Committer
	ownerID   string
	debounce  time.Duration
	onFailure func(taskID string, day time.Time, err error)
	closed    bool
}

// NewStore creates an empty store. Seed it with Load before first use.
func NewStore(config StoreConfig) *Store {
	debounce := config.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Store{
		records:   make(map[CompletionKey]*CompletionRecord),
		pending:   make(map[CompletionKey]bool),
		timers:    make(map[CompletionKey]*time.Timer),
		committer: config.Committer,
		ownerID:   config.OwnerID,
		debounce:  debounce,
		onFailure: config.OnFailure,
	}
}

// Load replaces the record set with a freshly fetched list. Records are read
// fresh on every page load and never cached across navigations.
func (s *Store) Load(records []*CompletionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = BuildIndex(records)
}

// Record returns the record for a task/day, if any.
func (s *Store) Record(taskID string, date time.Time) (*CompletionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[KeyFor(taskID, date)]
	return record, ok
}

// IsCompleted reports the current (possibly optimistic) completion state for a
// task/day. A missing record reads as "not completed".
func (s *Store) IsCompleted(taskID string, date time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[KeyFor(taskID, date)]
	return ok && record.IsCompleted
}

// IsPending reports whether a commit for the task/day is queued or in flight,
// so the UI can disable the control while the round trip is outstanding.
func (s *Store) IsPending(taskID string, date time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[KeyFor(taskID, date)]
}

// Toggle flips the completion state for a task on a date (date-only string).
// The flip is applied synchronously and always succeeds locally; the network
// commit is scheduled behind the debounce window.
func (s *Store) Toggle(taskID string, date string) error {
	day, err := ParseWireDate(date)
	if err != nil {
		return err
	}
	key := KeyFor(taskID, day)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if record, ok := s.records[key]; ok {
		record.IsCompleted = !record.IsCompleted
		record.IsOptimistic = true
	} else {
		// First toggle of an untracked task always means "completed".
		s.records[key] = NewOptimisticRecord(taskID, day, true, s.ownerID)
	}
	s.pending[key] = true
	s.scheduleCommit(key, taskID, day)
	return nil
}

// Close cancels every scheduled-but-unfired commit so no dangling request
// fires against stale state after the view is torn down.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
		delete(s.pending, key)
	}
}

// scheduleCommit cancels any previously scheduled commit for the key and arms
// a fresh timer. Caller must hold s.mu.
func (s *Store) scheduleCommit(key CompletionKey, taskID string, day time.Time) {
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
	}
	s.timers[key] = time.AfterFunc(s.debounce, func() {
		s.commit(key, taskID, day)
	})
}

// commit performs the network round trip for one key and reconciles the
// outcome. The pending flag is cleared in a deferred step so the UI can never
// get stuck on a perpetual spinner, whatever branch is taken.
func (s *Store) commit(key CompletionKey, taskID string, day time.Time) {
	defer s.clearPending(key)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.mu.Unlock()

	authoritative, err := s.committer.ToggleTask(taskID, day.Format(WireDateLayout))
	if err != nil {
		s.rollback(key, taskID, day, err)
		return
	}
	s.applyServer(key, authoritative)
}

// applyServer merges the server's authoritative record into local state.
// The merge is keyed, not request-based: a stale response arriving after a
// newer toggle is still reconciled against whatever the store holds now.
func (s *Store) applyServer(key CompletionKey, authoritative *CompletionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	authoritative.Date = DayOf(authoritative.Date)
	authoritative.IsOptimistic = false

	if existing, ok := s.records[key]; ok {
		if existing.IsCompleted == authoritative.IsCompleted && !existing.IsOptimistic {
			// Outcome matches a confirmed record: keep the existing
			// reference so observers see no redundant update.
			return
		}
	}
	s.records[key] = authoritative
}

// rollback reverts the key to its pre-toggle truth after a failed commit.
func (s *Store) rollback(key CompletionKey, taskID string, day time.Time, cause error) {
	s.mu.Lock()
	if record, ok := s.records[key]; ok && record.IsOptimistic {
		if record.HasServerIdentity() {
			record.IsCompleted = !record.IsCompleted
			record.IsOptimistic = false
		} else {
			// The record never existed server-side. Drop it entirely
			// rather than leaving a false negative behind.
			delete(s.records, key)
		}
	}
	onFailure := s.onFailure
	s.mu.Unlock()

	if onFailure != nil {
		onFailure(taskID, day, cause)
	}
}

func (s *Store) clearPending(key CompletionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
}
