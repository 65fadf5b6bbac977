package ProgressSync

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 10 * time.Millisecond

type toggleCall struct {
	taskID string
	date   string
}

// fakeCommitter records outbound toggles and answers with a canned response.
type fakeCommitter struct {
	mu      sync.Mutex
	calls   []toggleCall
	respond func(taskID, date string) (*CompletionRecord, error)
}

func (f *fakeCommitter) ToggleTask(taskID string, date string) (*CompletionRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, toggleCall{taskID: taskID, date: date})
	f.mu.Unlock()
	if f.respond == nil {
		return &CompletionRecord{ID: "srv-1", TaskID: taskID, Date: mustParseDay(date), IsCompleted: true}, nil
	}
	return f.respond(taskID, date)
}

func (f *fakeCommitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCommitter) lastCall() toggleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func mustParseDay(date string) time.Time {
	day, err := ParseWireDate(date)
	if err != nil {
		panic(err)
	}
	return day
}

// waitSettled blocks until the pending flag for the key clears.
func waitSettled(t *testing.T, store *Store, taskID string, day time.Time) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !store.IsPending(taskID, day) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("commit for task %s never settled", taskID)
}

func TestToggleOptimisticFlip(t *testing.T) {
	committer := &fakeCommitter{}
	store := NewStore(StoreConfig{Committer: committer, OwnerID: "p1", Debounce: time.Hour})
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Toggle("T1", "2024-06-10"))
	record, ok := store.Record("T1", day)
	require.True(t, ok)
	assert.True(t, record.IsCompleted)
	assert.True(t, record.IsOptimistic)
	assert.False(t, record.HasServerIdentity())
	assert.Equal(t, "p1", record.OwnerID)
	assert.True(t, store.IsPending("T1", day))

	// Toggling again before the server answers flips back.
	require.NoError(t, store.Toggle("T1", "2024-06-10"))
	assert.False(t, store.IsCompleted("T1", day))

	// Never committed: the debounce window is effectively infinite here.
	assert.Equal(t, 0, committer.callCount())
	store.Close()
}

func TestToggleMalformedDate(t *testing.T) {
	store := NewStore(StoreConfig{Committer: &fakeCommitter{}})
	assert.Error(t, store.Toggle("T1", "junk"))
	store.Close()
}

func TestDebounceCoalescesRapidToggles(t *testing.T) {
	committer := &fakeCommitter{}
	store := NewStore(StoreConfig{Committer: committer, Debounce: testDebounce})
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Toggle("T1", "2024-06-10"))
	}
	waitSettled(t, store, "T1", day)

	assert.Equal(t, 1, committer.callCount())
	assert.Equal(t, toggleCall{taskID: "T1", date: "2024-06-10"}, committer.lastCall())

	// Three flips from unset land on completed; the server's single toggle
	// agrees, so the reconciled record is confirmed completed.
	record, ok := store.Record("T1", day)
	require.True(t, ok)
	assert.True(t, record.IsCompleted)
	assert.False(t, record.IsOptimistic)
	store.Close()
}

func TestSeparateKeysCommitIndependently(t *testing.T) {
	committer := &fakeCommitter{}
	store := NewStore(StoreConfig{Committer: committer, Debounce: testDebounce})
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Toggle("T1", "2024-06-10"))
	require.NoError(t, store.Toggle("T2", "2024-06-10"))
	require.NoError(t, store.Toggle("T1", "2024-06-11"))

	waitSettled(t, store, "T1", day)
	waitSettled(t, store, "T2", day)
	waitSettled(t, store, "T1", day.AddDate(0, 0, 1))

	assert.Equal(t, 3, committer.callCount())
	store.Close()
}

func TestReconcileAdoptsServerIdentity(t *testing.T) {
	committer := &fakeCommitter{}
	store := NewStore(StoreConfig{Committer: committer, Debounce: testDebounce})
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Toggle("T1", "2024-06-10"))
	waitSettled(t, store, "T1", day)

	record, ok := store.Record("T1", day)
	require.True(t, ok)
	assert.Equal(t, "srv-1", record.ID)
	assert.True(t, record.IsCompleted)
	assert.False(t, record.IsOptimistic)
	assert.False(t, store.IsPending("T1", day))
	store.Close()
}

func TestReconcileMatchingConfirmedKeepsReference(t *testing.T) {
	store := NewStore(StoreConfig{Committer: &fakeCommitter{}, Debounce: time.Hour})
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	confirmed := &CompletionRecord{ID: "srv-1", TaskID: "T1", Date: day, IsCompleted: true}
	store.Load([]*CompletionRecord{confirmed})

	// A stale duplicate response that matches confirmed state must not
	// replace the observable record.
	stale := &CompletionRecord{ID: "srv-1", TaskID: "T1", Date: day, IsCompleted: true}
	store.applyServer(KeyFor("T1", day), stale)

	record, ok := store.Record("T1", day)
	require.True(t, ok)
	assert.Same(t, confirmed, record)
	store.Close()
}

func TestReconcileUnknownKeyAppendsAuthoritative(t *testing.T) {
	// Rare case: another device created the record first.
	store := NewStore(StoreConfig{Committer: &fakeCommitter{}, Debounce: time.Hour})
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	authoritative := &CompletionRecord{ID: "srv-9", TaskID: "T9", Date: day, IsCompleted: true}
	store.applyServer(KeyFor("T9", day), authoritative)

	record, ok := store.Record("T9", day)
	require.True(t, ok)
	assert.Same(t, authoritative, record)
	store.Close()
}

func TestRollbackRestoresPriorTruth(t *testing.T) {
	var failures []error
	committer := &fakeCommitter{
		respond: func(string, string) (*CompletionRecord, error) {
			return nil, errors.New("boom")
		},
	}
	store := NewStore(StoreConfig{
		Committer: committer,
		Debounce:  testDebounce,
		OnFailure: func(_ string, _ time.Time, err error) { failures = append(failures, err) },
	})
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	store.Load([]*CompletionRecord{{ID: "srv-1", TaskID: "T1", Date: day, IsCompleted: false}})

	require.NoError(t, store.Toggle("T1", "2024-06-10"))
	assert.True(t, store.IsCompleted("T1", day))
	waitSettled(t, store, "T1", day)

	record, ok := store.Record("T1", day)
	require.True(t, ok)
	assert.False(t, record.IsCompleted)
	assert.False(t, record.IsOptimistic)
	assert.False(t, store.IsPending("T1", day))
	assert.Len(t, failures, 1)
	store.Close()
}

func TestRollbackDiscardsFreshRecord(t *testing.T) {
	committer := &fakeCommitter{
		respond: func(string, string) (*CompletionRecord, error) {
			return nil, errors.New("boom")
		},
	}
	store := NewStore(StoreConfig{Committer: committer, Debounce: testDebounce})
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Toggle("T1", "2024-06-10"))
	waitSettled(t, store, "T1", day)

	// No prior server record: the placeholder must vanish entirely, not
	// linger as a false "not completed" row.
	_, ok := store.Record("T1", day)
	assert.False(t, ok)
	assert.False(t, store.IsCompleted("T1", day))
	store.Close()
}

func TestPendingClearsOnBothOutcomes(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	success := NewStore(StoreConfig{Committer: &fakeCommitter{}, Debounce: testDebounce})
	require.NoError(t, success.Toggle("T1", "2024-06-10"))
	waitSettled(t, success, "T1", day)
	assert.False(t, success.IsPending("T1", day))
	success.Close()

	failure := NewStore(StoreConfig{
		Committer: &fakeCommitter{respond: func(string, string) (*CompletionRecord, error) {
			return nil, errors.New("boom")
		}},
		Debounce: testDebounce,
	})
	require.NoError(t, failure.Toggle("T1", "2024-06-10"))
	waitSettled(t, failure, "T1", day)
	assert.False(t, failure.IsPending("T1", day))
	failure.Close()
}

func TestCloseCancelsScheduledCommits(t *testing.T) {
	committer := &fakeCommitter{}
	store := NewStore(StoreConfig{Committer: committer, Debounce: 50 * time.Millisecond})

	require.NoError(t, store.Toggle("T1", "2024-06-10"))
	store.Close()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, committer.callCount())
	assert.ErrorIs(t, store.Toggle("T1", "2024-06-10"), ErrClosed)
}
