// Package ProgressSync keeps a patient's daily task checklist in sync with the
// backend. Toggles are applied optimistically, coalesced per task/day with a
// debounce timer, and reconciled against the server's authoritative answer.
package ProgressSync

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WireDateLayout is the date-only format sent to the backend.
const WireDateLayout = "2006-01-02"

// OptimisticIDPrefix marks records created locally before the server has
// assigned an identity. Such records are discarded on a failed commit.
const OptimisticIDPrefix = "optimistic-"

// CompletionKey identifies one task on one calendar day: "taskID|yyyy-MM-dd".
type CompletionKey string

// CompletionRecord is one patient's completion state for one task on one day.
type CompletionRecord struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"taskId"`
	Date         time.Time `json:"date"`
	IsCompleted  bool      `json:"isCompleted"`
	IsOptimistic bool      `json:"isOptimistic"`
	OwnerID      string    `json:"ownerId,omitempty"`
}

// Key returns the record's composite lookup key.
func (r *CompletionRecord) Key() CompletionKey {
	return KeyFor(r.TaskID, r.Date)
}

// HasServerIdentity reports whether the record was ever confirmed by the
// server, as opposed to a locally synthesized placeholder.
func (r *CompletionRecord) HasServerIdentity() bool {
	return r.ID != "" && !strings.HasPrefix(r.ID, OptimisticIDPrefix)
}

// NewOptimisticRecord synthesizes a placeholder record for a key that has no
// server-side counterpart yet.
func NewOptimisticRecord(taskID string, day time.Time, completed bool, ownerID string) *CompletionRecord {
	return &CompletionRecord{
		ID:           OptimisticIDPrefix + uuid.NewString(),
		TaskID:       taskID,
		Date:         DayOf(day),
		IsCompleted:  completed,
		IsOptimistic: true,
		OwnerID:      ownerID,
	}
}

// DayOf truncates a timestamp to midnight UTC. Time-of-day is never tracked,
// only day granularity.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// KeyFor derives the composite key for a task and a calendar day. Two
// timestamps on the same UTC day always collide into the same key, so a
// freshly fetched authoritative record overwrites a stale optimistic one.
func KeyFor(taskID string, date time.Time) CompletionKey {
	return CompletionKey(taskID + "|" + DayOf(date).Format(WireDateLayout))
}

// ParseWireDate parses a date off the wire. The client sends date-only strings
// but the server echoes back full ISO timestamps, so both are accepted. The
// result is always normalized to midnight UTC.
func ParseWireDate(value string) (time.Time, error) {
	for _, layout := range []string{WireDateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return DayOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// BuildIndex maps a list of completion records by composite key. Duplicates
// for the same key collapse, last one wins.
func BuildIndex(records []*CompletionRecord) map[CompletionKey]*CompletionRecord {
	index := make(map[CompletionKey]*CompletionRecord, len(records))
	for _, record := range records {
		index[record.Key()] = record
	}
	return index
}
