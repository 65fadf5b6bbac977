package ProgressSync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientToggleTask(t *testing.T) {
	var gotBody map[string]string
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, progressPath, r.URL.Path)
		if cookie, err := r.Cookie("jwt"); err == nil {
			gotCookie = cookie.Value
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"progress":{"id":7,"date":"2024-06-10T00:00:00.000Z","isCompleted":true,"protocolTask":{"id":3},"userId":12}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.AuthCookie = "token-value"

	record, err := client.ToggleTask("3", "2024-06-10")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"protocolTaskId": "3", "date": "2024-06-10"}, gotBody)
	assert.Equal(t, "token-value", gotCookie)
	// Numeric wire ids come back as strings.
	assert.Equal(t, "7", record.ID)
	assert.Equal(t, "3", record.TaskID)
	assert.Equal(t, "12", record.OwnerID)
	assert.True(t, record.IsCompleted)
	assert.True(t, record.Date.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)))
}

func TestClientToggleTaskFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"non-2xx with message", http.StatusInternalServerError, `{"message":"database unavailable"}`},
		{"non-2xx with error field", http.StatusBadRequest, `{"error":"invalid date"}`},
		{"success false", http.StatusOK, `{"success":false,"message":"task not found"}`},
		{"missing progress", http.StatusOK, `{"success":true}`},
		{"malformed progress date", http.StatusOK, `{"success":true,"progress":{"id":"r1","date":"garbage","isCompleted":true,"protocolTask":{"id":"T1"}}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).ToggleTask("T1", "2024-06-10")
			assert.Error(t, err)
		})
	}
}

func TestClientFetchProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "5", r.URL.Query().Get("protocolId"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"r1","date":"2024-06-10T00:00:00.000Z","isCompleted":true,"protocolTask":{"id":"T1"}},
			{"id":"r2","date":"broken","isCompleted":true,"protocolTask":{"id":"T2"}},
			{"id":"r3","date":"2024-06-11","isCompleted":false,"protocolTask":{"id":"T1"}}
		]`))
	}))
	defer server.Close()

	records, err := NewClient(server.URL).FetchProgress("5")
	require.NoError(t, err)

	// The malformed entry is dropped, it just reads as not completed.
	require.Len(t, records, 2)
	index := BuildIndex(records)
	assert.True(t, index[CompletionKey("T1|2024-06-10")].IsCompleted)
	assert.False(t, index[CompletionKey("T1|2024-06-11")].IsCompleted)
}

// Full round trip against a fake backend: optimistic flip, debounce, commit,
// reconcile into confirmed server state.
func TestStoreEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`[]`))
		case http.MethodPost:
			w.Write([]byte(`{"success":true,"progress":{"id":"r1","date":"2024-06-10T00:00:00.000Z","isCompleted":true,"protocolTask":{"id":"T1"}}}`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	records, err := client.FetchProgress("5")
	require.NoError(t, err)

	store := NewStore(StoreConfig{Committer: client, OwnerID: "p1", Debounce: testDebounce})
	store.Load(records)
	defer store.Close()

	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Toggle("T1", "2024-06-10"))

	// Pre-response the key already resolves to completed.
	assert.True(t, store.IsCompleted("T1", day))

	waitSettled(t, store, "T1", day)

	record, ok := store.Record("T1", day)
	require.True(t, ok)
	assert.Equal(t, "r1", record.ID)
	assert.True(t, record.IsCompleted)
	assert.False(t, record.IsOptimistic)
	assert.False(t, store.IsPending("T1", day))
}
