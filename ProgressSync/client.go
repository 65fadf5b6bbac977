package ProgressSync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const progressPath = "/api/protocols/progress"

// Client talks to the protocol progress endpoints. It implements Committer so
// it can be plugged straight into a Store.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// AuthCookie carries the jwt session cookie value for the patient.
	AuthCookie string
}

var _ Committer = (*Client)(nil)

// NewClient creates a client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// wireID tolerates servers that encode identifiers as JSON numbers as well as
// strings.
type wireID string

func (w *wireID) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*w = wireID(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*w = wireID(asNumber.String())
		return nil
	}
	return fmt.Errorf("invalid id %s", string(data))
}

type wireProgress struct {
	ID           wireID `json:"id"`
	Date         string `json:"date"`
	IsCompleted  bool   `json:"isCompleted"`
	ProtocolTask struct {
		ID wireID `json:"id"`
	} `json:"protocolTask"`
	UserID wireID `json:"userId"`
}

type toggleResponse struct {
	Success  bool          `json:"success"`
	Progress *wireProgress `json:"progress"`
	Message  string        `json:"message"`
	Error    string        `json:"error"`
}

// FetchProgress loads every completion record for the patient and protocol.
// Entries with malformed dates are skipped; they simply read as not completed.
func (c *Client) FetchProgress(protocolID string) ([]*CompletionRecord, error) {
	endpoint := c.BaseURL + progressPath + "?protocolId=" + url.QueryEscape(protocolID)
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var payload []wireProgress
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}

	records := make([]*CompletionRecord, 0, len(payload))
	for i := range payload {
		record, err := payload[i].toRecord()
		if err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// ToggleTask flips the persisted completion state for a task on a date
// (yyyy-MM-dd) and returns the authoritative record.
func (c *Client) ToggleTask(taskID string, date string) (*CompletionRecord, error) {
	body, err := json.Marshal(map[string]string{
		"protocolTaskId": taskID,
		"date":           date,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+progressPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var payload toggleResponse
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, fmt.Errorf("toggle rejected: %s", payload.errorMessage())
	}
	if payload.Progress == nil {
		// A 2xx without the expected progress field still counts as failure.
		return nil, fmt.Errorf("malformed toggle response: missing progress")
	}
	return payload.Progress.toRecord()
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.AuthCookie != "" {
		req.AddCookie(&http.Cookie{Name: "jwt", Value: c.AuthCookie})
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure toggleResponse
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil {
			if msg := failure.errorMessage(); msg != "" {
				return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
			}
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (t toggleResponse) errorMessage() string {
	if t.Message != "" {
		return t.Message
	}
	if t.Error != "" {
		return t.Error
	}
	return "unknown error"
}

func (w *wireProgress) toRecord() (*CompletionRecord, error) {
	day, err := ParseWireDate(w.Date)
	if err != nil {
		return nil, fmt.Errorf("progress %s: %w", string(w.ID), err)
	}
	return &CompletionRecord{
		ID:          string(w.ID),
		TaskID:      string(w.ProtocolTask.ID),
		Date:        day,
		IsCompleted: w.IsCompleted,
		OwnerID:     string(w.UserID),
	}, nil
}
