package Slack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// SlackClient holds the Slack bot token and base URL
type SlackClient struct {
	Token   string
	BaseURL string
}

// SlackMessage represents a message payload
type SlackMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
	Parse   string `json:"parse,omitempty"`
}

// SlackResponse represents the API response
type SlackResponse struct {
	OK      bool   `json:"ok"`
	Channel string `json:"channel,omitempty"`
	TS      string `json:"ts,omitempty"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// NewSlackClient creates a new Slack client
// Required Bot Token Scopes:
// - chat:write (send messages)
// - chat:write.public (send to channels without being invited)
func NewSlackClient(token string) *SlackClient {
	return &SlackClient{
		Token:   token,
		BaseURL: "https://slack.com/api",
	}
}

// SendMessage sends a message to a Slack channel
func (s *SlackClient) SendMessage(channel, message string) (*SlackResponse, error) {
	payload := SlackMessage{
		Channel: channel,
		Text:    message,
		Parse:   "full",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling JSON: %v", err)
	}

	url := fmt.Sprintf("%s/chat.postMessage", s.BaseURL)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.Token))

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %v", err)
	}

	var slackResp SlackResponse
	if err := json.Unmarshal(body, &slackResp); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %v", err)
	}

	if !slackResp.OK {
		return &slackResp, fmt.Errorf("slack API error: %s", slackResp.Error)
	}

	return &slackResp, nil
}

func opsChannel() string {
	if channel := os.Getenv("SLACK_CHANNEL"); channel != "" {
		return channel
	}
	return "#clinic-ops"
}

func defaultClient() (*SlackClient, error) {
	token := os.Getenv("SLACK_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN not configured")
	}
	return NewSlackClient(token), nil
}

// NotifyNewReferral pings the ops channel about a referral a patient just made.
func NotifyNewReferral(referralName, referrerName string) error {
	client, err := defaultClient()
	if err != nil {
		return err
	}
	message := fmt.Sprintf("🎉 New referral: *%s*, referred by %s", referralName, referrerName)
	_, err = client.SendMessage(opsChannel(), message)
	return err
}

// NotifyNewLead pings the ops channel about a captured lead.
func NotifyNewLead(leadName, clinicName, source string) error {
	client, err := defaultClient()
	if err != nil {
		return err
	}
	message := fmt.Sprintf("📥 New lead for %s: *%s* (source: %s)", clinicName, leadName, source)
	_, err = client.SendMessage(opsChannel(), message)
	return err
}

// SendDailyDigest posts the morning summary the reminder job assembles.
func SendDailyDigest(summary string) error {
	client, err := defaultClient()
	if err != nil {
		return err
	}
	_, err = client.SendMessage(opsChannel(), summary)
	return err
}
