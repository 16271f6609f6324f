package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	lineNotifyAPI = "https://notify-api.line.me/api/notify"
	lineStatusAPI = "https://notify-api.line.me/api/status"
	lineTokenAPI  = "https://notify-bot.line.me/oauth/token"
)

// LineNotifier pushes reminders through LINE Notify. The credential is the
// bearer token LINE issues per user after the OAuth authorize step.
type LineNotifier struct {
	client       *http.Client
	clientID     string
	clientSecret string
	redirectURI  string
}

func NewLineNotifier() *LineNotifier {
	return &LineNotifier{
		client:       &http.Client{Timeout: 10 * time.Second},
		clientID:     os.Getenv("LINE_NOTIFY_CLIENT_ID"),
		clientSecret: os.Getenv("LINE_NOTIFY_CLIENT_SECRET"),
		redirectURI:  os.Getenv("LINE_NOTIFY_REDIRECT_URI"),
	}
}

// AuthorizeURL is where the client is sent to grant notify access.
func (n *LineNotifier) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", n.clientID)
	q.Set("redirect_uri", n.redirectURI)
	q.Set("scope", "notify")
	q.Set("state", state)
	return "https://notify-bot.line.me/oauth/authorize?" + q.Encode()
}

func (n *LineNotifier) Send(ctx context.Context, message string, credential *string) (int, error) {
	if credential == nil || *credential == "" {
		return StatusNone, nil
	}

	form := url.Values{}
	form.Set("message", message)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lineNotifyAPI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return StatusNone, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+*credential)

	resp, err := n.client.Do(req)
	if err != nil {
		return StatusNone, fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status int `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return StatusNone, fmt.Errorf("failed to decode notify response: %w", err)
	}
	return body.Status, nil
}

func (n *LineNotifier) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", n.redirectURI)
	form.Set("client_id", n.clientID)
	form.Set("client_secret", n.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lineTokenAPI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("no access token in response (status %d)", resp.StatusCode)
	}
	return body.AccessToken, nil
}

func (n *LineNotifier) CheckStatus(ctx context.Context, credential *string) (int, error) {
	if credential == nil || *credential == "" {
		return StatusNone, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lineStatusAPI, nil)
	if err != nil {
		return StatusNone, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+*credential)

	resp, err := n.client.Do(req)
	if err != nil {
		return StatusNone, fmt.Errorf("failed to check credential: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status int `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return StatusNone, fmt.Errorf("failed to decode status response: %w", err)
	}
	return body.Status, nil
}
