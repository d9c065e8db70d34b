package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const pushoverAPI = "https://api.pushover.net/1/messages.json"

// Pushover delivers popup notifications through the Pushover API.
type Pushover struct {
	Token string
	User  string

	// Endpoint overrides the API URL.
	Endpoint string
	Client   *http.Client
}

// NewPushover returns a Pushover sink, or nil when token or user is empty.
func NewPushover(token, user string) *Pushover {
	if token == "" || user == "" {
		return nil
	}
	return &Pushover{
		Token:  token,
		User:   user,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Pushover) Notify(n Notification) error {
	if !n.ShowPopup {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.SendMessage(ctx, n.Title, n.Message)
}

// SendMessage posts a single message.
func (p *Pushover) SendMessage(ctx context.Context, title, message string) error {
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = pushoverAPI
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	params := url.Values{}
	params.Set("token", p.Token)
	params.Set("user", p.User)
	params.Set("title", title)
	params.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("build pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send pushover message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("pushover api error: status %s, body %s", resp.Status, string(body))
	}
	return nil
}
