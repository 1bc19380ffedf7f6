package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hirotachi/ws-cli-chat/pkg/chat"
)

// HTTPDirectory implements chat.Directory against the hub's REST api.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDirectory(baseURL string, client *http.Client) *HTTPDirectory {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDirectory{baseURL: baseURL, client: client}
}

func (d *HTTPDirectory) MessageHistory(ctx context.Context) ([]chat.Message, error) {
	var history []chat.Message
	if err := d.request(ctx, http.MethodGet, "/api/messages", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (d *HTTPDirectory) OnlineUsers(ctx context.Context) ([]string, error) {
	var names []string
	if err := d.request(ctx, http.MethodGet, "/api/online-users", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (d *HTTPDirectory) CheckUsername(ctx context.Context, username string) (bool, error) {
	var result struct {
		Available bool `json:"available"`
	}
	path := "/api/check-username/" + url.PathEscape(username)
	if err := d.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return false, err
	}
	return result.Available, nil
}

func (d *HTTPDirectory) EditMessage(ctx context.Context, id string, text string, sender string) (chat.Message, error) {
	body := map[string]string{"text": text, "sender": sender}
	var saved chat.Message
	path := "/api/messages/" + url.PathEscape(id)
	if err := d.request(ctx, http.MethodPut, path, body, &saved); err != nil {
		return chat.Message{}, err
	}
	return saved, nil
}

func (d *HTTPDirectory) DeleteMessage(ctx context.Context, id string, sender string) error {
	body := map[string]string{"sender": sender}
	path := "/api/messages/" + url.PathEscape(id)
	return d.request(ctx, http.MethodDelete, path, body, nil)
}

func (d *HTTPDirectory) request(ctx context.Context, method string, path string, body interface{}, target interface{}) error {
	var reader io.Reader
	if body != nil {
		marshaled, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not marshal request body: %s", err)
		}
		reader = bytes.NewReader(marshaled)
	}
	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s returned %s", method, path, resp.Status)
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("could not decode %s response: %s", path, err)
	}
	return nil
}
