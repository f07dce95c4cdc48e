package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// client calls the assistant API with a bearer token.
type client struct {
	server string
	token  string
	http   *http.Client
}

func newClient(server, token string, timeout time.Duration) *client {
	return &client{
		server: strings.TrimRight(server, "/"),
		token:  token,
		http:   &http.Client{Timeout: timeout},
	}
}

type chatReply struct {
	ChatID         string `json:"chat_id"`
	Category       string `json:"category"`
	Reply          string `json:"reply"`
	ActiveSessions int    `json:"active_sessions"`
}

type conversation struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type message struct {
	FromAgent bool   `json:"from_agent"`
	Content   string `json:"content"`
	Category  string `json:"category"`
}

type cleanupReply struct {
	Message        string `json:"message"`
	ActiveSessions int    `json:"active_sessions"`
}

// apiError is the JSON error body returned by the server.
type apiError struct {
	Status int
	Msg    string `json:"error"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Msg)
}

func (c *client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.server+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		e := &apiError{Status: resp.StatusCode}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, e) != nil || e.Msg == "" {
			e.Msg = strings.TrimSpace(string(data))
		}
		return e
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *client) Chat(ctx context.Context, chatID, provider, text string) (*chatReply, error) {
	var out chatReply
	err := c.do(ctx, http.MethodPost, "/api/chat", map[string]string{
		"message":  text,
		"provider": provider,
		"chat_id":  chatID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) History(ctx context.Context) ([]conversation, error) {
	var out []conversation
	return out, c.do(ctx, http.MethodGet, "/api/chat/history", nil, &out)
}

func (c *client) Messages(ctx context.Context, chatID string) ([]message, error) {
	var out []message
	return out, c.do(ctx, http.MethodGet, "/api/chat/"+chatID+"/messages", nil, &out)
}

func (c *client) Cleanup(ctx context.Context, chatID string) (*cleanupReply, error) {
	var out cleanupReply
	if err := c.do(ctx, http.MethodDelete, "/api/chat/"+chatID+"/cleanup", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) Health(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	return out, c.do(ctx, http.MethodGet, "/api/health", nil, &out)
}
