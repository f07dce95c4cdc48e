// Package identity verifies end-user bearer tokens and performs the
// authenticated calls the IT-support agent makes on the user's behalf.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized is returned when a token is rejected.
var ErrUnauthorized = errors.New("unauthorized")

// User is an authenticated end user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Profile  string `json:"profile,omitempty"`
	Photo    string `json:"photo,omitempty"`
	// Source names the issuer that vouched for the user: "institution" or
	// the Supabase login provider (google, facebook, ...).
	Source string `json:"source"`
}

// Recovery is the institution's answer to a credential recovery request.
type Recovery struct {
	Message          string `json:"message,omitempty"`
	WhatsAppResponse string `json:"whatsaap_response,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Client calls the institution API with the user's own token.
type Client struct {
	apiURL string
	client *http.Client
}

// NewClient creates a client for the institution API rooted at apiURL.
func NewClient(apiURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

type verifyResponse struct {
	ID       json.Number `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Perfil   string      `json:"perfil"`
	Photo    string      `json:"photo"`
}

// Profile returns the user owning token.
func (c *Client) Profile(ctx context.Context, token string) (*User, error) {
	var out verifyResponse
	if err := c.do(ctx, http.MethodGet, "/auth/verify/", token, nil, &out); err != nil {
		return nil, err
	}
	username := out.Username
	if username == "" {
		username = out.Email
	}
	return &User{
		ID:       out.ID.String(),
		Username: username,
		Email:    out.Email,
		Name:     out.Name,
		Profile:  out.Perfil,
		Photo:    out.Photo,
		Source:   "institution",
	}, nil
}

// RecoverPassword asks the institution to send new SGA credentials to phone.
func (c *Client) RecoverPassword(ctx context.Context, token, phone string) (*Recovery, error) {
	var out Recovery
	body := map[string]string{"telefono": phone}
	if err := c.do(ctx, http.MethodPost, "/password_recovery/", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+BareToken(token))
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", path, ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("identity API error %d on %s: %s", resp.StatusCode, path, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// BareToken strips an optional "Bearer " prefix.
func BareToken(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 7 && strings.EqualFold(s[:7], "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
