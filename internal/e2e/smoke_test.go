//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

var (
	baseURL string
	token   string
)

func TestMain(m *testing.M) {
	baseURL = os.Getenv("CAMPUS_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	token = os.Getenv("CAMPUS_TOKEN")

	// Wait for server readiness (up to 30s)
	ready := false
	for i := 0; i < 30; i++ {
		resp, err := http.Get(baseURL + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				ready = true
				break
			}
		}
		time.Sleep(1 * time.Second)
	}
	if !ready {
		fmt.Fprintf(os.Stderr, "server at %s not ready after 30s\n", baseURL)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

type chatReply struct {
	ChatID         string `json:"chat_id"`
	Category       string `json:"category"`
	Reply          string `json:"reply"`
	ActiveSessions int    `json:"active_sessions"`
}

// call sends a request and decodes the JSON answer into out.
func call(t *testing.T, method, path string, auth bool, in, out any) int {
	t.Helper()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if out != nil && resp.StatusCode < 300 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("unmarshal response: %v (body: %s)", err, string(raw))
		}
	}
	return resp.StatusCode
}

func requireToken(t *testing.T) {
	t.Helper()
	if token == "" {
		t.Skip("CAMPUS_TOKEN not set")
	}
}

func TestHealth(t *testing.T) {
	var health map[string]string
	if code := call(t, http.MethodGet, "/api/health", false, nil, &health); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if health["status"] != "ok" {
		t.Errorf("unexpected health: %v", health)
	}
}

func TestProviders(t *testing.T) {
	var providers []struct {
		Name    string `json:"name"`
		Default bool   `json:"default"`
	}
	if code := call(t, http.MethodGet, "/api/providers", false, nil, &providers); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(providers) == 0 {
		t.Fatal("expected at least one provider")
	}
	t.Logf("providers: %+v", providers)
}

func TestChatRequiresAuth(t *testing.T) {
	code := call(t, http.MethodPost, "/api/chat", false, map[string]string{"message": "hola"}, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestEnrollmentConversation(t *testing.T) {
	requireToken(t)

	var first chatReply
	code := call(t, http.MethodPost, "/api/chat", true, map[string]string{"message": "Quiero matricularme en Derecho"}, &first)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if first.ChatID == "" || first.Reply == "" {
		t.Fatalf("incomplete reply: %+v", first)
	}
	if first.Category != "ventas" && first.Category != "error" {
		t.Errorf("expected ventas, got %q", first.Category)
	}
	t.Logf("reply: %.300s", first.Reply)

	var msgs []map[string]any
	if code := call(t, http.MethodGet, "/api/chat/"+first.ChatID+"/messages", true, nil, &msgs); code != http.StatusOK {
		t.Logf("messages unavailable (status %d)", code)
	} else if len(msgs) < 2 {
		t.Errorf("expected the question and the reply, got %d messages", len(msgs))
	}

	var cleared struct {
		Message        string `json:"message"`
		ActiveSessions int    `json:"active_sessions"`
	}
	path := "/api/chat/" + first.ChatID + "/cleanup"
	if code := call(t, http.MethodDelete, path, true, nil, &cleared); code != http.StatusOK {
		t.Fatalf("cleanup status %d", code)
	}
	if cleared.ActiveSessions > first.ActiveSessions {
		t.Errorf("active sessions did not drop: %d -> %d", first.ActiveSessions, cleared.ActiveSessions)
	}
}
