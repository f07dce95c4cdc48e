package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	titleMax      = 36
	defaultLimit  = 100
	maxListLimit  = 500
	titleEllipsis = "..."
)

// Tenant is reference data for a provider organization.
type Tenant struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Conversation is one chat thread owned by a user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Tenant    string    `json:"tenant"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one transcript entry.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	FromAgent      bool      `json:"from_agent"`
	Content        string    `json:"content"`
	Category       string    `json:"category,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Title derives a conversation title from its first message.
func Title(first string) string {
	r := []rune(first)
	if len(r) <= titleMax {
		return first
	}
	return string(r[:titleMax-len(titleEllipsis)]) + titleEllipsis
}

// SaveTenant upserts a tenant.
func (s *Store) SaveTenant(ctx context.Context, t Tenant) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO tenants (name, description, url)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			url = EXCLUDED.url`,
		t.Name, t.Description, t.URL,
	)
	if err != nil {
		return fmt.Errorf("save tenant %s: %w", t.Name, err)
	}
	return nil
}

// CreateConversation inserts c and fills in its creation time.
func (s *Store) CreateConversation(ctx context.Context, c *Conversation) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO conversations (id, user_id, tenant, title)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		c.ID, c.UserID, c.Tenant, c.Title,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// Conversation returns a conversation by id.
func (s *Store) Conversation(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	err := s.db.QueryRow(ctx, `
		SELECT id::text, user_id, tenant, title, created_at
		FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.UserID, &c.Tenant, &c.Title, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	return &c, nil
}

// ListConversations returns the user's conversations, newest first.
func (s *Store) ListConversations(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT id::text, user_id, tenant, title, created_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Tenant, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AppendMessage stores m and fills in its id and creation time.
func (s *Store) AppendMessage(ctx context.Context, m *Message) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, from_agent, content, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		m.ConversationID, m.FromAgent, m.Content, m.Category,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Messages returns the transcript of a conversation in order.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, conversation_id::text, from_agent, content, category, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.FromAgent, &m.Content, &m.Category, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
