package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nidhogg/campus-assistant/internal/agent"
	"github.com/nidhogg/campus-assistant/internal/command"
	"github.com/nidhogg/campus-assistant/internal/events"
	"github.com/nidhogg/campus-assistant/internal/gateway"
	"github.com/nidhogg/campus-assistant/internal/memory"
	"github.com/nidhogg/campus-assistant/internal/store"
	"go.uber.org/zap"
)

// channelNamespace derives stable conversation ids for chat channels.
var channelNamespace = uuid.MustParse("6f1c2a9e-3b7d-5e0a-9c41-2d8b7f0e6a13")

// Transcripts persists conversations and their messages.
type Transcripts interface {
	CreateConversation(ctx context.Context, c *store.Conversation) error
	Conversation(ctx context.Context, id string) (*store.Conversation, error)
	AppendMessage(ctx context.Context, m *store.Message) error
}

// Inbound is a user message entering through any transport.
type Inbound struct {
	// ConversationID is empty to start a new conversation.
	ConversationID string
	UserID         string
	Tenant         string
	Message        string
	Auth           string
	// Ensure creates the conversation under ConversationID when it does not
	// exist yet instead of failing.
	Ensure bool
}

// Outcome is what the user gets back for an Inbound message.
type Outcome struct {
	ConversationID string               `json:"chat_id"`
	Category       string               `json:"category"`
	Reply          string               `json:"reply"`
	ActiveSessions int                  `json:"active_sessions"`
	Specialization agent.Specialization `json:"-"`
}

// MessageOptions holds the optional collaborators of a MessageRouter.
type MessageOptions struct {
	// Transcripts is nil when no database is configured; conversations are
	// then neither persisted nor checked for ownership, and memory is kept
	// per user and conversation.
	Transcripts Transcripts
	Events      events.Publisher
	Commands    *command.Registry
	Gateway     *gateway.Gateway
}

// MessageRouter wraps a Router with conversation bookkeeping: transcripts,
// ownership checks, events, and chat channel delivery.
type MessageRouter struct {
	router      *Router
	memory      *memory.Store
	transcripts Transcripts
	events      events.Publisher
	commands    *command.Registry
	gw          *gateway.Gateway
	logger      *zap.Logger
}

// NewMessageRouter creates a MessageRouter.
func NewMessageRouter(r *Router, mem *memory.Store, opts MessageOptions, logger *zap.Logger) *MessageRouter {
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Commands == nil {
		opts.Commands = command.NewRegistry()
	}
	return &MessageRouter{
		router:      r,
		memory:      mem,
		transcripts: opts.Transcripts,
		events:      opts.Events,
		commands:    opts.Commands,
		gw:          opts.Gateway,
		logger:      logger,
	}
}

// Router returns the wrapped router.
func (mr *MessageRouter) Router() *Router { return mr.router }

// Handle answers one message. Validation and ownership failures are
// returned; everything after that is logged and still yields a reply.
// Messages of one conversation are handled one at a time, transcript
// writes included, so stored history alternates user and agent turns.
func (mr *MessageRouter) Handle(ctx context.Context, in Inbound) (*Outcome, error) {
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	tenant, ok := mr.router.Tenant(in.Tenant)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTenant, in.Tenant)
	}

	convID, fresh := in.ConversationID, in.ConversationID == ""
	if fresh {
		convID = uuid.NewString()
	} else if _, err := uuid.Parse(convID); err != nil {
		return nil, ErrInvalidConversationID
	}
	key := mr.sessionKey(in.UserID, convID)
	unlock := mr.router.locks.Lock(key)
	defer unlock()

	if err := mr.conversation(ctx, convID, fresh, in, text); err != nil {
		return nil, err
	}

	mr.appendMessage(ctx, &store.Message{ConversationID: convID, Content: text})

	reply := mr.router.routeLocked(ctx, Request{
		ConversationID: key,
		Message:        text,
		Auth:           in.Auth,
		Tenant:         tenant.Name,
	})

	mr.appendMessage(ctx, &store.Message{
		ConversationID: convID,
		FromAgent:      true,
		Content:        reply.Text,
		Category:       reply.Category,
	})
	mr.publish(ctx, &events.Event{
		Type:           events.TypeMessageRouted,
		ConversationID: convID,
		Tenant:         tenant.Name,
		Category:       reply.Category,
	})

	return &Outcome{
		ConversationID: convID,
		Category:       reply.Category,
		Reply:          reply.Text,
		ActiveSessions: mr.memory.Size(),
		Specialization: reply.Specialization,
	}, nil
}

// sessionKey is the memory and lock key of a conversation. Without a
// transcript store ownership cannot be checked, so memory is scoped to the
// user as well.
func (mr *MessageRouter) sessionKey(userID, conversationID string) string {
	if mr.transcripts != nil {
		return conversationID
	}
	return userID + "/" + conversationID
}

// conversation checks that convID exists and belongs to the sender,
// creating it when it is fresh or Ensure is set.
func (mr *MessageRouter) conversation(ctx context.Context, convID string, fresh bool, in Inbound, first string) error {
	if fresh {
		mr.create(ctx, convID, in, first)
		return nil
	}
	if mr.transcripts == nil {
		return nil
	}

	c, err := mr.transcripts.Conversation(ctx, convID)
	switch {
	case errors.Is(err, store.ErrNotFound) && in.Ensure:
		mr.create(ctx, convID, in, first)
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrConversationNotFound
	case err != nil:
		return fmt.Errorf("load conversation: %w", err)
	case c.UserID != in.UserID:
		return ErrConversationNotFound
	}
	return nil
}

func (mr *MessageRouter) create(ctx context.Context, id string, in Inbound, first string) {
	if mr.transcripts == nil {
		return
	}
	err := mr.transcripts.CreateConversation(ctx, &store.Conversation{
		ID:     id,
		UserID: in.UserID,
		Tenant: in.Tenant,
		Title:  store.Title(first),
	})
	if err != nil {
		mr.logger.Error("create conversation failed",
			zap.String("conversation", id), zap.Error(err))
	}
}

func (mr *MessageRouter) appendMessage(ctx context.Context, m *store.Message) {
	if mr.transcripts == nil {
		return
	}
	if err := mr.transcripts.AppendMessage(ctx, m); err != nil {
		mr.logger.Error("append message failed",
			zap.String("conversation", m.ConversationID),
			zap.Bool("from_agent", m.FromAgent),
			zap.Error(err))
	}
}

func (mr *MessageRouter) publish(ctx context.Context, ev *events.Event) {
	if err := mr.events.Publish(ctx, ev); err != nil {
		mr.logger.Warn("publish event failed",
			zap.String("type", ev.Type), zap.Error(err))
	}
}

// Cleanup forgets the memory of a conversation owned by userID. It
// reports whether there was anything to forget and how many sessions
// remain active.
func (mr *MessageRouter) Cleanup(ctx context.Context, userID, conversationID string) (bool, int, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return false, 0, ErrInvalidConversationID
	}
	if mr.transcripts != nil {
		c, err := mr.transcripts.Conversation(ctx, conversationID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return false, 0, ErrConversationNotFound
		case err != nil:
			return false, 0, fmt.Errorf("load conversation: %w", err)
		case c.UserID != userID:
			return false, 0, ErrConversationNotFound
		}
	}

	key := mr.sessionKey(userID, conversationID)
	unlock := mr.router.locks.Lock(key)
	cleared := mr.memory.Clear(key)
	unlock()
	active := mr.memory.Size()
	mr.logger.Info("conversation memory cleared",
		zap.String("conversation", conversationID),
		zap.Bool("had_memory", cleared),
		zap.Int("active_sessions", active))

	mr.publish(ctx, &events.Event{
		Type:           events.TypeMemoryCleared,
		ConversationID: conversationID,
	})
	return cleared, active, nil
}

// Status reports the assistant's state for a tenant.
func (mr *MessageRouter) Status(tenant string) command.Status {
	stats := mr.memory.Stats()
	s := command.Status{
		ActiveSessions: stats.Sessions,
		MaxSessions:    stats.MaxSessions,
		Tenant:         tenant,
	}
	if t, ok := mr.router.Tenant(tenant); ok {
		for _, spec := range t.Specializations() {
			s.Agents = append(s.Agents, string(spec))
		}
	}
	if mr.gw != nil {
		s.Adapters = mr.gw.Adapters()
	}
	return s
}

// Resetter adapts Cleanup for channel commands, where resetting a
// conversation that was never stored is not an error.
func (mr *MessageRouter) Resetter() command.Resetter { return channelResetter{mr} }

type channelResetter struct{ mr *MessageRouter }

func (c channelResetter) Cleanup(ctx context.Context, userID, conversationID string) (bool, int, error) {
	cleared, active, err := c.mr.Cleanup(ctx, userID, conversationID)
	if errors.Is(err, ErrConversationNotFound) {
		return false, c.mr.memory.Size(), nil
	}
	return cleared, active, err
}

// ChannelConversation derives the conversation and user ids of a chat
// channel message. The same user in the same channel always continues the
// same conversation.
func ChannelConversation(msg *gateway.InboundMessage) (conversationID, userID string) {
	key := msg.Platform + ":" + msg.ChannelID + ":" + msg.UserID
	return uuid.NewSHA1(channelNamespace, []byte(key)).String(), msg.Platform + ":" + msg.UserID
}

// HandleInbound answers a chat channel message. It matches
// gateway.MessageHandler.
func (mr *MessageRouter) HandleInbound(msg *gateway.InboundMessage) {
	ctx := context.Background()
	convID, userID := ChannelConversation(msg)
	mr.logger.Info("routing channel message",
		zap.String("platform", msg.Platform),
		zap.String("channel", msg.ChannelID),
		zap.String("user", msg.UserName),
		zap.String("conversation", convID))

	if command.IsCommand(msg.Content) {
		cc := &command.CommandContext{
			Platform:       msg.Platform,
			ChannelID:      msg.ChannelID,
			UserID:         userID,
			UserName:       msg.UserName,
			ConversationID: convID,
			Tenant:         msg.Tenant,
		}
		result, err := mr.commands.Dispatch(ctx, msg.Content, cc)
		if err != nil {
			mr.logger.Error("command dispatch error", zap.Error(err))
			mr.sendReply(ctx, msg, "", apologyText)
			return
		}
		mr.sendReply(ctx, msg, "", result.Content)
		return
	}

	out, err := mr.Handle(ctx, Inbound{
		ConversationID: convID,
		UserID:         userID,
		Tenant:         msg.Tenant,
		Message:        msg.Content,
		Ensure:         true,
	})
	if err != nil {
		text, _ := failureText(err)
		mr.logger.Error("channel message rejected",
			zap.String("platform", msg.Platform),
			zap.String("tenant", msg.Tenant),
			zap.Error(err))
		mr.sendReply(ctx, msg, "", text)
		return
	}

	persona := ""
	if out.Specialization != "" {
		persona = agent.PersonaFor(out.Specialization).Name
	}
	mr.sendReply(ctx, msg, persona, out.Reply)
}

// sendReply sends a text reply back to the originating platform/channel.
func (mr *MessageRouter) sendReply(ctx context.Context, orig *gateway.InboundMessage, persona, text string) {
	if mr.gw == nil {
		mr.logger.Warn("no gateway configured, dropping reply", zap.String("platform", orig.Platform))
		return
	}
	err := mr.gw.Send(ctx, &gateway.OutboundMessage{
		Platform:  orig.Platform,
		ChannelID: orig.ChannelID,
		Persona:   persona,
		Content:   text,
		ReplyTo:   orig.ReplyTo,
	})
	if err != nil {
		mr.logger.Error("send reply failed", zap.Error(err))
	}
}
