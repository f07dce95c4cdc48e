package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// discordMaxContent is Discord's per-message character limit.
const discordMaxContent = 2000

// DiscordAdapter implements Adapter for Discord using the bot gateway.
type DiscordAdapter struct {
	token       string
	tenant      string
	session     *discordgo.Session
	handler     MessageHandler
	personas    map[string]*Persona // display name -> persona
	webhooks    map[string]string   // channelID -> webhook URL for persona messages
	connected   bool
	connectedAt time.Time
	lastError   string
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewDiscordAdapter creates a Discord gateway adapter serving tenant.
func NewDiscordAdapter(token, tenant string, logger *zap.Logger) *DiscordAdapter {
	return &DiscordAdapter{
		token:    token,
		tenant:   tenant,
		personas: make(map[string]*Persona),
		webhooks: make(map[string]string),
		logger:   logger,
	}
}

func (a *DiscordAdapter) Platform() string { return "discord" }

func (a *DiscordAdapter) OnMessage(h MessageHandler) { a.handler = h }

// SetPersona registers how replies signed by persona.Name look on Discord.
func (a *DiscordAdapter) SetPersona(persona *Persona) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.personas[persona.Name] = persona
}

// SetWebhook registers a webhook URL for a channel to enable persona messages.
func (a *DiscordAdapter) SetWebhook(channelID, webhookURL string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.webhooks[channelID] = webhookURL
}

// Connect opens the Discord gateway websocket.
func (a *DiscordAdapter) Connect(_ context.Context) error {
	session, err := discordgo.New("Bot " + a.token)
	if err != nil {
		a.setError(fmt.Sprintf("session create: %v", err))
		return fmt.Errorf("discord session: %w", err)
	}
	a.session = session

	a.session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	a.session.AddHandler(a.onMessageCreate)

	if err := a.session.Open(); err != nil {
		a.setError(fmt.Sprintf("open failed: %v", err))
		return fmt.Errorf("discord open: %w", err)
	}

	a.mu.Lock()
	a.connected = true
	a.connectedAt = time.Now()
	a.lastError = ""
	a.mu.Unlock()

	guildCount := len(a.session.State.Guilds)
	if guildCount == 0 {
		a.logger.Warn("discord bot not added to any server, invite it first")
	}

	a.logger.Info("discord adapter connected",
		zap.String("user", a.session.State.User.Username),
		zap.String("tenant", a.tenant),
		zap.Int("guilds", guildCount))
	return nil
}

func (a *DiscordAdapter) setError(msg string) {
	a.mu.Lock()
	a.lastError = msg
	a.connected = false
	a.mu.Unlock()
}

func (a *DiscordAdapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}
	a.dispatch(m.Message)
}

func (a *DiscordAdapter) dispatch(m *discordgo.Message) {
	if a.handler == nil {
		return
	}
	text := strings.TrimSpace(m.Content)
	if text == "" {
		return
	}
	a.handler(&InboundMessage{
		Platform:  "discord",
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		Content:   text,
		Timestamp: m.Timestamp,
		ReplyTo:   m.ID,
		Tenant:    a.tenant,
	})
}

// Send posts a message to a Discord channel. With a webhook configured for
// the channel the persona name is used as the author; otherwise the name
// prefixes the text.
func (a *DiscordAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	if a.session == nil {
		return fmt.Errorf("discord send: not connected")
	}
	a.mu.RLock()
	webhookURL := a.webhooks[msg.ChannelID]
	persona := a.personas[msg.Persona]
	a.mu.RUnlock()
	if persona == nil && msg.Persona != "" {
		persona = &Persona{Name: msg.Persona}
	}

	if webhookURL != "" && persona != nil {
		return a.sendViaWebhook(webhookURL, persona, clip(msg.Content, discordMaxContent))
	}

	content := msg.Content
	if persona != nil {
		content = fmt.Sprintf("**[%s]** %s", persona.Name, msg.Content)
	}
	content = clip(content, discordMaxContent)

	var err error
	if msg.ReplyTo != "" {
		_, err = a.session.ChannelMessageSendReply(msg.ChannelID, content, &discordgo.MessageReference{
			MessageID: msg.ReplyTo,
			ChannelID: msg.ChannelID,
		})
	} else {
		_, err = a.session.ChannelMessageSend(msg.ChannelID, content)
	}
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

func (a *DiscordAdapter) sendViaWebhook(webhookURL string, persona *Persona, content string) error {
	webhook, err := a.session.WebhookWithToken(webhookURL, "")
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}

	params := &discordgo.WebhookParams{
		Content:  content,
		Username: persona.Name,
	}
	if persona.IconURL != "" {
		params.AvatarURL = persona.IconURL
	}

	_, err = a.session.WebhookExecute(webhook.ID, webhook.Token, false, params)
	if err != nil {
		return fmt.Errorf("discord webhook execute: %w", err)
	}
	return nil
}

// clip shortens s to at most max runes.
func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// Close shuts down the Discord session.
func (a *DiscordAdapter) Close() error {
	if a.session != nil {
		return a.session.Close()
	}
	return nil
}

func (a *DiscordAdapter) Status() AdapterStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := AdapterStatus{
		Platform:  "discord",
		Connected: a.connected,
		Error:     a.lastError,
	}
	if a.connected {
		t := a.connectedAt
		s.ConnectedAt = &t
		guildCount := 0
		if a.session != nil && a.session.State != nil {
			guildCount = len(a.session.State.Guilds)
		}
		s.Details = fmt.Sprintf("tenant=%s, guilds=%d", a.tenant, guildCount)
	}
	return s
}
