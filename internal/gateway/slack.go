package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
)

// SlackAdapter implements Adapter for Slack using Socket Mode.
type SlackAdapter struct {
	tenant      string
	client      *slack.Client
	socket      *socketmode.Client
	handler     MessageHandler
	personas    map[string]*Persona // display name -> persona
	connectedAt time.Time
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewSlackAdapter creates a Slack gateway adapter serving tenant.
// botToken is the Bot User OAuth Token (xoxb-...).
// appToken is the App-Level Token (xapp-...) for Socket Mode.
func NewSlackAdapter(botToken, appToken, tenant string, logger *zap.Logger) *SlackAdapter {
	client := slack.New(botToken,
		slack.OptionAppLevelToken(appToken),
	)

	socket := socketmode.New(client,
		socketmode.OptionLog(zap.NewStdLog(logger)),
	)

	return &SlackAdapter{
		tenant:   tenant,
		client:   client,
		socket:   socket,
		personas: make(map[string]*Persona),
		logger:   logger,
	}
}

func (a *SlackAdapter) Platform() string { return "slack" }

func (a *SlackAdapter) OnMessage(h MessageHandler) { a.handler = h }

// SetPersona registers how replies signed by persona.Name look on Slack.
func (a *SlackAdapter) SetPersona(persona *Persona) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.personas[persona.Name] = persona
}

// Connect starts the Socket Mode event loop in a background goroutine.
func (a *SlackAdapter) Connect(ctx context.Context) error {
	go a.handleEvents(ctx)
	go func() {
		if err := a.socket.RunContext(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("slack socket mode error", zap.Error(err))
		}
	}()
	a.mu.Lock()
	a.connectedAt = time.Now()
	a.mu.Unlock()
	a.logger.Info("slack adapter connected via socket mode", zap.String("tenant", a.tenant))
	return nil
}

func (a *SlackAdapter) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.socket.Events:
			if !ok {
				return
			}
			a.processEvent(evt)
		}
	}
}

func (a *SlackAdapter) processEvent(evt socketmode.Event) {
	if evt.Type != socketmode.EventTypeEventsAPI {
		return
	}
	eventsAPI, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}
	if evt.Request != nil {
		a.socket.Ack(*evt.Request)
	}
	if eventsAPI.Type != slackevents.CallbackEvent {
		return
	}
	if inner, ok := eventsAPI.InnerEvent.Data.(*slackevents.MessageEvent); ok {
		a.handleSlackMessage(inner)
	}
}

func (a *SlackAdapter) handleSlackMessage(ev *slackevents.MessageEvent) {
	// Ignore bot messages and edits to avoid loops
	if a.handler == nil || ev.BotID != "" || ev.SubType != "" {
		return
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return
	}

	threadTS := ev.ThreadTimeStamp
	if threadTS == "" {
		threadTS = ev.TimeStamp
	}

	a.handler(&InboundMessage{
		Platform:  "slack",
		ChannelID: ev.Channel,
		UserID:    ev.User,
		UserName:  ev.User,
		Content:   text,
		Timestamp: time.Now(),
		ReplyTo:   threadTS,
		Tenant:    a.tenant,
	})
}

// Send posts a reply to a Slack channel, threaded and signed with the
// persona that answered.
func (a *SlackAdapter) Send(ctx context.Context, msg *OutboundMessage) error {
	opts := []slack.MsgOption{
		slack.MsgOptionText(msg.Content, false),
	}
	if msg.ReplyTo != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ReplyTo))
	}
	opts = append(opts, a.personaOpts(msg.Persona)...)

	_, _, err := a.client.PostMessageContext(ctx, msg.ChannelID, opts...)
	if err != nil {
		a.logger.Error("slack send failed",
			zap.String("channel", msg.ChannelID), zap.Error(err))
		return fmt.Errorf("slack send: %w", err)
	}
	return nil
}

func (a *SlackAdapter) personaOpts(name string) []slack.MsgOption {
	if name == "" {
		return nil
	}
	opts := []slack.MsgOption{slack.MsgOptionUsername(name)}

	a.mu.RLock()
	p, ok := a.personas[name]
	a.mu.RUnlock()
	if !ok {
		return opts
	}
	if p.IconURL != "" {
		opts = append(opts, slack.MsgOptionIconURL(p.IconURL))
	} else if p.Emoji != "" {
		opts = append(opts, slack.MsgOptionIconEmoji(p.Emoji))
	}
	return opts
}

func (a *SlackAdapter) Status() AdapterStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := AdapterStatus{Platform: "slack", Details: "tenant=" + a.tenant}
	if !a.connectedAt.IsZero() {
		t := a.connectedAt
		s.Connected = true
		s.ConnectedAt = &t
	}
	return s
}

// Close is a no-op; the socket context cancellation handles shutdown.
func (a *SlackAdapter) Close() error {
	return nil
}
