package window

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nidhogg/campus-assistant/internal/provider"
	"go.uber.org/zap"
)

const (
	maxToolResult  = 1500
	summaryTokens  = 400
	summaryHeading = "[Resumen de la conversación anterior]"
)

// Manager fits windows into the configured budget.
type Manager struct {
	config     Config
	summarizer provider.Chatter
	model      string
	logger     *zap.Logger
}

// NewManager creates a Manager. summarizer may be nil, in which case old
// history is dropped instead of summarized.
func NewManager(cfg Config, summarizer provider.Chatter, model string, logger *zap.Logger) *Manager {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	if cfg.ReserveRatio <= 0 || cfg.ReserveRatio >= 1 {
		cfg.ReserveRatio = DefaultConfig().ReserveRatio
	}
	return &Manager{
		config:     cfg,
		summarizer: summarizer,
		model:      model,
		logger:     logger,
	}
}

// Budget returns the tokens available for the prompt.
func (m *Manager) Budget() int {
	return int(float64(m.config.MaxTokens) * (1 - m.config.ReserveRatio))
}

// Fit shrinks w until it fits the budget and returns its messages in
// prompt order. Fixed blocks are never touched, so the result can still
// exceed the budget when they alone do.
func (m *Manager) Fit(ctx context.Context, w *Window) []provider.Message {
	blocks := []*Block{w.History, w.ToolResults}
	total := 0
	for _, b := range []*Block{w.System, w.History, w.Task, w.ToolResults} {
		if b != nil {
			total += b.Tokens
		}
	}

	budget := m.Budget()
	if total > budget {
		m.logger.Info("prompt exceeds budget, shrinking",
			zap.Int("total", total),
			zap.Int("budget", budget))
		for _, b := range blocks {
			if b == nil || b.Fixed || total <= budget {
				continue
			}
			total -= m.shrink(ctx, b, total-budget)
		}
	}

	var msgs []provider.Message
	for _, b := range []*Block{w.System, w.History, w.Task, w.ToolResults} {
		if b != nil {
			msgs = append(msgs, b.Messages...)
		}
	}
	return msgs
}

// shrink reduces b and returns the tokens freed.
func (m *Manager) shrink(ctx context.Context, b *Block, overflow int) int {
	before := b.Tokens
	switch b.Priority {
	case PriorityHistory:
		m.shrinkHistory(ctx, b, overflow)
	case PriorityToolResult:
		clipToolResults(b)
	default:
		return 0
	}
	freed := before - b.Tokens
	m.logger.Debug("shrunk block", zap.String("block", b.Name), zap.Int("freed", freed))
	return freed
}

// shrinkHistory replaces the older turns with a summary, or drops them
// when no summary can be produced. Recent turns are kept verbatim.
func (m *Manager) shrinkHistory(ctx context.Context, b *Block, overflow int) {
	cut := 0
	freed := 0
	for cut < len(b.Messages)-1 && freed < overflow {
		freed += estimateTokensStr(b.Messages[cut].Content)
		cut++
	}
	// keep user/assistant pairs together
	if cut%2 == 1 && cut < len(b.Messages) {
		cut++
	}
	if cut == 0 {
		return
	}
	old, kept := b.Messages[:cut], b.Messages[cut:]

	summary, err := m.summarize(ctx, old)
	if err != nil {
		m.logger.Warn("history summary failed, dropping old turns",
			zap.Int("dropped", len(old)), zap.Error(err))
		b.Messages = kept
		b.Tokens = EstimateTokens(b.Messages)
		return
	}

	msg := provider.Text(provider.RoleSystem, summaryHeading+"\n"+summary)
	b.Messages = append([]provider.Message{msg}, kept...)
	b.Tokens = EstimateTokens(b.Messages)
}

func (m *Manager) summarize(ctx context.Context, msgs []provider.Message) (string, error) {
	if m.summarizer == nil {
		return "", fmt.Errorf("no summarizer configured")
	}

	var transcript strings.Builder
	for _, msg := range msgs {
		fmt.Fprintf(&transcript, "[%s]: %s\n", msg.Role, msg.Content)
	}
	resp, err := m.summarizer.Chat(ctx, &provider.ChatRequest{
		Model: m.model,
		Messages: []provider.Message{
			provider.Text(provider.RoleUser,
				"Resume la siguiente conversación en pocas líneas. Conserva nombres, "+
					"carreras, datos de matrícula y cualquier pedido pendiente del usuario:\n\n"+
					transcript.String()),
		},
		MaxTokens: summaryTokens,
	})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("empty summary")
	}
	return summary, nil
}

// clipToolResults truncates long tool outputs.
func clipToolResults(b *Block) {
	for i, msg := range b.Messages {
		if msg.Role == provider.RoleTool && len(msg.Content) > maxToolResult {
			cut := maxToolResult
			for cut > 0 && !utf8.RuneStart(msg.Content[cut]) {
				cut--
			}
			b.Messages[i].Content = msg.Content[:cut] + "\n...[recortado]"
		}
	}
	b.Tokens = EstimateTokens(b.Messages)
}

// EstimateTokens estimates the tokens of msgs.
func EstimateTokens(msgs []provider.Message) int {
	total := 0
	for _, m := range msgs {
		total += estimateTokensStr(m.Content)
	}
	return total
}

// roughly four bytes per token for Spanish text
func estimateTokensStr(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}
