package window

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nidhogg/campus-assistant/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// turn is ten tokens long.
func turn(role string, i int) provider.Message {
	return provider.Text(role, fmt.Sprintf("%-40s", fmt.Sprintf("turno %d", i)))
}

func history() *Block {
	var msgs []provider.Message
	for i := 0; i < 6; i++ {
		role := provider.RoleUser
		if i%2 == 1 {
			role = provider.RoleAssistant
		}
		msgs = append(msgs, turn(role, i))
	}
	return NewBlock("history", PriorityHistory, msgs...)
}

func smallWindow() *Window {
	return &Window{
		System:      NewBlock("system", PrioritySystem, provider.Text(provider.RoleSystem, "s")),
		History:     history(),
		Task:        NewBlock("task", PriorityTask, provider.Text(provider.RoleUser, "q")),
		ToolResults: NewBlock("tools", PriorityToolResult),
	}
}

func TestFitWithinBudget(t *testing.T) {
	m := NewManager(Config{}, nil, "", zap.NewNop())
	msgs := m.Fit(context.Background(), smallWindow())

	require.Len(t, msgs, 8)
	assert.Equal(t, provider.RoleSystem, msgs[0].Role)
	assert.Equal(t, "q", msgs[7].Content)
}

func TestFitDropsOldestTurns(t *testing.T) {
	m := NewManager(Config{MaxTokens: 100, ReserveRatio: 0.5}, nil, "", zap.NewNop())
	assert.Equal(t, 50, m.Budget())

	msgs := m.Fit(context.Background(), smallWindow())

	require.Len(t, msgs, 6)
	assert.Equal(t, "s", msgs[0].Content)
	assert.Contains(t, msgs[1].Content, "turno 2")
	assert.Equal(t, provider.RoleUser, msgs[1].Role)
	assert.Equal(t, "q", msgs[5].Content)
}

func TestFitSummarizesOldTurns(t *testing.T) {
	var prompt string
	summarizer := provider.ChatterFunc(func(_ context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
		assert.Equal(t, "modelo", req.Model)
		prompt = req.Messages[0].Content
		return &provider.ChatResponse{Content: " quiere estudiar Derecho "}, nil
	})
	m := NewManager(Config{MaxTokens: 100, ReserveRatio: 0.5}, summarizer, "modelo", zap.NewNop())

	msgs := m.Fit(context.Background(), smallWindow())

	require.Len(t, msgs, 7)
	assert.Equal(t, provider.RoleSystem, msgs[1].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, summaryHeading))
	assert.True(t, strings.HasSuffix(msgs[1].Content, "quiere estudiar Derecho"))
	assert.Contains(t, prompt, "turno 0")
	assert.Contains(t, prompt, "turno 1")
	assert.NotContains(t, prompt, "turno 2")
}

func TestFitSummaryFailureDropsTurns(t *testing.T) {
	summarizer := provider.ChatterFunc(func(context.Context, *provider.ChatRequest) (*provider.ChatResponse, error) {
		return nil, errors.New("quota exceeded")
	})
	m := NewManager(Config{MaxTokens: 100, ReserveRatio: 0.5}, summarizer, "", zap.NewNop())

	msgs := m.Fit(context.Background(), smallWindow())
	assert.Len(t, msgs, 6)
}

func TestFitClipsToolResults(t *testing.T) {
	m := NewManager(Config{MaxTokens: 1000, ReserveRatio: 0.3}, nil, "", zap.NewNop())
	w := &Window{
		Task:        NewBlock("task", PriorityTask, provider.Text(provider.RoleUser, "q")),
		ToolResults: NewBlock("tools", PriorityToolResult),
	}
	w.ToolResults.Append(
		provider.Message{Role: provider.RoleAssistant, Content: strings.Repeat("b", 3000)},
		provider.Message{Role: provider.RoleTool, Content: strings.Repeat("á", 4000)},
	)
	assert.Equal(t, 750+2000, w.ToolResults.Tokens)

	msgs := m.Fit(context.Background(), w)

	require.Len(t, msgs, 3)
	assert.Len(t, msgs[1].Content, 3000)
	assert.True(t, strings.HasSuffix(msgs[2].Content, "[recortado]"))
	assert.Less(t, len(msgs[2].Content), 1600)
	assert.True(t, strings.HasPrefix(msgs[2].Content, "áá"))
}
