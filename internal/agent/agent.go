// Package agent builds the specialized assistants that answer user messages.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/campus-assistant/internal/memory"
	"github.com/nidhogg/campus-assistant/internal/provider"
	"github.com/nidhogg/campus-assistant/internal/window"
	"go.uber.org/zap"
)

const (
	maxToolRounds = 5
	historyTurns  = 40
	maxTokens     = 2048
	temperature   = 0.1
)

// ErrEmptyReply is returned when the model produced no text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// Agent is bound to one conversation for the duration of one invocation.
// It must not be kept across requests.
type Agent struct {
	spec    Specialization
	persona Persona
	llm     provider.Chatter
	model   string
	tools   *ToolRegistry
	session *memory.Session
	window  *window.Manager
	logger  *zap.Logger
}

func (a *Agent) Specialization() Specialization { return a.spec }
func (a *Agent) Persona() Persona               { return a.persona }
func (a *Agent) Tools() *ToolRegistry           { return a.tools }

// Result holds the output of an agent invocation.
type Result struct {
	Content string         `json:"content"`
	Trace   *Trace         `json:"trace"`
	Usage   provider.Usage `json:"usage"`
}

// Invoke answers message using the conversation history and the agent's
// tools. The user turn and the reply are added to memory only when the
// invocation succeeds.
func (a *Agent) Invoke(ctx context.Context, message string) (*Result, error) {
	trace := &Trace{
		ID:             uuid.New().String(),
		Specialization: a.spec,
		ConversationID: a.session.ID(),
		StartedAt:      time.Now(),
	}

	w := a.buildWindow(message)
	req := &provider.ChatRequest{
		Model:       a.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Tools:       a.tools.Definitions(),
	}

	var (
		resp  *provider.ChatResponse
		usage provider.Usage
	)
	for round := 0; round <= maxToolRounds; round++ {
		if round == maxToolRounds {
			// out of tool rounds: force a text answer
			req.Tools = nil
		}
		req.Messages = a.window.Fit(ctx, w)
		trace.add(StepRequest, fmt.Sprintf("round %d", round+1), 0)

		var err error
		resp, err = a.llm.Chat(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s agent: %w", a.spec, err)
		}
		usage.PromptTokens += resp.Usage.PromptTokens
		usage.CompletionTokens += resp.Usage.CompletionTokens
		usage.TotalTokens += resp.Usage.TotalTokens

		if len(resp.ToolCalls) == 0 || resp.FinishReason != provider.FinishToolCalls {
			break
		}

		trace.add(StepToolCall, fmt.Sprintf("calling %d tool(s)", len(resp.ToolCalls)), resp.Usage.TotalTokens)
		w.ToolResults.Append(provider.Message{
			Role:      provider.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result, toolErr := a.tools.Execute(ctx, tc.Name, tc.Arguments)
			if toolErr != nil {
				a.logger.Warn("tool failed",
					zap.String("tool", tc.Name),
					zap.String("conversation", a.session.ID()),
					zap.Error(toolErr))
				result = errorResult(toolErr.Error())
			}
			trace.add(StepToolResult, fmt.Sprintf("%s → %s", tc.Name, truncate(result, 200)), 0)
			w.ToolResults.Append(provider.Message{
				Role:       provider.RoleTool,
				Name:       tc.Name,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}

		a.logger.Debug("tool round complete",
			zap.String("specialization", string(a.spec)),
			zap.Int("round", round+1),
			zap.Int("tool_calls", len(resp.ToolCalls)))
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return nil, fmt.Errorf("%s agent: %w", a.spec, ErrEmptyReply)
	}
	trace.add(StepResponse, truncate(content, 200), resp.Usage.TotalTokens)
	trace.Duration = time.Since(trace.StartedAt)

	now := time.Now()
	a.session.Append(
		memory.Turn{Role: provider.RoleUser, Text: message, At: now},
		memory.Turn{Role: provider.RoleAssistant, Text: content, At: now},
	)

	return &Result{Content: content, Trace: trace, Usage: usage}, nil
}

func (a *Agent) buildWindow(userMsg string) *window.Window {
	history := a.session.Recent(historyTurns)
	turns := make([]provider.Message, 0, len(history))
	for _, t := range history {
		role := provider.RoleUser
		if t.Role == provider.RoleAssistant {
			role = provider.RoleAssistant
		}
		turns = append(turns, provider.Text(role, t.Text))
	}
	return &window.Window{
		System:      window.NewBlock("system", window.PrioritySystem, provider.Text(provider.RoleSystem, a.persona.SystemPrompt)),
		History:     window.NewBlock("history", window.PriorityHistory, turns...),
		Task:        window.NewBlock("task", window.PriorityTask, provider.Text(provider.RoleUser, userMsg)),
		ToolResults: window.NewBlock("tools", window.PriorityToolResult),
	}
}
