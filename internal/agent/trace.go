package agent

import (
	"time"
)

// StepType identifies the kind of trace step.
type StepType string

const (
	StepRequest    StepType = "request"
	StepToolCall   StepType = "tool_call"
	StepToolResult StepType = "tool_result"
	StepResponse   StepType = "response"
)

// Trace records what happened during one agent invocation.
type Trace struct {
	ID             string         `json:"id"`
	Specialization Specialization `json:"specialization"`
	ConversationID string         `json:"conversation_id"`
	Steps          []Step         `json:"steps"`
	StartedAt      time.Time      `json:"started_at"`
	Duration       time.Duration  `json:"duration"`
}

// Step is a single entry in a trace.
type Step struct {
	Type       StepType  `json:"type"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	TokensUsed int       `json:"tokens_used,omitempty"`
}

func (t *Trace) add(typ StepType, content string, tokens int) {
	t.Steps = append(t.Steps, Step{
		Type:       typ,
		Content:    content,
		Timestamp:  time.Now(),
		TokensUsed: tokens,
	})
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
