// Package window keeps the messages sent to the model within a token
// budget, shrinking conversation history before anything else.
package window

import "github.com/nidhogg/campus-assistant/internal/provider"

// Priority orders blocks for shrinking. Lower priorities shrink first.
type Priority int

const (
	PriorityHistory    Priority = 1 // shrunk first
	PriorityToolResult Priority = 2
	PriorityTask       Priority = 3 // never shrunk
	PrioritySystem     Priority = 4 // never shrunk
)

// Block is a labeled group of messages.
type Block struct {
	Name     string             `json:"name"`
	Priority Priority           `json:"priority"`
	Messages []provider.Message `json:"messages"`
	Tokens   int                `json:"tokens"`
	Fixed    bool               `json:"fixed"`
}

// NewBlock builds a block and counts its tokens.
func NewBlock(name string, p Priority, msgs ...provider.Message) *Block {
	return &Block{
		Name:     name,
		Priority: p,
		Messages: msgs,
		Tokens:   EstimateTokens(msgs),
		Fixed:    p >= PriorityTask,
	}
}

// Append adds msgs to b.
func (b *Block) Append(msgs ...provider.Message) {
	b.Messages = append(b.Messages, msgs...)
	b.Tokens += EstimateTokens(msgs)
}

// Window is everything sent to the model for one turn, in prompt order:
// system prompt, history, the current user message, then tool exchanges.
type Window struct {
	System      *Block `json:"system"`
	History     *Block `json:"history"`
	Task        *Block `json:"task"`
	ToolResults *Block `json:"tool_results"`
}

type Config struct {
	MaxTokens    int     // model context size
	ReserveRatio float64 // share kept free for the answer
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:    32000,
		ReserveRatio: 0.3,
	}
}
