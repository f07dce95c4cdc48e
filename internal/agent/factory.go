package agent

import (
	"context"

	"github.com/nidhogg/campus-assistant/internal/catalog"
	"github.com/nidhogg/campus-assistant/internal/identity"
	"github.com/nidhogg/campus-assistant/internal/memory"
	"github.com/nidhogg/campus-assistant/internal/provider"
	"github.com/nidhogg/campus-assistant/internal/window"
	"go.uber.org/zap"
)

// LLM hands out a completion client per consumer. *provider.Router
// implements it.
type LLM interface {
	Chatter(consumer string) provider.Chatter
}

// Snapshots serves the cached catalog.
type Snapshots interface {
	Get(ctx context.Context) (*catalog.Snapshot, error)
}

// ProgramDetails serves per-program upstream data.
type ProgramDetails interface {
	Program(ctx context.Context, id int) (*catalog.ProgramDetail, error)
	Groups(ctx context.Context, programID int) ([]catalog.Group, error)
	Curriculum(ctx context.Context, programID int) ([]catalog.CurriculumLevel, error)
}

// ProgramResolver maps free text to a catalog program.
type ProgramResolver interface {
	Resolve(ctx context.Context, snap *catalog.Snapshot, name string) (catalog.Program, bool, error)
}

// EnrollmentSubmitter sends complete enrollments upstream.
type EnrollmentSubmitter interface {
	SubmitEnrollment(ctx context.Context, e catalog.Enrollment) (*catalog.EnrollmentReceipt, error)
}

// Accounts performs calls on behalf of an authenticated student.
type Accounts interface {
	Profile(ctx context.Context, token string) (*identity.User, error)
	RecoverPassword(ctx context.Context, token, phone string) (*identity.Recovery, error)
}

// Deps are the collaborators shared by every agent.
type Deps struct {
	LLM         LLM
	Model       string
	Memory      *memory.Store
	Catalog     Snapshots
	Details     ProgramDetails
	Resolver    ProgramResolver
	Enrollments EnrollmentSubmitter
	Accounts    Accounts
	// Prompts overrides built-in system prompts per specialization.
	Prompts map[Specialization]string
	// Window keeps prompts within the model's context. Without one, old
	// history is dropped at the default budget.
	Window *window.Manager
}

// Factory builds agents on demand. It holds no per-conversation state of
// its own; memory lives in the store and credentials live only in the
// tools of the agent built for one invocation.
type Factory struct {
	deps   Deps
	logger *zap.Logger
}

// NewFactory creates an agent factory.
func NewFactory(deps Deps, logger *zap.Logger) *Factory {
	if deps.Window == nil {
		deps.Window = window.NewManager(window.DefaultConfig(), nil, "", logger)
	}
	return &Factory{deps: deps, logger: logger}
}

// Get builds an agent of the given specialization bound to the memory of
// conversationID. auth is the caller's bearer token; it is captured by the
// tools that need it and discarded with the agent. Get never fails.
func (f *Factory) Get(spec Specialization, conversationID, auth string) *Agent {
	if !Known(spec) {
		f.logger.Warn("unknown specialization, using chat", zap.String("specialization", string(spec)))
		spec = Chat
	}
	persona := PersonaFor(spec)
	if p, ok := f.deps.Prompts[spec]; ok && p != "" {
		persona.SystemPrompt = p
	}

	session := f.deps.Memory.GetOrCreate(conversationID)
	tools := NewToolRegistry()
	tk := &toolkit{deps: f.deps, session: session, logger: f.logger}

	switch spec {
	case Sales:
		tk.registerSales(tools)
	case FAQ:
		tk.registerFAQ(tools)
	case ITSupport:
		tk.registerITSupport(tools, identity.BareToken(auth))
	case Public:
		tk.registerPublic(tools)
	default:
		tk.registerChat(tools)
	}

	return &Agent{
		spec:    spec,
		persona: persona,
		llm:     f.deps.LLM.Chatter(string(spec)),
		model:   f.deps.Model,
		tools:   tools,
		session: session,
		window:  f.deps.Window,
		logger:  f.logger,
	}
}

// toolkit carries what tool handlers need for one agent.
type toolkit struct {
	deps    Deps
	session *memory.Session
	logger  *zap.Logger
}
