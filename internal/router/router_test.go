package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/campus-assistant/internal/agent"
	"github.com/nidhogg/campus-assistant/internal/catalog"
	"github.com/nidhogg/campus-assistant/internal/classifier"
	"github.com/nidhogg/campus-assistant/internal/command"
	"github.com/nidhogg/campus-assistant/internal/events"
	"github.com/nidhogg/campus-assistant/internal/gateway"
	"github.com/nidhogg/campus-assistant/internal/memory"
	"github.com/nidhogg/campus-assistant/internal/provider"
	"github.com/nidhogg/campus-assistant/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubClassifier struct {
	result classifier.Result
	err    error
}

func (s stubClassifier) Classify(context.Context, string) (classifier.Result, error) {
	return s.result, s.err
}

func category(c classifier.Category) stubClassifier {
	return stubClassifier{result: classifier.Result{Category: c, Raw: string(c)}}
}

// agentLLM replays scripted responses. Once the script is exhausted it
// relays the latest tool output, like a model that just reports what its
// tools said.
type agentLLM struct {
	mu        sync.Mutex
	script    []*provider.ChatResponse
	err       error
	consumers []string
	chat      func(ctx context.Context) // hook run on every call
}

func (l *agentLLM) Chatter(consumer string) provider.Chatter {
	l.mu.Lock()
	l.consumers = append(l.consumers, consumer)
	l.mu.Unlock()
	return l
}

func (l *agentLLM) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	if l.chat != nil {
		l.chat(ctx)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if len(l.script) > 0 {
		r := l.script[0]
		l.script = l.script[1:]
		return r, nil
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role == provider.RoleTool {
		return &provider.ChatResponse{Content: last.Content, FinishReason: provider.FinishStop}, nil
	}
	return &provider.ChatResponse{Content: "¡Hola! ¿En qué te ayudo?", FinishReason: provider.FinishStop}, nil
}

func (l *agentLLM) lastConsumer() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.consumers) == 0 {
		return ""
	}
	return l.consumers[len(l.consumers)-1]
}

type stubCatalog struct{}

func (stubCatalog) Get(context.Context) (*catalog.Snapshot, error) {
	return &catalog.Snapshot{Levels: []catalog.Level{
		{Name: "Grado", Areas: []catalog.Area{
			{Name: "Ciencias Sociales", Programs: []catalog.Program{{ID: 1, Name: "Derecho"}, {ID: 2, Name: "Psicología Clínica"}}},
		}},
	}}, nil
}

type stubDetails struct{}

func (stubDetails) Program(_ context.Context, id int) (*catalog.ProgramDetail, error) {
	return &catalog.ProgramDetail{Program: catalog.Program{ID: id, Name: "Derecho"}}, nil
}

func (stubDetails) Groups(context.Context, int) ([]catalog.Group, error) {
	return []catalog.Group{{Name: "A1", Session: "Nocturna", Mode: "Presencial"}}, nil
}

func (stubDetails) Curriculum(context.Context, int) ([]catalog.CurriculumLevel, error) {
	return nil, nil
}

type harness struct {
	llm    *agentLLM
	memory *memory.Store
	router *Router
}

func newHarness(t *testing.T, c Classifier, tenants ...*Tenant) *harness {
	t.Helper()
	if len(tenants) == 0 {
		tenants = []*Tenant{NewTenant("ube", []agent.Specialization{agent.Sales, agent.FAQ, agent.ITSupport, agent.Public}, agent.Chat)}
	}
	h := &harness{
		llm:    &agentLLM{},
		memory: memory.NewStore(memory.Options{}, zap.NewNop()),
	}
	factory := agent.NewFactory(agent.Deps{
		LLM:      h.llm,
		Memory:   h.memory,
		Catalog:  stubCatalog{},
		Details:  stubDetails{},
		Resolver: catalog.NewResolver(nil, "", zap.NewNop()),
	}, zap.NewNop())
	h.router = New(c, factory, tenants, Options{InvokeTimeout: 5 * time.Second}, zap.NewNop())
	return h
}

func TestTenantMapping(t *testing.T) {
	tenant := NewTenant("instituto", []agent.Specialization{agent.Sales, agent.FAQ, "desconocido"}, "")
	assert.Equal(t, agent.Chat, tenant.Default())
	assert.Equal(t, []agent.Specialization{agent.FAQ, agent.Sales}, tenant.Specializations())

	spec, ok := tenant.resolve(classifier.Result{Category: classifier.Sales})
	assert.True(t, ok)
	assert.Equal(t, agent.Sales, spec)

	spec, ok = tenant.resolve(classifier.Result{Category: classifier.ITSupport})
	assert.False(t, ok)
	assert.Equal(t, agent.Chat, spec)
}

func TestRouteFallsBackWhenCategoryNotEnabled(t *testing.T) {
	tenant := NewTenant("instituto", []agent.Specialization{agent.Sales, agent.Public}, agent.Chat)
	h := newHarness(t, category(classifier.ITSupport), tenant)

	reply := h.router.Route(context.Background(), Request{
		ConversationID: "c1", Message: "olvidé mi contraseña", Tenant: "instituto",
	})

	assert.Equal(t, "soporte_ti", reply.Category)
	assert.Equal(t, agent.Chat, reply.Specialization)
	assert.Equal(t, string(agent.Chat), h.llm.lastConsumer())
	assert.NotEmpty(t, reply.Text)
}

func TestRouteUnrecognizedUsesDefault(t *testing.T) {
	h := newHarness(t, stubClassifier{result: classifier.Result{Category: classifier.Unrecognized, Raw: " deportes "}})

	reply := h.router.Route(context.Background(), Request{ConversationID: "c1", Message: "¿hay fútbol?", Tenant: "ube"})

	assert.Equal(t, "deportes", reply.Category)
	assert.Equal(t, agent.Chat, reply.Specialization)
}

func TestRouteUnknownTenantStillAnswers(t *testing.T) {
	h := newHarness(t, category(classifier.Sales))

	reply := h.router.Route(context.Background(), Request{ConversationID: "c1", Message: "hola", Tenant: "otra"})

	assert.Equal(t, "ventas", reply.Category)
	assert.Equal(t, agent.Chat, reply.Specialization)
}

func TestRouteFailures(t *testing.T) {
	tests := []struct {
		name     string
		classErr error
		agentErr error
		wantText string
	}{
		{"agent quota", nil, errors.New("googleapi: Error 429: Resource has been exhausted (e.g. check quota)"), rateLimitText},
		{"classifier rate limit", &provider.APIError{Provider: "openai", StatusCode: 429, Message: "slow down"}, nil, rateLimitText},
		{"resource exhausted", nil, errors.New("RESOURCE_EXHAUSTED"), rateLimitText},
		{"interpreter shutdown", nil, errors.New("cannot schedule new futures after interpreter shutdown"), retryText},
		{"reload", errors.New("model reload in progress"), nil, retryText},
		{"cancelled", nil, fmt.Errorf("call: %w", context.Canceled), retryText},
		{"unexpected", nil, errors.New("boom"), apologyText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := category(classifier.FAQ)
			c.err = tt.classErr
			h := newHarness(t, c)
			h.llm.err = tt.agentErr

			reply := h.router.Route(context.Background(), Request{ConversationID: "c1", Message: "hola", Tenant: "ube"})

			assert.Equal(t, CategoryError, reply.Category)
			assert.Equal(t, tt.wantText, reply.Text)
		})
	}
}

func TestRouteAfterShutdown(t *testing.T) {
	h := newHarness(t, category(classifier.FAQ))
	h.router.Shutdown()

	reply := h.router.Route(context.Background(), Request{ConversationID: "c1", Message: "hola", Tenant: "ube"})

	assert.Equal(t, CategoryError, reply.Category)
	assert.Equal(t, retryText, reply.Text)
	assert.Empty(t, h.llm.consumers, "no agent should run after shutdown")
}

func TestRouteIgnoresCallerCancellation(t *testing.T) {
	h := newHarness(t, category(classifier.Public))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply := h.router.Route(ctx, Request{ConversationID: "c1", Message: "hola", Tenant: "ube"})

	assert.Equal(t, "public", reply.Category)
	assert.Equal(t, 2, h.memory.GetOrCreate("c1").Len())
}

func TestRouteSerializesPerConversation(t *testing.T) {
	h := newHarness(t, category(classifier.FAQ))
	var inFlight, maxInFlight atomic.Int32
	h.llm.chat = func(context.Context) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.router.Route(context.Background(), Request{ConversationID: "same", Message: fmt.Sprintf("m%d", i), Tenant: "ube"})
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInFlight.Load())
	assert.Equal(t, 8, h.memory.GetOrCreate("same").Len())
	assert.Zero(t, h.router.locks.Len())
}

func TestRouteRunsConversationsInParallel(t *testing.T) {
	h := newHarness(t, category(classifier.FAQ))
	both := make(chan struct{})
	var arrived atomic.Int32
	h.llm.chat = func(context.Context) {
		if arrived.Add(1) == 2 {
			close(both)
		}
		select {
		case <-both:
		case <-time.After(2 * time.Second):
		}
	}

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			h.router.Route(context.Background(), Request{ConversationID: id, Message: "hola", Tenant: "ube"})
		}(id)
	}
	wg.Wait()

	select {
	case <-both:
	default:
		t.Fatal("different conversations did not run concurrently")
	}
}

// --- message router ---

type memTranscripts struct {
	mu            sync.Mutex
	conversations map[string]*store.Conversation
	messages      map[string][]store.Message
	failAppend    bool
}

func newMemTranscripts() *memTranscripts {
	return &memTranscripts{
		conversations: make(map[string]*store.Conversation),
		messages:      make(map[string][]store.Message),
	}
}

func (m *memTranscripts) CreateConversation(_ context.Context, c *store.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.CreatedAt = time.Now()
	cp := *c
	m.conversations[c.ID] = &cp
	return nil
}

func (m *memTranscripts) Conversation(_ context.Context, id string) (*store.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memTranscripts) AppendMessage(_ context.Context, msg *store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend {
		return errors.New("database is down")
	}
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], *msg)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type messageHarness struct {
	*harness
	transcripts *memTranscripts
	events      *recordingPublisher
	mr          *MessageRouter
}

func newMessageHarness(t *testing.T, c Classifier) *messageHarness {
	t.Helper()
	h := newHarness(t, c)
	mh := &messageHarness{
		harness:     h,
		transcripts: newMemTranscripts(),
		events:      &recordingPublisher{},
	}
	mh.mr = NewMessageRouter(h.router, h.memory, MessageOptions{
		Transcripts: mh.transcripts,
		Events:      mh.events,
	}, zap.NewNop())
	return mh
}

func TestEnrollmentEndToEnd(t *testing.T) {
	cls := classifier.New(provider.ChatterFunc(func(context.Context, *provider.ChatRequest) (*provider.ChatResponse, error) {
		return &provider.ChatResponse{Content: "ventas\n", FinishReason: provider.FinishStop}, nil
	}), "", zap.NewNop())
	mh := newMessageHarness(t, cls)
	mh.llm.script = []*provider.ChatResponse{{
		ToolCalls:    []provider.ToolCall{{ID: "call-1", Name: "start_enrollment", Arguments: `{"program":"Derecho"}`}},
		FinishReason: provider.FinishToolCalls,
	}}

	out, err := mh.mr.Handle(context.Background(), Inbound{UserID: "u1", Tenant: "ube", Message: "Quiero matricularme en Derecho"})
	require.NoError(t, err)

	assert.Equal(t, "ventas", out.Category)
	assert.Equal(t, agent.Sales, out.Specialization)
	assert.Equal(t, 1, out.ActiveSessions)
	_, err = uuid.Parse(out.ConversationID)
	require.NoError(t, err)

	filled := strings.Index(out.Reply, "carrera: Derecho")
	pending := strings.Index(out.Reply, "Datos pendientes: grupo")
	require.NotEqual(t, -1, filled, out.Reply)
	require.NotEqual(t, -1, pending, out.Reply)
	assert.Less(t, filled, pending)

	conv, err := mh.transcripts.Conversation(context.Background(), out.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "u1", conv.UserID)
	assert.Equal(t, "Quiero matricularme en Derecho", conv.Title)

	msgs := mh.transcripts.messages[out.ConversationID]
	require.Len(t, msgs, 2)
	assert.False(t, msgs[0].FromAgent)
	assert.True(t, msgs[1].FromAgent)
	assert.Equal(t, "ventas", msgs[1].Category)
	assert.Equal(t, []string{events.TypeMessageRouted}, mh.events.types())
}

func TestHandleValidation(t *testing.T) {
	mh := newMessageHarness(t, category(classifier.Public))
	ctx := context.Background()

	_, err := mh.mr.Handle(ctx, Inbound{UserID: "u1", Tenant: "ube", Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = mh.mr.Handle(ctx, Inbound{UserID: "u1", Tenant: "otra", Message: "hola"})
	assert.ErrorIs(t, err, ErrUnknownTenant)

	_, err = mh.mr.Handle(ctx, Inbound{ConversationID: "no-es-uuid", UserID: "u1", Tenant: "ube", Message: "hola"})
	assert.ErrorIs(t, err, ErrInvalidConversationID)

	_, err = mh.mr.Handle(ctx, Inbound{ConversationID: uuid.NewString(), UserID: "u1", Tenant: "ube", Message: "hola"})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	out, err := mh.mr.Handle(ctx, Inbound{UserID: "u1", Tenant: "ube", Message: "hola"})
	require.NoError(t, err)
	_, err = mh.mr.Handle(ctx, Inbound{ConversationID: out.ConversationID, UserID: "u2", Tenant: "ube", Message: "hola"})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	again, err := mh.mr.Handle(ctx, Inbound{ConversationID: out.ConversationID, UserID: "u1", Tenant: "ube", Message: "gracias"})
	require.NoError(t, err)
	assert.Equal(t, out.ConversationID, again.ConversationID)
	assert.Len(t, mh.transcripts.messages[out.ConversationID], 4)
}

func TestHandleSurvivesPersistenceFailure(t *testing.T) {
	mh := newMessageHarness(t, category(classifier.Public))
	mh.transcripts.failAppend = true

	out, err := mh.mr.Handle(context.Background(), Inbound{UserID: "u1", Tenant: "ube", Message: "hola"})

	require.NoError(t, err)
	assert.Equal(t, "public", out.Category)
	assert.NotEmpty(t, out.Reply)
}

func TestHandleEnsureCreatesConversation(t *testing.T) {
	mh := newMessageHarness(t, category(classifier.Public))
	id := uuid.NewString()

	out, err := mh.mr.Handle(context.Background(), Inbound{ConversationID: id, UserID: "slack:U1", Tenant: "ube", Message: "hola", Ensure: true})

	require.NoError(t, err)
	assert.Equal(t, id, out.ConversationID)
	_, err = mh.transcripts.Conversation(context.Background(), id)
	assert.NoError(t, err)
}

func TestCleanupDecrementsSessions(t *testing.T) {
	mh := newMessageHarness(t, category(classifier.Public))
	ctx := context.Background()

	first, err := mh.mr.Handle(ctx, Inbound{UserID: "u1", Tenant: "ube", Message: "hola"})
	require.NoError(t, err)
	second, err := mh.mr.Handle(ctx, Inbound{UserID: "u1", Tenant: "ube", Message: "otra consulta"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.ActiveSessions)

	_, _, err = mh.mr.Cleanup(ctx, "u2", first.ConversationID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	_, _, err = mh.mr.Cleanup(ctx, "u1", "123")
	assert.ErrorIs(t, err, ErrInvalidConversationID)

	cleared, active, err := mh.mr.Cleanup(ctx, "u1", first.ConversationID)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, mh.memory.Size())

	cleared, active, err = mh.mr.Cleanup(ctx, "u1", first.ConversationID)
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Equal(t, 1, active)
	assert.Contains(t, mh.events.types(), events.TypeMemoryCleared)
}

func TestCleanupWithoutTranscripts(t *testing.T) {
	h := newHarness(t, category(classifier.Public))
	mr := NewMessageRouter(h.router, h.memory, MessageOptions{}, zap.NewNop())
	ctx := context.Background()

	out, err := mr.Handle(ctx, Inbound{UserID: "u1", Tenant: "ube", Message: "hola"})
	require.NoError(t, err)

	// memory is per user when ownership cannot be checked
	cleared, active, err := mr.Cleanup(ctx, "u2", out.ConversationID)
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Equal(t, 1, active)

	cleared, active, err = mr.Cleanup(ctx, "u1", out.ConversationID)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Zero(t, active)
}

func TestHandleWithoutTranscriptsKeepsUsersApart(t *testing.T) {
	h := newHarness(t, category(classifier.Public))
	mr := NewMessageRouter(h.router, h.memory, MessageOptions{}, zap.NewNop())
	ctx := context.Background()

	out, err := mr.Handle(ctx, Inbound{UserID: "u1", Tenant: "ube", Message: "hola"})
	require.NoError(t, err)
	_, err = mr.Handle(ctx, Inbound{ConversationID: out.ConversationID, UserID: "u2", Tenant: "ube", Message: "hola"})
	require.NoError(t, err)

	own, ok := h.memory.Peek("u1/" + out.ConversationID)
	require.True(t, ok)
	assert.Equal(t, 2, own.Len())
	other, ok := h.memory.Peek("u2/" + out.ConversationID)
	require.True(t, ok)
	assert.Equal(t, 2, other.Len())
}

func TestHandleKeepsTranscriptPaired(t *testing.T) {
	mh := newMessageHarness(t, category(classifier.FAQ))
	ctx := context.Background()
	out, err := mh.mr.Handle(ctx, Inbound{UserID: "u1", Tenant: "ube", Message: "hola"})
	require.NoError(t, err)

	mh.llm.chat = func(context.Context) { time.Sleep(30 * time.Millisecond) }
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := mh.mr.Handle(ctx, Inbound{ConversationID: out.ConversationID, UserID: "u1", Tenant: "ube", Message: fmt.Sprintf("pregunta %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	mh.transcripts.mu.Lock()
	msgs := append([]store.Message(nil), mh.transcripts.messages[out.ConversationID]...)
	mh.transcripts.mu.Unlock()
	require.Len(t, msgs, 8)
	for i, m := range msgs {
		assert.Equal(t, i%2 == 1, m.FromAgent, "message %d", i)
	}
	assert.Zero(t, mh.router.locks.Len())
}

// --- chat channels ---

type channelAdapter struct {
	mu      sync.Mutex
	handler gateway.MessageHandler
	sent    []*gateway.OutboundMessage
}

func (c *channelAdapter) Platform() string { return "slack" }
func (c *channelAdapter) Connect(context.Context) error { return nil }
func (c *channelAdapter) OnMessage(h gateway.MessageHandler) { c.handler = h }
func (c *channelAdapter) Status() gateway.AdapterStatus { return gateway.AdapterStatus{Platform: "slack"} }
func (c *channelAdapter) Close() error { return nil }
func (c *channelAdapter) Send(_ context.Context, m *gateway.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
	return nil
}

func (c *channelAdapter) last() *gateway.OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[len(c.sent)-1]
}

func TestChannelConversationIsStable(t *testing.T) {
	msg := &gateway.InboundMessage{Platform: "slack", ChannelID: "C1", UserID: "U1"}
	a, user := ChannelConversation(msg)
	b, _ := ChannelConversation(msg)
	c, _ := ChannelConversation(&gateway.InboundMessage{Platform: "slack", ChannelID: "C2", UserID: "U1"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "slack:U1", user)
	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestHandleInbound(t *testing.T) {
	h := newHarness(t, category(classifier.FAQ))
	adapter := &channelAdapter{}
	gw := gateway.NewGateway(zap.NewNop())
	gw.Register(adapter)
	commands := command.NewRegistry()
	mr := NewMessageRouter(h.router, h.memory, MessageOptions{
		Transcripts: newMemTranscripts(),
		Commands:    commands,
		Gateway:     gw,
	}, zap.NewNop())
	command.RegisterBuiltins(commands, mr.Resetter(), mr)
	gw.SetHandler(mr.HandleInbound)

	adapter.handler(&gateway.InboundMessage{Platform: "slack", ChannelID: "C1", UserID: "U1", Content: "¿Horario de biblioteca?", ReplyTo: "171.1", Tenant: "ube"})
	reply := adapter.last()
	assert.Equal(t, agent.PersonaFor(agent.FAQ).Name, reply.Persona)
	assert.Equal(t, "171.1", reply.ReplyTo)
	assert.Equal(t, "C1", reply.ChannelID)
	assert.Equal(t, 1, h.memory.Size())

	adapter.handler(&gateway.InboundMessage{Platform: "slack", ChannelID: "C1", UserID: "U1", Content: "/estado", Tenant: "ube"})
	assert.Contains(t, adapter.last().Content, "Conversaciones activas: 1")
	assert.Contains(t, adapter.last().Content, "slack")

	adapter.handler(&gateway.InboundMessage{Platform: "slack", ChannelID: "C1", UserID: "U1", Content: "/reiniciar", Tenant: "ube"})
	assert.Contains(t, adapter.last().Content, "empecemos de nuevo")
	assert.Zero(t, h.memory.Size())

	adapter.handler(&gateway.InboundMessage{Platform: "slack", ChannelID: "C9", UserID: "U9", Content: "/reiniciar", Tenant: "ube"})
	assert.Contains(t, adapter.last().Content, "nada que olvidar")

	adapter.handler(&gateway.InboundMessage{Platform: "slack", ChannelID: "C1", UserID: "U1", Content: "hola", Tenant: "otra"})
	assert.Equal(t, apologyText, adapter.last().Content)
}
