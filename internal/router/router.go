// Package router decides which specialized agent answers a message and
// turns every failure into a reply the user can read.
package router

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/nidhogg/campus-assistant/internal/agent"
	"github.com/nidhogg/campus-assistant/internal/classifier"
	"go.uber.org/zap"
)

const defaultInvokeTimeout = 90 * time.Second

// Classifier labels a message with a category.
type Classifier interface {
	Classify(ctx context.Context, message string) (classifier.Result, error)
}

// Tenant is a provider organization and the agents its users can reach.
type Tenant struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`

	agents   map[classifier.Category]agent.Specialization
	fallback agent.Specialization
}

// NewTenant enables the given specializations for a tenant. Categories
// whose specialization is not enabled go to fallback (chat when empty).
func NewTenant(name string, enabled []agent.Specialization, fallback agent.Specialization) *Tenant {
	if fallback == "" {
		fallback = agent.Chat
	}
	t := &Tenant{
		Name:     name,
		agents:   make(map[classifier.Category]agent.Specialization),
		fallback: fallback,
	}
	for _, s := range enabled {
		if c, ok := classifier.ParseCategory(string(s)); ok {
			t.agents[c] = s
		}
	}
	return t
}

// Specializations returns the enabled specializations, sorted.
func (t *Tenant) Specializations() []agent.Specialization {
	out := make([]agent.Specialization, 0, len(t.agents))
	for _, s := range t.agents {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Default is the specialization used when a category is not enabled.
func (t *Tenant) Default() agent.Specialization { return t.fallback }

// resolve maps a classification to the specialization that answers it.
func (t *Tenant) resolve(r classifier.Result) (agent.Specialization, bool) {
	if !r.Recognized() {
		return t.fallback, false
	}
	if s, ok := t.agents[r.Category]; ok {
		return s, true
	}
	return t.fallback, false
}

// Request is one inbound message to route.
type Request struct {
	ConversationID string
	Message        string
	// Auth is the caller's bearer token, passed through to agents that act
	// on the user's behalf.
	Auth   string
	Tenant string
}

// Reply is the routing outcome. Category is CategoryError when the message
// could not be answered; Text is always set.
type Reply struct {
	Category       string               `json:"category"`
	Text           string               `json:"reply"`
	Specialization agent.Specialization `json:"specialization,omitempty"`
}

// Options configures a Router.
type Options struct {
	// InvokeTimeout bounds one routed message, classification included.
	InvokeTimeout time.Duration
}

// Router classifies messages and hands them to the tenant's agents.
// Messages for the same conversation are processed one at a time.
type Router struct {
	classifier Classifier
	agents     *agent.Factory
	tenants    map[string]*Tenant
	locks      *keyedMutex
	timeout    time.Duration
	closing    atomic.Bool
	logger     *zap.Logger
}

// New creates a router over the given tenants.
func New(c Classifier, agents *agent.Factory, tenants []*Tenant, opts Options, logger *zap.Logger) *Router {
	if opts.InvokeTimeout <= 0 {
		opts.InvokeTimeout = defaultInvokeTimeout
	}
	r := &Router{
		classifier: c,
		agents:     agents,
		tenants:    make(map[string]*Tenant, len(tenants)),
		locks:      newKeyedMutex(),
		timeout:    opts.InvokeTimeout,
		logger:     logger,
	}
	for _, t := range tenants {
		r.tenants[t.Name] = t
	}
	return r
}

// Tenant returns a configured tenant by name.
func (r *Router) Tenant(name string) (*Tenant, bool) {
	t, ok := r.tenants[name]
	return t, ok
}

// Tenants returns every tenant sorted by name.
func (r *Router) Tenants() []*Tenant {
	out := make([]*Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Shutdown makes the router answer new messages with a retry prompt.
// Messages already being processed are not interrupted.
func (r *Router) Shutdown() {
	r.closing.Store(true)
}

// Route answers one message. It never fails: errors are logged and turned
// into a reply with category CategoryError. The caller's cancellation does
// not abort a message already being processed.
func (r *Router) Route(ctx context.Context, req Request) Reply {
	unlock := r.locks.Lock(req.ConversationID)
	defer unlock()
	return r.routeLocked(ctx, req)
}

// routeLocked is Route for callers already holding the conversation lock.
func (r *Router) routeLocked(ctx context.Context, req Request) Reply {
	if r.closing.Load() {
		return r.fail(req, ErrShuttingDown)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	reply, err := r.route(ctx, req)
	if err != nil {
		return r.fail(req, err)
	}
	return reply
}

func (r *Router) route(ctx context.Context, req Request) (Reply, error) {
	result, err := r.classifier.Classify(ctx, req.Message)
	if err != nil {
		return Reply{}, err
	}

	tenant, ok := r.tenants[req.Tenant]
	if !ok {
		r.logger.Warn("unknown tenant, using default agent", zap.String("tenant", req.Tenant))
		tenant = NewTenant(req.Tenant, nil, agent.Chat)
	}

	spec, mapped := tenant.resolve(result)
	switch {
	case !result.Recognized():
		r.logger.Warn("classifier output unrecognized, using default agent",
			zap.String("raw", result.Raw),
			zap.String("tenant", tenant.Name),
			zap.String("specialization", string(spec)))
	case !mapped:
		r.logger.Info("category not enabled for tenant, using default agent",
			zap.String("category", string(result.Category)),
			zap.String("tenant", tenant.Name),
			zap.String("specialization", string(spec)))
	}

	a := r.agents.Get(spec, req.ConversationID, req.Auth)
	res, err := a.Invoke(ctx, req.Message)
	if err != nil {
		return Reply{}, err
	}

	r.logger.Info("message routed",
		zap.String("conversation", req.ConversationID),
		zap.String("tenant", tenant.Name),
		zap.String("category", result.Label()),
		zap.String("specialization", string(spec)),
		zap.Int("tokens", res.Usage.TotalTokens),
		zap.Duration("duration", res.Trace.Duration))

	return Reply{Category: result.Label(), Text: res.Content, Specialization: spec}, nil
}

func (r *Router) fail(req Request, err error) Reply {
	text, expected := failureText(err)
	fields := []zap.Field{
		zap.String("conversation", req.ConversationID),
		zap.String("tenant", req.Tenant),
		zap.Error(err),
	}
	if expected {
		r.logger.Warn("message not answered", fields...)
	} else {
		r.logger.Error("message routing failed", fields...)
	}
	return Reply{Category: CategoryError, Text: text}
}
