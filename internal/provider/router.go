package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Router holds the configured LLM providers and picks one per consumer.
// A consumer is any component issuing completions: the classifier, the
// program resolver or an agent specialization.
type Router struct {
	providers map[string]Provider
	bindings  map[string]string // consumer -> providerID
	fallbacks []string          // provider IDs tried after the primary
	defaults  string
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRouter creates a new provider router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		providers: make(map[string]Provider),
		bindings:  make(map[string]string),
		logger:    logger,
	}
}

// New builds a provider from its configuration.
func New(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case "gemini":
		return NewGeminiProvider(ctx, cfg)
	case "openai":
		return NewOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

// Register adds a provider. The first registered provider becomes the default.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
	if r.defaults == "" {
		r.defaults = p.ID()
	}
	r.logger.Info("registered provider", zap.String("id", p.ID()), zap.String("name", p.Name()))
}

// SetDefault sets the default provider.
func (r *Router) SetDefault(providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = providerID
}

// DefaultID returns the current default provider ID.
func (r *Router) DefaultID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

// Bind associates a consumer with a specific provider.
func (r *Router) Bind(consumer, providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[consumer] = providerID
}

// SetFallbacks configures the providers tried when the primary fails.
func (r *Router) SetFallbacks(providerIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = providerIDs
}

// Route sends a chat request through the provider bound to consumer.
// Rate-limit errors are returned immediately: a fallback would hit the
// same quota in the common single-account setup and hide the condition.
func (r *Router) Route(ctx context.Context, consumer string, req *ChatRequest) (*ChatResponse, error) {
	r.mu.RLock()
	primary := r.getProvider(consumer)
	fallbacks := r.fallbacks
	r.mu.RUnlock()

	if primary == nil {
		return nil, fmt.Errorf("no provider available for %s", consumer)
	}

	resp, err := primary.Chat(ctx, req)
	if err == nil {
		return resp, nil
	}
	if IsRateLimited(err) || ctx.Err() != nil {
		return nil, err
	}
	r.logger.Warn("primary provider failed, trying fallbacks",
		zap.String("consumer", consumer), zap.String("provider", primary.ID()), zap.Error(err))

	for _, fbID := range fallbacks {
		if fbID == primary.ID() {
			continue
		}
		r.mu.RLock()
		fb, ok := r.providers[fbID]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		resp, err = fb.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		r.logger.Warn("fallback provider failed", zap.String("provider", fbID), zap.Error(err))
	}

	return nil, fmt.Errorf("all providers failed for %s: %w", consumer, err)
}

// Chatter binds the router to one consumer so callers only see Chat.
func (r *Router) Chatter(consumer string) Chatter {
	return ChatterFunc(func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		return r.Route(ctx, consumer, req)
	})
}

func (r *Router) getProvider(consumer string) Provider {
	if pid, ok := r.bindings[consumer]; ok {
		if p, ok := r.providers[pid]; ok {
			return p
		}
	}
	if p, ok := r.providers[r.defaults]; ok {
		return p
	}
	return nil
}

// GetProvider returns a provider by ID.
func (r *Router) GetProvider(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// ListProviders returns all registered providers sorted by ID.
func (r *Router) ListProviders() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// Chatter is the narrow completion interface used by the classifier,
// resolver and agents.
type Chatter interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// ChatterFunc adapts a function to Chatter.
type ChatterFunc func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

func (f ChatterFunc) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return f(ctx, req)
}
