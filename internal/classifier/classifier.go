package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/nidhogg/campus-assistant/internal/provider"
	"go.uber.org/zap"
)

const (
	defaultModel       = "gemini-2.0-flash"
	temperature        = 0.1
	resultCacheSize    = 1024
	resultCacheTTL     = 10 * time.Minute
	maxClassifierToken = 16
)

const prompt = `Clasifica esta pregunta en UNA categoría:

Categorías:
- ventas: carreras, matriculación, grupos, grupos disponibles, requisitos, malla curricular, precios de carreras
- faq: biblioteca, credenciales, correo, horarios
- soporte_ti: contraseña, credenciales SGA, correo, email
- public: beneficios, quiénes somos, misión, visión, información general de la UBE, contactos, becas, ayuda financiera, link SGA, link página web, plataforma virtual

Responde SOLO con la palabra: ventas, faq, soporte_ti o public`

// Result is the outcome of classifying one message.
type Result struct {
	Category Category
	// Raw is the model output as returned.
	Raw string
}

// Recognized reports whether the output matched a known category.
func (r Result) Recognized() bool { return r.Category != Unrecognized }

// Label is the category name reported to callers: the parsed category, or
// the raw model output when it was not recognized and not blank.
func (r Result) Label() string {
	if r.Recognized() {
		return string(r.Category)
	}
	if raw := strings.TrimSpace(r.Raw); raw != "" {
		return raw
	}
	return Unrecognized.String()
}

// Classifier asks a language model for the category of a message.
type Classifier struct {
	llm    provider.Chatter
	model  string
	cache  *expirable.LRU[string, Result]
	logger *zap.Logger
}

// New creates a classifier. An empty model selects the default.
func New(llm provider.Chatter, model string, logger *zap.Logger) *Classifier {
	if model == "" {
		model = defaultModel
	}
	return &Classifier{
		llm:    llm,
		model:  model,
		cache:  expirable.NewLRU[string, Result](resultCacheSize, nil, resultCacheTTL),
		logger: logger,
	}
}

// Classify performs a single model round trip. Identical recent messages are
// answered from cache.
func (c *Classifier) Classify(ctx context.Context, message string) (Result, error) {
	key := strings.ToLower(strings.Join(strings.Fields(message), " "))
	if r, ok := c.cache.Get(key); ok {
		return r, nil
	}

	resp, err := c.llm.Chat(ctx, &provider.ChatRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   maxClassifierToken,
		Messages: []provider.Message{
			provider.Text(provider.RoleSystem, prompt),
			provider.Text(provider.RoleUser, fmt.Sprintf("Pregunta: %q", message)),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("classify: %w", err)
	}

	cat, ok := ParseCategory(resp.Content)
	result := Result{Category: cat, Raw: resp.Content}
	if !ok {
		c.logger.Warn("classifier output unrecognized", zap.String("raw", resp.Content))
		return result, nil
	}
	c.logger.Debug("message classified", zap.String("category", string(cat)))
	c.cache.Add(key, result)
	return result, nil
}
