package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nidhogg/campus-assistant/internal/provider"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const resolverCacheSize = 512

const resolverPrompt = `Eres un asistente que identifica carreras universitarias.
Dada la lista de carreras disponibles (id: nombre) y el texto del usuario,
responde SOLO con un JSON de la forma {"id": <numero>} con el id de la carrera
que mejor coincide. Si ninguna coincide responde {"id": 0}.

Carreras:
%s`

// Resolver maps a free-text program name to a catalog program. Local
// accent and case insensitive matching is tried first; the model is only
// asked when that fails.
type Resolver struct {
	llm    provider.Chatter
	model  string
	cache  *lru.Cache[string, int]
	logger *zap.Logger
}

// NewResolver creates a resolver. llm may be nil, in which case only local
// matching is used.
func NewResolver(llm provider.Chatter, model string, logger *zap.Logger) *Resolver {
	cache, _ := lru.New[string, int](resolverCacheSize)
	return &Resolver{llm: llm, model: model, cache: cache, logger: logger}
}

// Resolve returns the program matching name. ok is false when nothing
// matches; err is set only when the model call fails.
func (r *Resolver) Resolve(ctx context.Context, snap *Snapshot, name string) (Program, bool, error) {
	key := Normalize(name)
	if key == "" || snap == nil {
		return Program{}, false, nil
	}
	programs := snap.Programs()

	if p, ok := matchLocal(programs, key); ok {
		return p, true, nil
	}

	if id, ok := r.cache.Get(key); ok {
		p, found := snap.Program(id)
		return p, found, nil
	}
	if r.llm == nil {
		return Program{}, false, nil
	}

	id, err := r.ask(ctx, programs, name)
	if err != nil {
		return Program{}, false, err
	}
	r.cache.Add(key, id)
	p, found := snap.Program(id)
	if id != 0 && !found {
		r.logger.Warn("resolver returned unknown program id", zap.Int("id", id), zap.String("name", name))
	}
	return p, found, nil
}

func (r *Resolver) ask(ctx context.Context, programs []Program, name string) (int, error) {
	var list strings.Builder
	for _, p := range programs {
		fmt.Fprintf(&list, "%d: %s\n", p.ID, p.Name)
	}
	resp, err := r.llm.Chat(ctx, &provider.ChatRequest{
		Model:       r.model,
		Temperature: 0.1,
		JSONOutput:  true,
		Messages: []provider.Message{
			provider.Text(provider.RoleSystem, fmt.Sprintf(resolverPrompt, list.String())),
			provider.Text(provider.RoleUser, name),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("resolve program %q: %w", name, err)
	}
	var out struct {
		ID int `json:"id"`
	}
	if err := provider.DecodeJSON(resp.Content, &out); err != nil {
		r.logger.Warn("resolver answer not parseable", zap.String("answer", resp.Content), zap.Error(err))
		return 0, nil
	}
	return out.ID, nil
}

// matchLocal prefers an exact normalized name, then a unique program whose
// name contains the query, then the longest program name found in the query.
func matchLocal(programs []Program, key string) (Program, bool) {
	var (
		best     Program
		bestLen  int
		contains []Program
	)
	for _, p := range programs {
		n := Normalize(p.Name)
		if n == "" {
			continue
		}
		if n == key {
			return p, true
		}
		if containsWord(key, n) && len(n) > bestLen {
			best, bestLen = p, len(n)
		}
		if strings.Contains(n, key) {
			contains = append(contains, p)
		}
	}
	if len(contains) == 1 {
		return contains[0], true
	}
	if bestLen > 0 {
		return best, true
	}
	return Program{}, false
}

func containsWord(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

// Normalize lowercases s, strips accents and punctuation and collapses spaces.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
