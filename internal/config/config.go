package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Providers []ProviderConfig `json:"providers"`
	Models    ModelsConfig     `json:"models"`
	Catalog   CatalogConfig    `json:"catalog"`
	Identity  IdentityConfig   `json:"identity"`
	Memory    MemoryConfig     `json:"memory"`
	Tenants   []TenantConfig   `json:"tenants"`
	Gateway   GatewayConfig    `json:"gateway"`
	Database  DatabaseConfig   `json:"database"`

	// PromptsDir holds optional <specialization>.md system prompt overrides.
	PromptsDir string `json:"prompts_dir,omitempty"`
}

type ServerConfig struct {
	Port          int      `json:"port"`
	LogLevel      string   `json:"log_level"`
	InvokeTimeout Duration `json:"invoke_timeout"`
}

type ProviderConfig struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"` // gemini|openai
	Name     string            `json:"name"`
	Endpoint string            `json:"endpoint"`
	APIKey   string            `json:"api_key"`
	Models   []string          `json:"models,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
	Timeout  Duration          `json:"timeout,omitempty"`
}

// ModelsConfig selects the model used by each LLM consumer.
type ModelsConfig struct {
	Classifier string            `json:"classifier"`
	Resolver   string            `json:"resolver"`
	Agents     string            `json:"agents"`
	Bindings   map[string]string `json:"bindings,omitempty"`  // specialization -> provider ID
	Fallbacks  []string          `json:"fallbacks,omitempty"` // provider IDs tried after the primary
}

type CatalogConfig struct {
	BaseURL        string   `json:"base_url"`
	TTL            Duration `json:"ttl"`
	Timeout        Duration `json:"timeout"`
	DetailTTL      Duration `json:"detail_ttl"`
	PaymentBaseURL string   `json:"payment_base_url"`
}

type IdentityConfig struct {
	APIURL      string   `json:"api_url"`
	SupabaseURL string   `json:"supabase_url"`
	JWTSecret   string   `json:"jwt_secret"`
	Timeout     Duration `json:"timeout"`
}

type MemoryConfig struct {
	TTL         Duration `json:"ttl"`
	MaxSessions int      `json:"max_sessions"`
	// ContextTokens is the agents' model context size; older history is
	// summarized to stay within it.
	ContextTokens int `json:"context_tokens,omitempty"`
}

// TenantConfig describes one provider organization and the specializations
// its users can reach.
type TenantConfig struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	URL             string   `json:"url"`
	Specializations []string `json:"specializations"`
	Default         string   `json:"default"`
}

type GatewayConfig struct {
	Slack   SlackGatewayConfig   `json:"slack"`
	Discord DiscordGatewayConfig `json:"discord"`
}

type SlackGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	AppToken string `json:"app_token"`
	Tenant   string `json:"tenant"`
}

type DiscordGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	Tenant   string `json:"tenant"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig `json:"postgres"`
	Redis         RedisConfig    `json:"redis"`
	MigrationsDir string         `json:"migrations_dir"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

// Duration is a time.Duration that unmarshals from strings like "1h" or "30s".
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Or returns d, or def when d is unset.
func (d Duration) Or(def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return time.Duration(d)
}

// Tenant returns the tenant with the given name.
func (c *Config) Tenant(name string) (TenantConfig, bool) {
	for _, t := range c.Tenants {
		if t.Name == name {
			return t, true
		}
	}
	return TenantConfig{}, false
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse resolves ${VAR} references in data and decodes it. name is only used
// in error messages.
func Parse(data []byte, name string) (*Config, error) {
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		if v := os.Getenv(parts[1]); v != "" {
			return v
		}
		return parts[2]
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	if len(cfg.Tenants) == 0 {
		return nil, fmt.Errorf("parse config %s: at least one tenant is required", name)
	}
	return &cfg, nil
}
