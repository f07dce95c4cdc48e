package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/campus-assistant/internal/agent"
	"github.com/nidhogg/campus-assistant/internal/api"
	"github.com/nidhogg/campus-assistant/internal/catalog"
	"github.com/nidhogg/campus-assistant/internal/classifier"
	"github.com/nidhogg/campus-assistant/internal/command"
	"github.com/nidhogg/campus-assistant/internal/config"
	"github.com/nidhogg/campus-assistant/internal/events"
	"github.com/nidhogg/campus-assistant/internal/gateway"
	"github.com/nidhogg/campus-assistant/internal/identity"
	"github.com/nidhogg/campus-assistant/internal/memory"
	"github.com/nidhogg/campus-assistant/internal/provider"
	msgrouter "github.com/nidhogg/campus-assistant/internal/router"
	pgstore "github.com/nidhogg/campus-assistant/internal/store"
	"github.com/nidhogg/campus-assistant/internal/window"
	"go.uber.org/zap"
)

const (
	defaultPort          = 8080
	defaultTimeout       = 30 * time.Second
	defaultDetailTTL     = 10 * time.Minute
	defaultMigrationsDir = "migrations"
	shutdownGrace        = 15 * time.Second
)

// personaEmoji is how each agent signs its replies on Slack.
var personaEmoji = map[agent.Specialization]string{
	agent.Sales:     ":mortar_board:",
	agent.FAQ:       ":books:",
	agent.ITSupport: ":computer:",
	agent.Public:    ":school:",
	agent.Chat:      ":wave:",
}

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/assistant.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	if l, err := newLogger(cfg.Server.LogLevel); err == nil {
		logger = l
	}
	defer logger.Sync()
	logger.Info("Starting campus assistant", zap.String("config", cfgPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// LLM providers
	llm := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		p, err := provider.New(ctx, provider.ProviderConfig{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey,
			Models: pc.Models, Extra: pc.Extra,
			Timeout: pc.Timeout.Or(90 * time.Second),
		})
		if err != nil {
			logger.Warn("provider unavailable", zap.String("id", pc.ID), zap.Error(err))
			continue
		}
		llm.Register(p)
	}
	if len(llm.ListProviders()) == 0 {
		logger.Fatal("no LLM provider configured")
	}
	for consumer, id := range cfg.Models.Bindings {
		llm.Bind(consumer, id)
	}
	llm.SetFallbacks(cfg.Models.Fallbacks)

	// Optional Redis: conversation events and catalog mirror
	var (
		bus       *events.Bus
		publisher events.Publisher
		mirror    catalog.SnapshotMirror
	)
	if cfg.Database.Redis.URL != "" {
		b, err := events.Dial(ctx, cfg.Database.Redis.URL, logger)
		if err != nil {
			logger.Warn("Redis unavailable, running without events", zap.Error(err))
		} else {
			bus = b
			publisher = b
			mirror = catalog.NewRedisMirror(b.Client())
		}
	}

	// Catalog
	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.PaymentBaseURL, cfg.Catalog.Timeout.Or(defaultTimeout))
	catalogCache := catalog.NewCache(catalogClient, catalog.CacheOptions{
		TTL:    cfg.Catalog.TTL.Or(time.Hour),
		Mirror: mirror,
	}, logger)
	details, err := catalog.NewDetails(catalogClient, cfg.Catalog.DetailTTL.Or(defaultDetailTTL))
	if err != nil {
		logger.Fatal("failed to create detail cache", zap.Error(err))
	}
	defer details.Close()
	resolver := catalog.NewResolver(llm.Chatter("resolver"), cfg.Models.Resolver, logger)

	// Identity
	accounts := identity.NewClient(cfg.Identity.APIURL, cfg.Identity.Timeout.Or(defaultTimeout))
	verifier := identity.NewVerifier(accounts, identity.VerifierOptions{
		SupabaseURL: cfg.Identity.SupabaseURL,
		JWTSecret:   cfg.Identity.JWTSecret,
	}, logger)

	// Agents
	mem := memory.NewStore(memory.Options{
		TTL:         cfg.Memory.TTL.Or(memory.DefaultTTL),
		MaxSessions: cfg.Memory.MaxSessions,
	}, logger)
	var prompts map[agent.Specialization]string
	if cfg.PromptsDir != "" {
		prompts, err = agent.LoadPrompts(cfg.PromptsDir)
		if err != nil {
			logger.Fatal("failed to load prompts", zap.String("dir", cfg.PromptsDir), zap.Error(err))
		}
		logger.Info("Loaded prompt overrides", zap.Int("count", len(prompts)))
	}
	ctxWindow := window.NewManager(window.Config{MaxTokens: cfg.Memory.ContextTokens},
		llm.Chatter("summarizer"), cfg.Models.Agents, logger)
	factory := agent.NewFactory(agent.Deps{
		LLM:         llm,
		Model:       cfg.Models.Agents,
		Memory:      mem,
		Catalog:     catalogCache,
		Details:     details,
		Resolver:    resolver,
		Enrollments: catalogClient,
		Accounts:    accounts,
		Prompts:     prompts,
		Window:      ctxWindow,
	}, logger)

	// Routing
	tenants := make([]*msgrouter.Tenant, 0, len(cfg.Tenants))
	for _, tc := range cfg.Tenants {
		specs := make([]agent.Specialization, len(tc.Specializations))
		for i, s := range tc.Specializations {
			specs[i] = agent.Specialization(s)
		}
		t := msgrouter.NewTenant(tc.Name, specs, agent.Specialization(tc.Default))
		t.Description, t.URL = tc.Description, tc.URL
		tenants = append(tenants, t)
	}
	defaultTenant := cfg.Tenants[0].Name
	cls := classifier.New(llm.Chatter("classifier"), cfg.Models.Classifier, logger)
	router := msgrouter.New(cls, factory, tenants, msgrouter.Options{
		InvokeTimeout: cfg.Server.InvokeTimeout.Or(90 * time.Second),
	}, logger)

	// Optional PostgreSQL transcripts
	var pgStore *pgstore.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := pgstore.New(ctx, cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without history", zap.Error(pgErr))
		} else {
			dir := cfg.Database.MigrationsDir
			if dir == "" {
				dir = defaultMigrationsDir
			}
			if mErr := ps.Migrate(ctx, dir); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			for _, t := range tenants {
				if err := ps.SaveTenant(ctx, pgstore.Tenant{Name: t.Name, Description: t.Description, URL: t.URL}); err != nil {
					logger.Warn("failed to save tenant", zap.String("tenant", t.Name), zap.Error(err))
				}
			}
			pgStore = ps
		}
	}

	// Gateway and message router
	gw := gateway.NewGateway(logger)
	commands := command.NewRegistry()
	opts := msgrouter.MessageOptions{Events: publisher, Commands: commands, Gateway: gw}
	if pgStore != nil {
		opts.Transcripts = pgStore
	}
	messages := msgrouter.NewMessageRouter(router, mem, opts, logger)
	command.RegisterBuiltins(commands, messages.Resetter(), messages)

	// Wire the handler BEFORE registering adapters (Register captures it)
	gw.SetHandler(messages.HandleInbound)
	registerAdapters(gw, cfg.Gateway, defaultTenant, logger)
	if err := gw.ConnectAll(ctx); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	// HTTP API
	apiOpts := api.Options{
		Auth:          identity.Authenticate(verifier, logger),
		Stats:         mem,
		Gateway:       gw,
		Tenants:       router.Tenants(),
		DefaultTenant: defaultTenant,
	}
	if pgStore != nil {
		apiOpts.History = pgStore
	}
	handler := api.NewHandler(messages, apiOpts, logger)

	port := cfg.Server.Port
	if port == 0 {
		port = defaultPort
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Campus assistant listening", zap.Int("port", port), zap.String("default_tenant", defaultTenant))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down campus assistant...")
	router.Shutdown()
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownGrace)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	gw.Close()
	if bus != nil {
		bus.Close()
	}
	if pgStore != nil {
		pgStore.Close()
	}
}

func registerAdapters(gw *gateway.Gateway, cfg config.GatewayConfig, defaultTenant string, logger *zap.Logger) {
	tenantOr := func(t string) string {
		if t == "" {
			return defaultTenant
		}
		return t
	}

	if cfg.Slack.Enabled && cfg.Slack.BotToken != "" {
		slack := gateway.NewSlackAdapter(cfg.Slack.BotToken, cfg.Slack.AppToken, tenantOr(cfg.Slack.Tenant), logger)
		for _, s := range agent.Specializations {
			slack.SetPersona(&gateway.Persona{Name: agent.PersonaFor(s).Name, Emoji: personaEmoji[s]})
		}
		gw.Register(slack)
	}

	if cfg.Discord.Enabled && cfg.Discord.BotToken != "" {
		gw.Register(gateway.NewDiscordAdapter(cfg.Discord.BotToken, tenantOr(cfg.Discord.Tenant), logger))
	}
}

// newLogger builds a production logger at level, or a development logger
// for "debug".
func newLogger(level string) (*zap.Logger, error) {
	if level == "" || level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}
