package app

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vakya-ai/vakya/internal/config"
	"github.com/vakya-ai/vakya/internal/domains/conversation"
	"github.com/vakya-ai/vakya/internal/handlers/agent"
	"github.com/vakya-ai/vakya/internal/handlers/websocket"
	"github.com/vakya-ai/vakya/internal/server"
	"github.com/vakya-ai/vakya/pkg/Logger"
	"github.com/vakya-ai/vakya/pkg/assistant"
	"github.com/vakya-ai/vakya/pkg/stt/assembly"
	"github.com/vakya-ai/vakya/pkg/tts/murf"
)

// App wires configuration, the session store and both request surfaces
// into one runnable unit.
type App struct {
	Config *config.Settings
	Logger *Logger.Logger
	Store  conversation.Store
	Engine *gin.Engine
}

// New builds the application. Missing credentials are warned about, not
// fatal: websocket clients may supply their own keys per connection.
func New(cfg *config.Settings, logger *Logger.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := a.setupStore(); err != nil {
		return nil, err
	}
	a.warnMissingKeys()

	responder, err := assistant.NewResponder(assistant.Options{
		Provider:    cfg.LLM.Provider,
		GeminiKey:   cfg.Keys.Gemini,
		GeminiModel: cfg.LLM.GeminiModel,
		OpenAIKey:   cfg.LLM.OpenAIKey,
		OpenAIModel: cfg.LLM.OpenAIModel,
		OllamaURLs:  cfg.LLM.OllamaURLs,
		OllamaModel: cfg.LLM.OllamaModel,
	}, logger)
	if err != nil {
		// The websocket path builds its own responder from per-connection
		// keys; only the REST chat path degrades.
		logger.Warnf("language model backend unavailable at boot: %v", err)
		responder = nil
	}

	voiceHandler := websocket.NewHandler(cfg, a.Store, logger)
	agentHandler := agent.NewHandler(
		cfg,
		a.Store,
		assembly.NewTranscriber(cfg.Keys.AssemblyAI, "", logger),
		responder,
		murf.NewClient(cfg.Keys.Murf, "", logger),
		logger,
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.Default()
	server.InitializeRoutes(engine, server.NewDependencies(cfg, voiceHandler, agentHandler, logger))
	a.Engine = engine

	return a, nil
}

// setupStore picks the history backend: redis when an address is
// configured, otherwise in-process memory.
func (a *App) setupStore() error {
	if a.Config.Redis.Addr == "" {
		a.Store = conversation.NewMemoryStore()
		a.Logger.Info("using in-memory session store")
		return nil
	}

	ttl := time.Duration(a.Config.Redis.TTLMins) * time.Minute
	store, err := conversation.NewRedisStore(
		a.Config.Redis.Addr,
		a.Config.Redis.Password,
		a.Config.Redis.DB,
		ttl,
		a.Logger,
	)
	if err != nil {
		return err
	}
	a.Store = store
	a.Logger.Infof("using redis session store at %s", a.Config.Redis.Addr)
	return nil
}

func (a *App) warnMissingKeys() {
	if a.Config.Keys.AssemblyAI == "" {
		a.Logger.Warn("AssemblyAI key not configured; voice clients must supply one")
	}
	if a.Config.Keys.Murf == "" {
		a.Logger.Warn("Murf key not configured; voice clients must supply one")
	}
	if a.Config.Keys.Gemini == "" && (a.Config.LLM.Provider == "" || a.Config.LLM.Provider == "gemini") {
		a.Logger.Warn("Gemini key not configured; voice clients must supply one")
	}
}
