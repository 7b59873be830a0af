// Package chat provides the conversational intake bounded context module.
// This file defines the module that encapsulates all chat setup and route registration.
package chat

import (
	"context"
	"time"

	"presales_backend/internal/chat/engine"
	"presales_backend/internal/chat/handler"
	"presales_backend/internal/chat/ports"
	"presales_backend/internal/chat/service"
	"presales_backend/internal/chat/session"
	"presales_backend/internal/events"
	apphttp "presales_backend/internal/http"
	"presales_backend/platform/ai/moonshot"
	"presales_backend/platform/config"
	"presales_backend/platform/logger"
	"presales_backend/platform/validator"
)

// Module is the chat bounded context module implementing http.Module.
type Module struct {
	handler      *handler.Handler
	orchestrator *service.Orchestrator
}

// NewModule creates and initializes the chat module with all its dependencies.
func NewModule(
	cfg config.EngineConfig,
	sink ports.LeadSink,
	archiver ports.TranscriptArchiver,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) (*Module, error) {
	directives, err := engine.LoadDirectives(cfg.GetDirectivesFile())
	if err != nil {
		return nil, err
	}

	llm := moonshot.NewModel(moonshot.Config{
		APIKey:  cfg.GetMoonshotAPIKey(),
		BaseURL: cfg.GetMoonshotBaseURL(),
		Model:   cfg.GetMoonshotModel(),
	})
	eng := engine.NewLLMEngine(llm, directives, cfg.GetEngineTimeout(), log)

	store := session.NewStore()
	orchestrator := service.NewOrchestrator(store, eng, directives, sink, archiver, bus, log)

	return &Module{
		handler:      handler.New(orchestrator, val),
		orchestrator: orchestrator,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string { return "chat" }

// RegisterRoutes mounts the chat routes on the protected API group.
func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterRoutes(rc.Protected, rc.ChatRateLimiter.RateLimit())
}

// SweepIdleSessions removes sessions idle longer than maxIdle. Exposed for
// the scheduler worker.
func (m *Module) SweepIdleSessions(ctx context.Context, maxIdle time.Duration) int {
	return m.orchestrator.SweepIdleSessions(ctx, maxIdle)
}
