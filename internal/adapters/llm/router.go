package llm

import (
	"context"
	"fmt"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
	"github.com/carriazoe12/lexia-chatbot/internal/observability"
)

// Generator is one LLM backend. Implementations convert their own failures
// into user-facing text: Generate never fails past this point, so the result
// is always displayable and persistable as an assistant message.
type Generator interface {
	Generate(ctx context.Context, history []domain.Message, apiKey string) string
}

// Router dispatches a reply request to the generator registered for the
// selected provider. Adding a backend means registering one Generator,
// not editing the orchestration logic.
type Router struct {
	generators map[domain.Provider]Generator
}

// NewRouter returns a router with the two production backends registered.
func NewRouter() *Router {
	r := &Router{generators: make(map[domain.Provider]Generator)}
	r.Register(domain.ProviderOpenAI, NewOpenAIGenerator())
	r.Register(domain.ProviderGemini, NewGeminiGenerator())
	return r
}

// NewEmptyRouter returns a router with no backends, for callers that wire
// their own (mock mode, tests).
func NewEmptyRouter() *Router {
	return &Router{generators: make(map[domain.Provider]Generator)}
}

func (r *Router) Register(p domain.Provider, g Generator) {
	r.generators[p] = g
}

// Reply implements domain.Replier.
func (r *Router) Reply(ctx context.Context, history []domain.Message, apiKey string, provider domain.Provider) string {
	g, ok := r.generators[provider]
	if !ok {
		observability.LoggerFromContext(ctx).Warn("unsupported llm provider", "provider", provider)
		return fmt.Sprintf("Proveedor LLM '%s' no soportado.", provider)
	}
	return g.Generate(ctx, history, apiKey)
}
