package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

func TestRouterUnsupportedProvider(t *testing.T) {
	r := NewEmptyRouter()

	out := r.Reply(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "Hola"}}, "sk-abc", "claude")
	require.Equal(t, "Proveedor LLM 'claude' no soportado.", out)
}

func TestRouterDispatchesToRegisteredGenerator(t *testing.T) {
	r := NewEmptyRouter()
	r.Register(domain.ProviderOpenAI, NewMockGenerator())

	history := []domain.Message{{Role: domain.RoleUser, Content: "¿Qué es el usufructo?"}}
	out := r.Reply(context.Background(), history, "sk-abc", domain.ProviderOpenAI)
	require.Contains(t, out, "¿Qué es el usufructo?")

	// the other provider stays unsupported until registered
	out = r.Reply(context.Background(), history, "sk-abc", domain.ProviderGemini)
	require.Equal(t, "Proveedor LLM 'gemini' no soportado.", out)
}

func TestNewRouterRegistersBothBackends(t *testing.T) {
	r := NewRouter()
	require.Contains(t, r.generators, domain.ProviderOpenAI)
	require.Contains(t, r.generators, domain.ProviderGemini)
}
