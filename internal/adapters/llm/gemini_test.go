package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

func TestGeminiRoleRemap(t *testing.T) {
	require.Equal(t, genai.Role(genai.RoleModel), geminiRole(domain.RoleAssistant))
	require.Equal(t, genai.Role(genai.RoleUser), geminiRole(domain.RoleUser))
	require.Equal(t, genai.Role(genai.RoleUser), geminiRole("system"), "unknown roles fall back to user input")
}

func TestGeminiGenerateEmptyHistory(t *testing.T) {
	g := NewGeminiGenerator()

	out := g.Generate(context.Background(), nil, "AIza-test")
	require.Equal(t, "Error: El historial inicial está vacío, no se puede generar respuesta.", out)
}

func TestGeminiModelOverride(t *testing.T) {
	g := NewGeminiGenerator(WithGeminiModel("gemini-2.0-flash"))
	require.Equal(t, "gemini-2.0-flash", g.model)

	require.Equal(t, defaultGeminiModel, NewGeminiGenerator().model)
}
