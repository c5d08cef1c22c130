package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
	"github.com/carriazoe12/lexia-chatbot/internal/observability"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiGenerator talks to the Gemini API. A fresh client is built per call
// because the API key is a per-session user credential, not a process secret.
type GeminiGenerator struct {
	model string
}

type GeminiOption func(*GeminiGenerator)

func WithGeminiModel(model string) GeminiOption {
	return func(g *GeminiGenerator) {
		g.model = model
	}
}

func NewGeminiGenerator(opts ...GeminiOption) *GeminiGenerator {
	g := &GeminiGenerator{model: defaultGeminiModel}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate implements Generator. Credential and permission failures are
// distinguished from generic backend errors in the returned text.
func (g *GeminiGenerator) Generate(ctx context.Context, history []domain.Message, apiKey string) string {
	if len(history) == 0 {
		return "Error: El historial inicial está vacío, no se puede generar respuesta."
	}
	text, err := g.generate(ctx, history, apiKey)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("gemini generate failed", "error", err)
		upper := strings.ToUpper(err.Error())
		switch {
		case strings.Contains(upper, "API_KEY_INVALID") || strings.Contains(upper, "API KEY NOT VALID"):
			return "Error con Gemini: API Key inválida o no configurada."
		case strings.Contains(upper, "PERMISSION_DENIED"):
			return "Error con Gemini: Permiso denegado."
		default:
			return fmt.Sprintf("Error con Gemini: %v", err)
		}
	}
	return text
}

// geminiRole maps a domain role onto the wire role Gemini expects. Assistant
// turns go back as "model"; everything else is user input.
func geminiRole(r domain.Role) genai.Role {
	if r == domain.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func (g *GeminiGenerator) generate(ctx context.Context, history []domain.Message, apiKey string) (string, error) {
	var contents []*genai.Content
	for _, m := range history {
		contents = append(contents, genai.NewContentFromText(m.Content, geminiRole(m.Role)))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("creating gemini client: %w", err)
	}

	temp := float32(temperature)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(maxOutputTokens),
	}

	res, err := client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", err
	}

	text := res.Text()
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}

var _ Generator = (*GeminiGenerator)(nil)
