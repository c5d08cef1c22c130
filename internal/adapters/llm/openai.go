package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
	"github.com/carriazoe12/lexia-chatbot/internal/observability"
)

const defaultOpenAIModel = "gpt-4.1-nano"

// chatMessage is the wire shape of one entry in the messages array.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the minimal request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatResponse is the minimal response shape returned by the endpoint.
type chatResponse struct {
	Choices []struct {
		Index   int         `json:"index"`
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// OpenAIGenerator talks to an OpenAI-compatible chat completions API.
// The API key is supplied per call because it is a per-session user credential.
type OpenAIGenerator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type OpenAIOption func(*OpenAIGenerator)

func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		g.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithOpenAIModel(model string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		g.model = model
	}
}

func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(g *OpenAIGenerator) {
		g.httpClient = c
	}
}

func NewOpenAIGenerator(opts ...OpenAIOption) *OpenAIGenerator {
	g := &OpenAIGenerator{
		baseURL:    "https://api.openai.com/v1",
		model:      defaultOpenAIModel,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate implements Generator. Any backend failure comes back as a
// descriptive string prefixed with the backend's name.
func (g *OpenAIGenerator) Generate(ctx context.Context, history []domain.Message, apiKey string) string {
	text, err := g.chat(ctx, history, apiKey)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("openai generate failed", "error", err)
		return fmt.Sprintf("Error con OpenAI: %v", err)
	}
	return text
}

func (g *OpenAIGenerator) chat(ctx context.Context, history []domain.Message, apiKey string) (string, error) {
	messages := make([]chatMessage, 0, len(history)+1)
	messages = append(messages, chatMessage{Role: "system", Content: SystemPrompt})
	for _, m := range history {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	temp := float64(temperature)
	body, err := json.Marshal(chatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: &temp,
		MaxTokens:   maxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := g.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return payload.Choices[0].Message.Content, nil
}

var _ Generator = (*OpenAIGenerator)(nil)
