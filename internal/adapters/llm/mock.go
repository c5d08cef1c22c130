package llm

import (
	"context"
	"fmt"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

// MockGenerator answers without calling any backend. Useful for local
// development and tests.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) Generate(_ context.Context, history []domain.Message, _ string) string {
	if len(history) == 0 {
		return "Hola, soy LexIA. ¿En qué consulta jurídica puedo ayudarte?"
	}
	last := history[len(history)-1]
	return fmt.Sprintf("He recibido tu consulta: %q. Esta es una respuesta simulada de LexIA.", last.Content)
}

var _ Generator = (*MockGenerator)(nil)
