package llm

// SystemPrompt is the fixed LexIA persona directive. It is prepended to every
// request ahead of the trimmed history and does not count against the
// context-window cap.
const SystemPrompt = "Eres LexIA, asistente jurídico especializado en Derecho español y europeo. Responde con lenguaje claro y, cuando proceda, menciona la norma o jurisprudencia aplicable."

// Shared decoding parameters for both backends.
const (
	temperature     = 0.4
	maxOutputTokens = 4096
)
