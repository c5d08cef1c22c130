package session

import "errors"

// Validation errors are raised before any network call and never mutate
// session state.
var (
	ErrNoAPIKey             = errors.New("Por favor, introduce tu API Key para chatear.")
	ErrNoActiveConversation = errors.New("Por favor, selecciona o crea una conversación para chatear.")
	ErrUnknownProvider      = errors.New("Proveedor LLM no soportado.")
	ErrNotSignedIn          = errors.New("No hay una sesión activa.")
)
