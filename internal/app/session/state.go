package session

import (
	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

const (
	// DefaultConversationTitle is the sentinel a new conversation starts
	// with. The first user message rewrites it (autotitle) while it still
	// holds this value.
	DefaultConversationTitle = "Nueva Conversación"

	// AssistantTitle is shown when no conversation is active.
	AssistantTitle = "LexIA"

	// MaxTitleLength is the autotitle prefix length, in characters.
	MaxTitleLength = 50

	titleEllipsis = "..."

	// MaxContextMessages caps how many buffer entries are sent to the LLM.
	MaxContextMessages = 10
)

// State is the ephemeral per-client session state. It is rebuilt on every
// login/logout; only APIKey and Provider survive the reset.
type State struct {
	User *domain.User

	// Conversations is ordered by UpdatedAt descending.
	Conversations       []*domain.Conversation
	ConversationsLoaded bool

	ActiveConversationID    domain.ConversationID
	ActiveConversationTitle string

	// Messages is the display buffer for the active conversation,
	// ordered by creation time ascending.
	Messages      []domain.Message
	HistoryLoaded bool

	APIKey   string
	Provider domain.Provider
}

// newState builds a fresh chat state preserving the per-client credential
// and provider selection.
func newState(apiKey string, provider domain.Provider) State {
	if provider == "" {
		provider = domain.ProviderOpenAI
	}
	return State{
		ActiveConversationTitle: AssistantTitle,
		APIKey:                  apiKey,
		Provider:                provider,
	}
}

// clearActiveMessages empties the buffer and arms the lazy history fetch.
func (s *State) clearActiveMessages() {
	s.Messages = nil
	s.HistoryLoaded = false
}

// activate makes conv the active conversation with an empty buffer.
func (s *State) activate(conv *domain.Conversation) {
	s.ActiveConversationID = conv.ID
	s.ActiveConversationTitle = conv.Title
	s.clearActiveMessages()
}

// deactivate leaves the session with no active conversation.
func (s *State) deactivate() {
	s.ActiveConversationID = ""
	s.ActiveConversationTitle = AssistantTitle
	s.clearActiveMessages()
}

// conversationByID finds a conversation in the loaded list.
func (s *State) conversationByID(id domain.ConversationID) *domain.Conversation {
	for _, c := range s.Conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// autoTitle derives a conversation title from the first user message:
// the first MaxTitleLength characters, with an ellipsis marker iff the
// message was longer.
func autoTitle(prompt string) string {
	r := []rune(prompt)
	if len(r) <= MaxTitleLength {
		return prompt
	}
	return string(r[:MaxTitleLength]) + titleEllipsis
}

// trimContext keeps only the most recent MaxContextMessages entries in
// original order. Earlier turns stay in the buffer and in persisted history.
func trimContext(msgs []domain.Message) []domain.Message {
	if len(msgs) <= MaxContextMessages {
		return msgs
	}
	return msgs[len(msgs)-MaxContextMessages:]
}
