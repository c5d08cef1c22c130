package memory

import (
	"context"
	"sync"
	"time"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

type storedMessage struct {
	userID  domain.UserID
	message domain.Message
}

// MessageStore is an in-memory domain.MessageStore. Messages are kept in
// insertion order, which equals creation order.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[domain.ConversationID][]storedMessage
	now      func() time.Time
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[domain.ConversationID][]storedMessage),
		now:      time.Now,
	}
}

func (s *MessageStore) InsertMessage(_ context.Context, userID domain.UserID, convID domain.ConversationID, role domain.Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[convID] = append(s.messages[convID], storedMessage{
		userID: userID,
		message: domain.Message{
			Role:      role,
			Content:   content,
			CreatedAt: s.now(),
		},
	})
	return nil
}

func (s *MessageStore) ListMessages(_ context.Context, convID domain.ConversationID) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.messages[convID]
	out := make([]*domain.Message, 0, len(stored))
	for _, sm := range stored {
		m := sm.message
		out = append(out, &m)
	}
	return out, nil
}

// dropConversation removes all messages of a conversation. Called by the
// conversation store on cascade delete.
func (s *MessageStore) dropConversation(convID domain.ConversationID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, convID)
}

// Count reports how many messages a conversation holds. Test helper.
func (s *MessageStore) Count(convID domain.ConversationID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.messages[convID])
}

var _ domain.MessageStore = (*MessageStore)(nil)
