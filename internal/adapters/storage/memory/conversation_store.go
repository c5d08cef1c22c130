package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

// ConversationStore is an in-memory domain.ConversationStore. It is NOT
// persistent and is only suitable for development / local mode.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[domain.ConversationID]*domain.Conversation
	messages      *MessageStore
	now           func() time.Time
}

// NewConversationStore creates an in-memory conversation store. The message
// store is needed so DeleteConversation can cascade.
func NewConversationStore(messages *MessageStore) *ConversationStore {
	return &ConversationStore{
		conversations: make(map[domain.ConversationID]*domain.Conversation),
		messages:      messages,
		now:           time.Now,
	}
}

func (s *ConversationStore) InsertConversation(_ context.Context, userID domain.UserID, title string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := &domain.Conversation{
		ID:        domain.ConversationID(uuid.NewString()),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[conv.ID] = conv

	cp := *conv
	return &cp, nil
}

func (s *ConversationStore) ListConversations(_ context.Context, userID domain.UserID) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Conversation
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			cp := *conv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *ConversationStore) TouchConversation(_ context.Context, id domain.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return domain.ErrConversationNotFound
	}
	conv.UpdatedAt = s.now()
	return nil
}

func (s *ConversationStore) RenameConversation(_ context.Context, id domain.ConversationID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return domain.ErrConversationNotFound
	}
	conv.Title = title
	conv.UpdatedAt = s.now()
	return nil
}

func (s *ConversationStore) DeleteConversation(_ context.Context, id domain.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return domain.ErrConversationNotFound
	}
	delete(s.conversations, id)

	// cascade
	if s.messages != nil {
		s.messages.dropConversation(id)
	}
	return nil
}

var _ domain.ConversationStore = (*ConversationStore)(nil)
