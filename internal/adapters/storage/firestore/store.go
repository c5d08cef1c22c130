package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

// Store keeps conversations in a top-level collection with their messages in
// a subcollection, so deleting a conversation can take its messages with it.
type Store struct {
	client *firestore.Client
	now    func() time.Time
}

// NewStore creates a Firestore-backed store for the given project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, now: time.Now}, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) conversationsCol() *firestore.CollectionRef {
	return s.client.Collection("conversations")
}

func (s *Store) conversationDoc(id domain.ConversationID) *firestore.DocumentRef {
	return s.conversationsCol().Doc(string(id))
}

func (s *Store) messagesCol(id domain.ConversationID) *firestore.CollectionRef {
	return s.conversationDoc(id).Collection("messages")
}

// ─────────────────────────────────────────
// Firestore types
// ─────────────────────────────────────────

type conversationDoc struct {
	UserID    string    `firestore:"user_id"`
	Title     string    `firestore:"title"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type messageDoc struct {
	UserID    string    `firestore:"user_id"`
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"created_at"`
}

// ─────────────────────────────────────────
// ConversationStore implementation
// ─────────────────────────────────────────

func (s *Store) InsertConversation(ctx context.Context, userID domain.UserID, title string) (*domain.Conversation, error) {
	now := s.now()
	id := domain.ConversationID(uuid.NewString())

	doc := conversationDoc{
		UserID:    string(userID),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.conversationDoc(id).Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("firestore InsertConversation: %w", err)
	}

	return &domain.Conversation{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Store) ListConversations(ctx context.Context, userID domain.UserID) ([]*domain.Conversation, error) {
	q := s.conversationsCol().
		Where("user_id", "==", string(userID)).
		OrderBy("updated_at", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Conversation
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListConversations: %w", err)
		}

		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode conversationDoc: %w", err)
		}

		out = append(out, &domain.Conversation{
			ID:        domain.ConversationID(snap.Ref.ID),
			UserID:    domain.UserID(doc.UserID),
			Title:     doc.Title,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return out, nil
}

func (s *Store) TouchConversation(ctx context.Context, id domain.ConversationID) error {
	_, err := s.conversationDoc(id).Update(ctx, []firestore.Update{
		{Path: "updated_at", Value: s.now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrConversationNotFound
		}
		return fmt.Errorf("firestore TouchConversation: %w", err)
	}
	return nil
}

func (s *Store) RenameConversation(ctx context.Context, id domain.ConversationID, title string) error {
	_, err := s.conversationDoc(id).Update(ctx, []firestore.Update{
		{Path: "title", Value: title},
		{Path: "updated_at", Value: s.now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrConversationNotFound
		}
		return fmt.Errorf("firestore RenameConversation: %w", err)
	}
	return nil
}

// DeleteConversation removes the conversation document and every message in
// its subcollection. Firestore does not cascade on its own.
func (s *Store) DeleteConversation(ctx context.Context, id domain.ConversationID) error {
	iter := s.messagesCol(id).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return fmt.Errorf("firestore DeleteConversation messages: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("firestore delete message: %w", err)
		}
	}

	if _, err := s.conversationDoc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore DeleteConversation: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) InsertMessage(ctx context.Context, userID domain.UserID, convID domain.ConversationID, role domain.Role, content string) error {
	doc := messageDoc{
		UserID:    string(userID),
		Role:      string(role),
		Content:   content,
		CreatedAt: s.now(),
	}

	if _, err := s.messagesCol(convID).Doc(uuid.NewString()).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore InsertMessage: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, convID domain.ConversationID) ([]*domain.Message, error) {
	q := s.messagesCol(convID).OrderBy("created_at", firestore.Asc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListMessages: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, &domain.Message{
			Role:      domain.Role(doc.Role),
			Content:   doc.Content,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}

var (
	_ domain.ConversationStore = (*Store)(nil)
	_ domain.MessageStore      = (*Store)(nil)
)
