package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

// Conversation is the GORM model for the conversations table.
type Conversation struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is the GORM model for the messages table.
type Message struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ConversationID string `gorm:"index"`
	UserID         string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// Store persists conversations and messages in a local SQLite database. It
// serves the same ports as the remote backends, for setups without one.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open creates (or opens) the SQLite database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: open %s: %w", path, err)
	}

	if err := db.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		return nil, fmt.Errorf("gormstore: migrate: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) InsertConversation(ctx context.Context, userID domain.UserID, title string) (*domain.Conversation, error) {
	now := s.now()
	row := Conversation{
		ID:        uuid.NewString(),
		UserID:    string(userID),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("gormstore: insert conversation: %w", err)
	}

	return &domain.Conversation{
		ID:        domain.ConversationID(row.ID),
		UserID:    userID,
		Title:     row.Title,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *Store) ListConversations(ctx context.Context, userID domain.UserID) ([]*domain.Conversation, error) {
	var rows []Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", string(userID)).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gormstore: list conversations: %w", err)
	}

	out := make([]*domain.Conversation, 0, len(rows))
	for _, r := range rows {
		out = append(out, &domain.Conversation{
			ID:        domain.ConversationID(r.ID),
			UserID:    domain.UserID(r.UserID),
			Title:     r.Title,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return out, nil
}

func (s *Store) updateConversation(ctx context.Context, id domain.ConversationID, fields map[string]any) error {
	res := s.db.WithContext(ctx).
		Model(&Conversation{}).
		Where("id = ?", string(id)).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("gormstore: update conversation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (s *Store) TouchConversation(ctx context.Context, id domain.ConversationID) error {
	return s.updateConversation(ctx, id, map[string]any{"updated_at": s.now()})
}

func (s *Store) RenameConversation(ctx context.Context, id domain.ConversationID, title string) error {
	return s.updateConversation(ctx, id, map[string]any{"title": title, "updated_at": s.now()})
}

// DeleteConversation removes the conversation and its messages in one
// transaction, mirroring the cascade the remote store's foreign key gives us.
func (s *Store) DeleteConversation(ctx context.Context, id domain.ConversationID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", string(id)).Delete(&Conversation{})
		if res.Error != nil {
			return fmt.Errorf("gormstore: delete conversation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrConversationNotFound
		}
		if err := tx.Where("conversation_id = ?", string(id)).Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("gormstore: delete messages: %w", err)
		}
		return nil
	})
}

func (s *Store) InsertMessage(ctx context.Context, userID domain.UserID, convID domain.ConversationID, role domain.Role, content string) error {
	row := Message{
		ConversationID: string(convID),
		UserID:         string(userID),
		Role:           string(role),
		Content:        content,
		CreatedAt:      s.now(),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("gormstore: insert message: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, convID domain.ConversationID) ([]*domain.Message, error) {
	var rows []Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", string(convID)).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gormstore: list messages: %w", err)
	}

	out := make([]*domain.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, &domain.Message{
			Role:      domain.Role(r.Role),
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

var (
	_ domain.ConversationStore = (*Store)(nil)
	_ domain.MessageStore      = (*Store)(nil)
)
