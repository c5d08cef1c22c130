package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

type conversationRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageRow struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (r conversationRow) toDomain() *domain.Conversation {
	return &domain.Conversation{
		ID:        domain.ConversationID(r.ID),
		UserID:    domain.UserID(r.UserID),
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (c *Client) restURL(table string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// ─────────────────────────────────────────────
// ConversationStore implementation
// ─────────────────────────────────────────────

func (c *Client) InsertConversation(ctx context.Context, userID domain.UserID, title string) (*domain.Conversation, error) {
	body, err := marshalBody(map[string]string{
		"user_id": string(userID),
		"title":   title,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restURL("conversations", nil), body)
	if err != nil {
		return nil, fmt.Errorf("supabase: create insert-conversation request: %w", err)
	}

	raw, err := c.doJSON(req, "return=representation")
	if err != nil {
		return nil, fmt.Errorf("supabase: insert conversation: %w", err)
	}

	var rows []conversationRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("supabase: decode inserted conversation: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("supabase: insert returned no representation")
	}
	return rows[0].toDomain(), nil
}

func (c *Client) ListConversations(ctx context.Context, userID domain.UserID) ([]*domain.Conversation, error) {
	query := url.Values{
		"select":  {"id,title,created_at,updated_at"},
		"user_id": {"eq." + string(userID)},
		"order":   {"updated_at.desc"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL("conversations", query), nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: create list-conversations request: %w", err)
	}

	raw, err := c.doJSON(req, "")
	if err != nil {
		return nil, fmt.Errorf("supabase: list conversations: %w", err)
	}

	var rows []conversationRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("supabase: decode conversations: %w", err)
	}

	out := make([]*domain.Conversation, 0, len(rows))
	for _, r := range rows {
		conv := r.toDomain()
		conv.UserID = userID
		out = append(out, conv)
	}
	return out, nil
}

func (c *Client) patchConversation(ctx context.Context, id domain.ConversationID, fields map[string]any) error {
	body, err := marshalBody(fields)
	if err != nil {
		return err
	}

	query := url.Values{"id": {"eq." + string(id)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.restURL("conversations", query), body)
	if err != nil {
		return fmt.Errorf("supabase: create patch-conversation request: %w", err)
	}

	if _, err := c.doJSON(req, "return=minimal"); err != nil {
		return fmt.Errorf("supabase: patch conversation: %w", err)
	}
	return nil
}

func (c *Client) TouchConversation(ctx context.Context, id domain.ConversationID) error {
	return c.patchConversation(ctx, id, map[string]any{
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (c *Client) RenameConversation(ctx context.Context, id domain.ConversationID, title string) error {
	return c.patchConversation(ctx, id, map[string]any{
		"title":      title,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// DeleteConversation removes the row; the messages go with it through the
// table's ON DELETE CASCADE foreign key.
func (c *Client) DeleteConversation(ctx context.Context, id domain.ConversationID) error {
	query := url.Values{"id": {"eq." + string(id)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.restURL("conversations", query), nil)
	if err != nil {
		return fmt.Errorf("supabase: create delete-conversation request: %w", err)
	}

	if _, err := c.doJSON(req, "return=minimal"); err != nil {
		return fmt.Errorf("supabase: delete conversation: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────────

func (c *Client) InsertMessage(ctx context.Context, userID domain.UserID, convID domain.ConversationID, role domain.Role, content string) error {
	body, err := marshalBody(map[string]string{
		"user_id":         string(userID),
		"conversation_id": string(convID),
		"role":            string(role),
		"content":         content,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restURL("messages", nil), body)
	if err != nil {
		return fmt.Errorf("supabase: create insert-message request: %w", err)
	}

	if _, err := c.doJSON(req, "return=minimal"); err != nil {
		return fmt.Errorf("supabase: insert message: %w", err)
	}
	return nil
}

func (c *Client) ListMessages(ctx context.Context, convID domain.ConversationID) ([]*domain.Message, error) {
	query := url.Values{
		"select":          {"role,content,created_at"},
		"conversation_id": {"eq." + string(convID)},
		"order":           {"created_at.asc"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL("messages", query), nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: create list-messages request: %w", err)
	}

	raw, err := c.doJSON(req, "")
	if err != nil {
		return nil, fmt.Errorf("supabase: list messages: %w", err)
	}

	var rows []messageRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("supabase: decode messages: %w", err)
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
	_ domain.ConversationStore = (*Client)(nil)
	_ domain.MessageStore      = (*Client)(nil)
)
