package domain

import (
	"context"
	"errors"
)

// ErrConversationNotFound is returned by stores when the referenced
// conversation does not exist.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore defines conversation persistence.
type ConversationStore interface {
	InsertConversation(ctx context.Context, userID UserID, title string) (*Conversation, error)
	// ListConversations returns all conversations for a user,
	// ordered by UpdatedAt descending.
	ListConversations(ctx context.Context, userID UserID) ([]*Conversation, error)
	// TouchConversation refreshes UpdatedAt.
	TouchConversation(ctx context.Context, id ConversationID) error
	// RenameConversation updates the title and refreshes UpdatedAt.
	RenameConversation(ctx context.Context, id ConversationID, title string) error
	// DeleteConversation removes the conversation and all of its messages.
	DeleteConversation(ctx context.Context, id ConversationID) error
}

// MessageStore defines message persistence.
type MessageStore interface {
	InsertMessage(ctx context.Context, userID UserID, convID ConversationID, role Role, content string) error
	// ListMessages returns all messages of a conversation,
	// ordered by CreatedAt ascending.
	ListMessages(ctx context.Context, convID ConversationID) ([]*Message, error)
}

// Identity defines how the application talks to the remote auth provider.
type Identity interface {
	SignUp(ctx context.Context, email, password string) (*User, error)
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignOut(ctx context.Context) error
	// CurrentUser returns (nil, nil) when there is no active session.
	CurrentUser(ctx context.Context) (*User, error)
}

// Replier produces one assistant reply for an already trimmed history.
// Failures never propagate: they come back as a displayable, persistable
// text describing the problem.
type Replier interface {
	Reply(ctx context.Context, history []Message, apiKey string, provider Provider) string
}
