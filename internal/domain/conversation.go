package domain

// Conversation is one independent chat thread owned by a user.
type Conversation struct {
	ID        ConversationID
	UserID    UserID
	Title     string
	CreatedAt Timestamp
	UpdatedAt Timestamp
}

// Message is a single turn inside a conversation. Messages are immutable
// once created and ordered by CreatedAt ascending within their conversation.
type Message struct {
	Role      Role
	Content   string
	CreatedAt Timestamp
}

// User is the opaque identity handle returned by the auth provider.
type User struct {
	ID    UserID
	Email string
}
