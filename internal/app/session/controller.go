package session

import (
	"context"
	"fmt"
	"time"

	"github.com/carriazoe12/lexia-chatbot/internal/app/auth"
	"github.com/carriazoe12/lexia-chatbot/internal/domain"
	"github.com/carriazoe12/lexia-chatbot/internal/observability"
)

// Controller owns all mutable client-visible state of one user session and
// the transition rules between states. It is driven by a single logical
// thread of control: the presentation layer serializes the events it
// forwards here.
type Controller struct {
	convs domain.ConversationStore
	msgs  domain.MessageStore
	auth  *auth.Service
	llm   domain.Replier
	now   func() time.Time

	state State
}

func NewController(
	convs domain.ConversationStore,
	msgs domain.MessageStore,
	authSvc *auth.Service,
	replier domain.Replier,
) *Controller {
	return &Controller{
		convs: convs,
		msgs:  msgs,
		auth:  authSvc,
		llm:   replier,
		now:   time.Now,
		state: newState("", domain.ProviderOpenAI),
	}
}

// State returns a snapshot of the session state for rendering.
func (c *Controller) State() State {
	return c.state
}

// ─────────────────────────────────────────────
// Session identity
// ─────────────────────────────────────────────

// Login authenticates and rebuilds the chat state. The credential and
// provider selection are the only fields carried over.
func (c *Controller) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	c.state = newState(c.state.APIKey, c.state.Provider)
	c.state.User = user

	observability.LoggerFromContext(ctx).Info("user signed in", "user_id", user.ID)
	return user, nil
}

// SignUp registers a new account. It never touches session state: the user
// still has to log in afterwards.
func (c *Controller) SignUp(ctx context.Context, email, password, confirm string) (*domain.User, error) {
	return c.auth.SignUp(ctx, email, password, confirm)
}

// Logout ends the local session even when the remote sign-out fails; in that
// case the remote error is returned so the presentation layer can mention it.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.auth.SignOut(ctx)

	c.state = newState(c.state.APIKey, c.state.Provider)

	if err != nil {
		observability.LoggerFromContext(ctx).Error("remote sign-out failed", "error", err)
		return fmt.Errorf("Error al cerrar sesión: %v. Sesión local finalizada.", err)
	}
	return nil
}

// CurrentUser asks the identity provider who is signed in. A nil user with a
// nil error means "no active session".
func (c *Controller) CurrentUser(ctx context.Context) (*domain.User, error) {
	return c.auth.CurrentUser(ctx)
}

func (c *Controller) SetAPIKey(key string) {
	c.state.APIKey = key
}

func (c *Controller) SetProvider(p domain.Provider) error {
	switch p {
	case domain.ProviderOpenAI, domain.ProviderGemini:
		c.state.Provider = p
		return nil
	default:
		return ErrUnknownProvider
	}
}

// ─────────────────────────────────────────────
// Conversation lifecycle
// ─────────────────────────────────────────────

// EnsureConversationsLoaded fetches the conversation list once per session
// and auto-activates the most recently updated conversation. A fetch failure
// is non-fatal: the session continues with an empty list and the error is
// surfaced to the caller.
func (c *Controller) EnsureConversationsLoaded(ctx context.Context) error {
	if c.state.User == nil {
		return ErrNotSignedIn
	}
	if c.state.ConversationsLoaded {
		return nil
	}

	list, err := c.convs.ListConversations(ctx, c.state.User.ID)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("list conversations failed", "error", err, "user_id", c.state.User.ID)
		c.state.Conversations = nil
		c.state.ConversationsLoaded = true
		return err
	}

	c.state.Conversations = list
	c.state.ConversationsLoaded = true
	if len(list) > 0 {
		c.state.activate(list[0])
	}
	return nil
}

// NewConversation creates a conversation with the default title and makes it
// active. On failure no state mutation occurs.
func (c *Controller) NewConversation(ctx context.Context) (*domain.Conversation, error) {
	if c.state.User == nil {
		return nil, ErrNotSignedIn
	}

	conv, err := c.convs.InsertConversation(ctx, c.state.User.ID, DefaultConversationTitle)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("create conversation failed", "error", err)
		return nil, err
	}

	// newest first, matching the updated_at-descending list order
	c.state.Conversations = append([]*domain.Conversation{conv}, c.state.Conversations...)
	c.state.activate(conv)
	return conv, nil
}

// SelectConversation activates a conversation from the loaded list. Selecting
// the already-active conversation is a no-op; otherwise the buffer is cleared
// and history is fetched lazily on the next cycle.
func (c *Controller) SelectConversation(id domain.ConversationID) error {
	if id == c.state.ActiveConversationID {
		return nil
	}
	conv := c.state.conversationByID(id)
	if conv == nil {
		return domain.ErrConversationNotFound
	}
	c.state.activate(conv)
	return nil
}

// DeleteConversation removes a conversation and, through the store's cascade,
// all of its messages. The id must resolve in this session's loaded list. If
// the deleted conversation was active, the newest remaining conversation
// becomes active; with none left the session has no active conversation.
func (c *Controller) DeleteConversation(ctx context.Context, id domain.ConversationID) error {
	if c.state.User == nil {
		return ErrNotSignedIn
	}
	if c.state.conversationByID(id) == nil {
		return domain.ErrConversationNotFound
	}

	if err := c.convs.DeleteConversation(ctx, id); err != nil {
		observability.LoggerFromContext(ctx).Error("delete conversation failed", "error", err, "conversation_id", id)
		return err
	}

	kept := c.state.Conversations[:0]
	for _, conv := range c.state.Conversations {
		if conv.ID != id {
			kept = append(kept, conv)
		}
	}
	c.state.Conversations = kept

	if c.state.ActiveConversationID == id {
		c.state.deactivate()
		if len(c.state.Conversations) > 0 {
			c.state.activate(c.state.Conversations[0])
		}
	}
	return nil
}

// RenameConversation updates the title in the store and, only on success, in
// the in-memory list and active title. The id must resolve in this session's
// loaded list: a session never renames a conversation it does not hold.
func (c *Controller) RenameConversation(ctx context.Context, id domain.ConversationID, title string) error {
	if c.state.User == nil {
		return ErrNotSignedIn
	}
	if c.state.conversationByID(id) == nil {
		return domain.ErrConversationNotFound
	}

	if err := c.convs.RenameConversation(ctx, id, title); err != nil {
		observability.LoggerFromContext(ctx).Error("rename conversation failed", "error", err, "conversation_id", id)
		return err
	}

	if conv := c.state.conversationByID(id); conv != nil {
		conv.Title = title
	}
	if c.state.ActiveConversationID == id {
		c.state.ActiveConversationTitle = title
	}
	return nil
}

// ─────────────────────────────────────────────
// Message lifecycle
// ─────────────────────────────────────────────

// EnsureHistoryLoaded replaces the buffer with the active conversation's
// persisted history. The flag guards against redundant fetches: the load runs
// once per conversation activation.
func (c *Controller) EnsureHistoryLoaded(ctx context.Context) error {
	if c.state.ActiveConversationID == "" || c.state.HistoryLoaded {
		return nil
	}

	msgs, err := c.msgs.ListMessages(ctx, c.state.ActiveConversationID)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("load history failed", "error", err, "conversation_id", c.state.ActiveConversationID)
		c.state.Messages = nil
		c.state.HistoryLoaded = true
		return err
	}

	buffer := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		buffer = append(buffer, *m)
	}
	c.state.Messages = buffer
	c.state.HistoryLoaded = true
	return nil
}

// persistMessage writes a message through to the store and refreshes the
// parent conversation's timestamp. A timestamp failure is logged only, like
// the rest of the touch path.
func (c *Controller) persistMessage(ctx context.Context, role domain.Role, content string) error {
	if err := c.msgs.InsertMessage(ctx, c.state.User.ID, c.state.ActiveConversationID, role, content); err != nil {
		return err
	}
	if err := c.convs.TouchConversation(ctx, c.state.ActiveConversationID); err != nil {
		observability.LoggerFromContext(ctx).Error("touch conversation failed", "error", err, "conversation_id", c.state.ActiveConversationID)
	}
	return nil
}

// ─────────────────────────────────────────────
// Turn orchestration
// ─────────────────────────────────────────────

// TurnResult reports the outcome of one user turn.
type TurnResult struct {
	UserMessage      domain.Message
	AssistantMessage domain.Message

	// TitleRenamed is true when this turn autotitled the conversation, in
	// which case the presentation layer should force a full refresh.
	TitleRenamed bool

	// Notices carries non-fatal store failures. The in-memory buffer stays
	// the source of truth for the rest of the session.
	Notices []string
}

// SendMessage runs one full turn for the active conversation: optional
// autotitle, optimistic append plus write-through of the user message,
// context-window trimming, provider dispatch, and append plus write-through
// of the assistant reply.
func (c *Controller) SendMessage(ctx context.Context, prompt string) (*TurnResult, error) {
	if c.state.User == nil {
		return nil, ErrNotSignedIn
	}
	if c.state.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if c.state.ActiveConversationID == "" {
		return nil, ErrNoActiveConversation
	}

	log := observability.LoggerFromContext(ctx).With(
		"conversation_id", c.state.ActiveConversationID,
		"provider", c.state.Provider,
	)

	result := &TurnResult{}

	// Both conditions are evaluated before the new message is appended. A
	// conversation renamed by hand before the first message never autotitles.
	isFirstMessage := len(c.state.Messages) == 0
	needsAutotitle := c.state.ActiveConversationTitle == DefaultConversationTitle

	if isFirstMessage && needsAutotitle {
		title := autoTitle(prompt)
		if err := c.RenameConversation(ctx, c.state.ActiveConversationID, title); err != nil {
			result.Notices = append(result.Notices,
				fmt.Sprintf("No se pudo actualizar el título de la conversación: %v", err))
		} else {
			result.TitleRenamed = true
		}
	}

	userMsg := domain.Message{Role: domain.RoleUser, Content: prompt, CreatedAt: c.now()}
	c.state.Messages = append(c.state.Messages, userMsg)
	if err := c.persistMessage(ctx, domain.RoleUser, prompt); err != nil {
		log.Error("persist user message failed", "error", err)
		result.Notices = append(result.Notices,
			fmt.Sprintf("Error guardando tu mensaje: %v", err))
	}

	window := trimContext(c.state.Messages)
	reply := c.llm.Reply(ctx, window, c.state.APIKey, c.state.Provider)

	assistantMsg := domain.Message{Role: domain.RoleAssistant, Content: reply, CreatedAt: c.now()}
	c.state.Messages = append(c.state.Messages, assistantMsg)
	if err := c.persistMessage(ctx, domain.RoleAssistant, reply); err != nil {
		log.Error("persist assistant message failed", "error", err)
		result.Notices = append(result.Notices,
			fmt.Sprintf("Error guardando respuesta de LexIA: %v", err))
	}

	result.UserMessage = userMsg
	result.AssistantMessage = assistantMsg

	log.Info("turn completed", "buffer_len", len(c.state.Messages), "title_renamed", result.TitleRenamed)
	return result, nil
}
