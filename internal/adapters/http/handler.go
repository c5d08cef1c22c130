package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carriazoe12/lexia-chatbot/internal/app/auth"
	"github.com/carriazoe12/lexia-chatbot/internal/app/session"
	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

// SessionHeader carries the opaque client-session id. Each client session
// maps onto one controller, mirroring the one-browser-session-one-state
// model of the UI this API serves.
const SessionHeader = "X-Lexia-Session"

// ControllerFactory builds a fresh controller for a new client session.
type ControllerFactory func() *session.Controller

type clientSession struct {
	mu   sync.Mutex
	ctrl *session.Controller
}

type Server struct {
	mu            sync.Mutex
	clients       map[string]*clientSession
	newController ControllerFactory
}

func NewServer(factory ControllerFactory) http.Handler {
	s := &Server{
		clients:       make(map[string]*clientSession),
		newController: factory,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/auth/signup", s.handleSignup)
	mux.HandleFunc("/auth/login", s.handleLogin)
	mux.HandleFunc("/auth/logout", s.handleLogout)
	mux.HandleFunc("/auth/me", s.handleMe)
	mux.HandleFunc("/settings", s.handleSettings)

	// /conversations            → GET: list, POST: create
	mux.HandleFunc("/conversations", s.handleConversations)

	// /conversations/{id}          → DELETE, PATCH (rename)
	// /conversations/{id}/messages → GET: history, POST: send turn
	mux.HandleFunc("/conversations/", s.handleConversationWithID)

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

// client resolves the controller for this request's session id, creating a
// new session when none is presented. The id is echoed on every response.
func (s *Server) client(w http.ResponseWriter, r *http.Request) *clientSession {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))

	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if cs, ok := s.clients[id]; ok {
			w.Header().Set(SessionHeader, id)
			return cs
		}
	}

	id = uuid.NewString()
	cs := &clientSession{ctrl: s.newController()}
	s.clients[id] = cs
	w.Header().Set(SessionHeader, id)
	return cs
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type settingsRequest struct {
	APIKey   *string `json:"api_key,omitempty"`
	Provider *string `json:"provider,omitempty"`
}

type conversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listConversationsResponse struct {
	Conversations        []conversationResponse `json:"conversations"`
	ActiveConversationID string                 `json:"active_conversation_id,omitempty"`
	ActiveTitle          string                 `json:"active_title"`
	Notice               string                 `json:"notice,omitempty"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type messageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	Title    string            `json:"title"`
	Messages []messageResponse `json:"messages"`
	Notice   string            `json:"notice,omitempty"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	UserMessage      messageResponse `json:"user_message"`
	AssistantMessage messageResponse `json:"assistant_message"`
	Title            string          `json:"title"`
	TitleRenamed     bool            `json:"title_renamed"`
	Notices          []string        `json:"notices,omitempty"`
}

// ─────────────────────────────────────────────
// Auth handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	cs := s.client(w, r)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	user, err := cs.ctrl.SignUp(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		var vErr auth.ValidationError
		if errors.As(err, &vErr) {
			badRequest(w, vErr.Error())
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    toUserResponse(user),
		"message": "¡Registro exitoso! Por favor, inicia sesión para continuar.",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	cs := s.client(w, r)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	user, err := cs.ctrl.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var vErr auth.ValidationError
		if errors.As(err, &vErr) {
			badRequest(w, vErr.Error())
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	cs := s.client(w, r)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	// The local session always ends; a remote failure is only a notice.
	if err := cs.ctrl.Logout(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"notice": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Has cerrado sesión exitosamente."})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	cs := s.client(w, r)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	user, err := cs.ctrl.CurrentUser(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}

	cs := s.client(w, r)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.APIKey != nil {
		cs.ctrl.SetAPIKey(*req.APIKey)
	}
	if req.Provider != nil {
		if err := cs.ctrl.SetProvider(domain.Provider(strings.ToLower(*req.Provider))); err != nil {
			badRequest(w, err.Error())
			return
		}
	}

	st := cs.ctrl.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"provider":    string(st.Provider),
		"api_key_set": st.APIKey != "",
	})
}

// ─────────────────────────────────────────────
// Conversation handlers
// ─────────────────────────────────────────────

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	cs := s.client(w, r)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		s.handleListConversations(w, r, cs)
	case http.MethodPost:
		s.handleCreateConversation(w, r, cs)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request, cs *clientSession) {
	notice := ""
	if err := cs.ctrl.EnsureConversationsLoaded(r.Context()); err != nil {
		if errors.Is(err, session.ErrNotSignedIn) {
			unauthorized(w, err)
			return
		}
		// non-fatal: the session continues with an empty list
		notice = err.Error()
	}

	st := cs.ctrl.State()
	resp := listConversationsResponse{
		Conversations:        toConversationsResponse(st.Conversations),
		ActiveConversationID: string(st.ActiveConversationID),
		ActiveTitle:          st.ActiveConversationTitle,
		Notice:               notice,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request, cs *clientSession) {
	conv, err := cs.ctrl.NewConversation(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrNotSignedIn) {
			unauthorized(w, err)
			return
		}
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConversationResponse(conv))
}

func (s *Server) handleConversationWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/conversations/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := domain.ConversationID(parts[0])
	if id == "" {
		http.NotFound(w, r)
		return
	}

	cs := s.client(w, r)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodDelete:
			s.handleDeleteConversation(w, r, cs, id)
		case http.MethodPatch:
			s.handleRenameConversation(w, r, cs, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "messages" {
		switch r.Method {
		case http.MethodGet:
			s.handleHistory(w, r, cs, id)
		case http.MethodPost:
			s.handleSendMessage(w, r, cs, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	http.NotFound(w, r)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request, cs *clientSession, id domain.ConversationID) {
	if err := cs.ctrl.EnsureConversationsLoaded(r.Context()); err != nil && errors.Is(err, session.ErrNotSignedIn) {
		unauthorized(w, err)
		return
	}

	if err := cs.ctrl.DeleteConversation(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, session.ErrNotSignedIn):
			unauthorized(w, err)
		case errors.Is(err, domain.ErrConversationNotFound):
			http.NotFound(w, r)
		default:
			internalError(w, err)
		}
		return
	}

	st := cs.ctrl.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"active_conversation_id": string(st.ActiveConversationID),
		"active_title":           st.ActiveConversationTitle,
	})
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request, cs *clientSession, id domain.ConversationID) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		badRequest(w, "title is required")
		return
	}

	if err := cs.ctrl.EnsureConversationsLoaded(r.Context()); err != nil && errors.Is(err, session.ErrNotSignedIn) {
		unauthorized(w, err)
		return
	}

	if err := cs.ctrl.RenameConversation(r.Context(), id, req.Title); err != nil {
		switch {
		case errors.Is(err, session.ErrNotSignedIn):
			unauthorized(w, err)
		case errors.Is(err, domain.ErrConversationNotFound):
			http.NotFound(w, r)
		default:
			internalError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": req.Title})
}

// ─────────────────────────────────────────────
// Message handlers
// ─────────────────────────────────────────────

// activate selects the conversation and lazily loads its history, the same
// sequence every render cycle of the original UI performs.
func (s *Server) activate(r *http.Request, cs *clientSession, id domain.ConversationID) (notice string, err error) {
	if err := cs.ctrl.EnsureConversationsLoaded(r.Context()); err != nil && errors.Is(err, session.ErrNotSignedIn) {
		return "", err
	}
	if err := cs.ctrl.SelectConversation(id); err != nil {
		return "", err
	}
	if err := cs.ctrl.EnsureHistoryLoaded(r.Context()); err != nil {
		return err.Error(), nil
	}
	return "", nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, cs *clientSession, id domain.ConversationID) {
	notice, err := s.activate(r, cs, id)
	if err != nil {
		writeActivationError(w, r, err)
		return
	}

	st := cs.ctrl.State()
	writeJSON(w, http.StatusOK, historyResponse{
		Title:    st.ActiveConversationTitle,
		Messages: toMessagesResponse(st.Messages),
		Notice:   notice,
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, cs *clientSession, id domain.ConversationID) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		badRequest(w, "content is required")
		return
	}

	notice, err := s.activate(r, cs, id)
	if err != nil {
		writeActivationError(w, r, err)
		return
	}

	out, err := cs.ctrl.SendMessage(r.Context(), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotSignedIn):
			unauthorized(w, err)
		case errors.Is(err, session.ErrNoAPIKey), errors.Is(err, session.ErrNoActiveConversation):
			badRequest(w, err.Error())
		default:
			internalError(w, err)
		}
		return
	}

	// a failed lazy history load precedes the turn's own notices
	notices := out.Notices
	if notice != "" {
		notices = append([]string{notice}, notices...)
	}

	st := cs.ctrl.State()
	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:      toMessageResponse(out.UserMessage),
		AssistantMessage: toMessageResponse(out.AssistantMessage),
		Title:            st.ActiveConversationTitle,
		TitleRenamed:     out.TitleRenamed,
		Notices:          notices,
	})
}

func writeActivationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotSignedIn):
		unauthorized(w, err)
	case errors.Is(err, domain.ErrConversationNotFound):
		http.NotFound(w, r)
	default:
		internalError(w, err)
	}
}

// ─────────────────────────────────────────────
// Conversion helpers
// ─────────────────────────────────────────────

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: string(u.ID), Email: u.Email}
}

func toConversationResponse(c *domain.Conversation) conversationResponse {
	return conversationResponse{
		ID:        string(c.ID),
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toConversationsResponse(convs []*domain.Conversation) []conversationResponse {
	out := make([]conversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, toConversationResponse(c))
	}
	return out
}

func toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toMessagesResponse(msgs []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func unauthorized(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
