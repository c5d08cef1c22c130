package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

type recordedRequest struct {
	method  string
	path    string
	query   string
	headers http.Header
	body    map[string]any
}

// fakeSupabase captures every request and answers from a per-route script.
type fakeSupabase struct {
	t        *testing.T
	requests []recordedRequest
	respond  map[string]func(w http.ResponseWriter)
}

func newFakeSupabase(t *testing.T) (*fakeSupabase, *httptest.Server) {
	f := &fakeSupabase{t: t, respond: make(map[string]func(w http.ResponseWriter))}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeSupabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		method:  r.Method,
		path:    r.URL.Path,
		query:   r.URL.RawQuery,
		headers: r.Header.Clone(),
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
	}
	f.requests = append(f.requests, rec)

	if respond, ok := f.respond[r.Method+" "+r.URL.Path]; ok {
		respond(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("[]"))
}

func (f *fakeSupabase) last() recordedRequest {
	require.NotEmpty(f.t, f.requests)
	return f.requests[len(f.requests)-1]
}

func jsonResponse(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	c, err := NewClient(srv.URL, "anon-key", WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesInputs(t *testing.T) {
	_, err := NewClient("", "anon-key")
	require.Error(t, err)

	_, err = NewClient("https://proj.supabase.co", "  ")
	require.Error(t, err)

	c, err := NewClient("https://proj.supabase.co/", "anon-key")
	require.NoError(t, err)
	require.Equal(t, "https://proj.supabase.co", c.baseURL)
}

func TestSignInStoresAccessToken(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	fake.respond["POST /auth/v1/token"] = jsonResponse(http.StatusOK,
		`{"access_token":"jwt-123","user":{"id":"u-1","email":"ana@example.com"}}`)

	c := newTestClient(t, srv)
	ctx := context.Background()

	// before sign-in the anon key authorizes requests
	_, err := c.ListConversations(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "Bearer anon-key", fake.last().headers.Get("Authorization"))
	require.Equal(t, "anon-key", fake.last().headers.Get("apikey"))

	user, err := c.SignIn(ctx, "ana@example.com", "secreto")
	require.NoError(t, err)
	require.Equal(t, domain.UserID("u-1"), user.ID)
	require.Equal(t, "ana@example.com", user.Email)

	signIn := fake.last()
	require.Equal(t, "grant_type=password", signIn.query)
	require.Equal(t, "secreto", signIn.body["password"])

	// after sign-in the user token takes over, the anon key stays as apikey
	_, err = c.ListConversations(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "Bearer jwt-123", fake.last().headers.Get("Authorization"))
	require.Equal(t, "anon-key", fake.last().headers.Get("apikey"))
}

func TestSignUpHandlesBareUserShape(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	fake.respond["POST /auth/v1/signup"] = jsonResponse(http.StatusOK,
		`{"id":"u-2","email":"luis@example.com"}`)

	c := newTestClient(t, srv)
	user, err := c.SignUp(context.Background(), "luis@example.com", "secreto")
	require.NoError(t, err)
	require.Equal(t, domain.UserID("u-2"), user.ID)
}

func TestSignOutDropsTokenEvenOnRemoteFailure(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	fake.respond["POST /auth/v1/token"] = jsonResponse(http.StatusOK,
		`{"access_token":"jwt-123","user":{"id":"u-1","email":"ana@example.com"}}`)
	fake.respond["POST /auth/v1/logout"] = jsonResponse(http.StatusServiceUnavailable, `{"msg":"down"}`)

	c := newTestClient(t, srv)
	ctx := context.Background()

	_, err := c.SignIn(ctx, "ana@example.com", "secreto")
	require.NoError(t, err)

	require.Error(t, c.SignOut(ctx))
	require.Equal(t, "anon-key", c.bearer(), "the stale token must not survive")
}

func TestCurrentUserWithoutToken(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	c := newTestClient(t, srv)

	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Nil(t, user)
	require.Empty(t, fake.requests, "no token means no network call")
}

func TestCurrentUserExpiredToken(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	fake.respond["POST /auth/v1/token"] = jsonResponse(http.StatusOK,
		`{"access_token":"jwt-123","user":{"id":"u-1","email":"ana@example.com"}}`)
	fake.respond["GET /auth/v1/user"] = jsonResponse(http.StatusUnauthorized, `{"msg":"token expired"}`)

	c := newTestClient(t, srv)
	ctx := context.Background()
	_, err := c.SignIn(ctx, "ana@example.com", "secreto")
	require.NoError(t, err)

	user, err := c.CurrentUser(ctx)
	require.NoError(t, err, "a rejected token means no session, not a failure")
	require.Nil(t, user)
}

func TestInsertConversationDecodesRepresentation(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	fake.respond["POST /rest/v1/conversations"] = jsonResponse(http.StatusCreated,
		`[{"id":"c-1","user_id":"u-1","title":"Nueva Conversación",
		   "created_at":"2025-06-01T10:00:00Z","updated_at":"2025-06-01T10:00:00Z"}]`)

	c := newTestClient(t, srv)
	conv, err := c.InsertConversation(context.Background(), "u-1", "Nueva Conversación")
	require.NoError(t, err)
	require.Equal(t, domain.ConversationID("c-1"), conv.ID)
	require.Equal(t, "Nueva Conversación", conv.Title)

	req := fake.last()
	require.Equal(t, "return=representation", req.headers.Get("Prefer"))
	require.Equal(t, "u-1", req.body["user_id"])
	require.Equal(t, "Nueva Conversación", req.body["title"])
}

func TestListConversationsQueryShape(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	fake.respond["GET /rest/v1/conversations"] = jsonResponse(http.StatusOK,
		`[{"id":"c-2","title":"Despidos","created_at":"2025-06-01T11:00:00Z","updated_at":"2025-06-01T12:00:00Z"},
		  {"id":"c-1","title":"Arrendamientos","created_at":"2025-06-01T10:00:00Z","updated_at":"2025-06-01T10:30:00Z"}]`)

	c := newTestClient(t, srv)
	list, err := c.ListConversations(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, domain.ConversationID("c-2"), list[0].ID)
	require.Equal(t, domain.UserID("u-1"), list[0].UserID, "owner is filled in even though the select omits it")

	req := fake.last()
	require.Contains(t, req.query, "user_id=eq.u-1")
	require.Contains(t, req.query, "order=updated_at.desc")
}

func TestRenameConversationPatchesTitleAndTimestamp(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	fake.respond["PATCH /rest/v1/conversations"] = jsonResponse(http.StatusNoContent, "")

	c := newTestClient(t, srv)
	require.NoError(t, c.RenameConversation(context.Background(), "c-1", "Consulta laboral"))

	req := fake.last()
	require.Equal(t, http.MethodPatch, req.method)
	require.Equal(t, "id=eq.c-1", req.query)
	require.Equal(t, "Consulta laboral", req.body["title"])
	require.NotEmpty(t, req.body["updated_at"])
	require.Equal(t, "return=minimal", req.headers.Get("Prefer"))
}

func TestDeleteConversationSingleRequest(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	fake.respond["DELETE /rest/v1/conversations"] = jsonResponse(http.StatusNoContent, "")

	c := newTestClient(t, srv)
	require.NoError(t, c.DeleteConversation(context.Background(), "c-1"))

	// one DELETE, cascade handled by the schema's foreign key
	require.Len(t, fake.requests, 1)
	require.Equal(t, "id=eq.c-1", fake.last().query)
}

func TestInsertAndListMessages(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	fake.respond["POST /rest/v1/messages"] = jsonResponse(http.StatusCreated, "")
	fake.respond["GET /rest/v1/messages"] = jsonResponse(http.StatusOK,
		`[{"role":"user","content":"Hola","created_at":"2025-06-01T10:00:00Z"},
		  {"role":"assistant","content":"Hola, soy LexIA","created_at":"2025-06-01T10:00:05Z"}]`)

	c := newTestClient(t, srv)
	ctx := context.Background()

	require.NoError(t, c.InsertMessage(ctx, "u-1", "c-1", domain.RoleUser, "Hola"))
	insert := fake.last()
	require.Equal(t, "c-1", insert.body["conversation_id"])
	require.Equal(t, "user", insert.body["role"])
	require.Equal(t, "return=minimal", insert.headers.Get("Prefer"))

	msgs, err := c.ListMessages(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, domain.RoleUser, msgs[0].Role)
	require.Equal(t, "Hola, soy LexIA", msgs[1].Content)

	list := fake.last()
	require.Contains(t, list.query, "conversation_id=eq.c-1")
	require.Contains(t, list.query, "order=created_at.asc")
}

func TestStatusErrorSurfacesBody(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	fake.respond["GET /rest/v1/conversations"] = jsonResponse(http.StatusForbidden,
		`{"message":"permission denied for table conversations"}`)

	c := newTestClient(t, srv)
	_, err := c.ListConversations(context.Background(), "u-1")
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	require.Contains(t, statusErr.Body, "permission denied")
}
