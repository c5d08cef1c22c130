package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// authPayload covers the two response shapes GoTrue uses: the bare user
// object (sign-up with email confirmation pending) and the session object
// with a nested user (password grant).
type authPayload struct {
	authUser
	AccessToken string    `json:"access_token"`
	User        *authUser `json:"user"`
}

func (p *authPayload) toUser() (*domain.User, error) {
	u := p.authUser
	if p.User != nil {
		u = *p.User
	}
	if u.ID == "" {
		return nil, errors.New("supabase: auth response has no user id")
	}
	return &domain.User{ID: domain.UserID(u.ID), Email: u.Email}, nil
}

func (c *Client) authURL(path string) string {
	return c.baseURL + "/auth/v1" + path
}

// SignUp implements domain.Identity.
func (c *Client) SignUp(ctx context.Context, email, password string) (*domain.User, error) {
	body, err := marshalBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL("/signup"), body)
	if err != nil {
		return nil, fmt.Errorf("supabase: create sign-up request: %w", err)
	}

	raw, err := c.doJSON(req, "")
	if err != nil {
		return nil, fmt.Errorf("supabase: sign-up: %w", err)
	}

	var payload authPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("supabase: decode sign-up response: %w", err)
	}
	return payload.toUser()
}

// SignIn implements domain.Identity. The returned access token is kept for
// every later PostgREST call in this session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	body, err := marshalBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL("/token?grant_type=password"), body)
	if err != nil {
		return nil, fmt.Errorf("supabase: create sign-in request: %w", err)
	}

	raw, err := c.doJSON(req, "")
	if err != nil {
		return nil, fmt.Errorf("supabase: sign-in: %w", err)
	}

	var payload authPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("supabase: decode sign-in response: %w", err)
	}

	user, err := payload.toUser()
	if err != nil {
		return nil, err
	}
	c.setAccessToken(payload.AccessToken)
	return user, nil
}

// SignOut implements domain.Identity. The local token is dropped even when
// the remote call fails: the session is over either way.
func (c *Client) SignOut(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL("/logout"), nil)
	if err != nil {
		return fmt.Errorf("supabase: create sign-out request: %w", err)
	}

	_, doErr := c.doJSON(req, "")
	c.setAccessToken("")
	if doErr != nil {
		return fmt.Errorf("supabase: sign-out: %w", doErr)
	}
	return nil
}

// CurrentUser implements domain.Identity. Without a stored token, or when
// the token is no longer accepted, it reports "no active session" with a
// nil error.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()
	if token == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authURL("/user"), nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: create current-user request: %w", err)
	}

	raw, err := c.doJSON(req, "")
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, fmt.Errorf("supabase: current user: %w", err)
	}

	var payload authPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("supabase: decode current-user response: %w", err)
	}
	return payload.toUser()
}

var _ domain.Identity = (*Client)(nil)
