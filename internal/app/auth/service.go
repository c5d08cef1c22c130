package auth

import (
	"context"
	"strings"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
	"github.com/carriazoe12/lexia-chatbot/internal/observability"
)

// ValidationError is a user-facing input problem caught before any network
// call. It leaves all state untouched.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

const (
	errEmptyCredentials = ValidationError("El email y la contraseña no pueden estar vacíos.")
	errPasswordMismatch = ValidationError("Las contraseñas no coinciden.")
)

// Service wraps the remote identity provider with the input validation the
// sign-up and sign-in forms need.
type Service struct {
	identity domain.Identity
}

func NewService(identity domain.Identity) *Service {
	return &Service{identity: identity}
}

// SignUp registers a new account. The caller still has to sign in afterwards.
func (s *Service) SignUp(ctx context.Context, email, password, confirm string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errEmptyCredentials
	}
	if password != confirm {
		return nil, errPasswordMismatch
	}

	user, err := s.identity.SignUp(ctx, email, password)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("sign-up failed", "error", err)
		return nil, err
	}
	return user, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errEmptyCredentials
	}

	user, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("sign-in failed", "error", err)
		return nil, err
	}
	return user, nil
}

func (s *Service) SignOut(ctx context.Context) error {
	return s.identity.SignOut(ctx)
}

// CurrentUser returns (nil, nil) when there is no active session.
func (s *Service) CurrentUser(ctx context.Context) (*domain.User, error) {
	return s.identity.CurrentUser(ctx)
}
