package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/carriazoe12/lexia-chatbot/internal/domain"
)

type account struct {
	user     domain.User
	password string
}

// registry holds the accounts shared by every session of one process.
type registry struct {
	mu       sync.Mutex
	accounts map[string]account
}

// Identity is an in-memory domain.Identity for development and tests.
// Accounts live in a registry shared across sessions; the signed-in user is
// per Identity, so each client session sees only its own sign-in.
type Identity struct {
	reg *registry

	mu      sync.Mutex
	current *domain.User
}

func NewIdentity() *Identity {
	return &Identity{reg: &registry{accounts: make(map[string]account)}}
}

// NewSession returns an Identity over the same account registry with its own
// signed-in user. One per client session.
func (i *Identity) NewSession() *Identity {
	return &Identity{reg: i.reg}
}

func (i *Identity) SignUp(_ context.Context, email, password string) (*domain.User, error) {
	i.reg.mu.Lock()
	defer i.reg.mu.Unlock()

	if _, exists := i.reg.accounts[email]; exists {
		return nil, errors.New("el usuario ya está registrado")
	}

	user := domain.User{ID: domain.UserID(uuid.NewString()), Email: email}
	i.reg.accounts[email] = account{user: user, password: password}

	cp := user
	return &cp, nil
}

func (i *Identity) SignIn(_ context.Context, email, password string) (*domain.User, error) {
	i.reg.mu.Lock()
	acc, ok := i.reg.accounts[email]
	i.reg.mu.Unlock()
	if !ok || acc.password != password {
		return nil, errors.New("credenciales inválidas")
	}

	i.mu.Lock()
	cp := acc.user
	i.current = &cp
	i.mu.Unlock()

	out := acc.user
	return &out, nil
}

func (i *Identity) SignOut(_ context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.current = nil
	return nil
}

func (i *Identity) CurrentUser(_ context.Context) (*domain.User, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.current == nil {
		return nil, nil
	}
	cp := *i.current
	return &cp, nil
}

var _ domain.Identity = (*Identity)(nil)
