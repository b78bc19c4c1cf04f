package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GotWill/checkout-colmeia/internal/domain"
	"github.com/GotWill/checkout-colmeia/internal/repository"
)

const (
	ReasonUserNotFound       = "user does not exist"
	ReasonInvalidCredentials = "invalid email or password"
)

type LoginResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// UserStore holds the single user slot of one client.
type UserStore struct {
	mu       sync.RWMutex
	user     domain.User
	hydrated bool
	snap     snapshotter
}

func NewUserStore(repo repository.StateRepository, clientID string, persistTimeout time.Duration, logger *slog.Logger) *UserStore {
	return &UserStore{
		snap: snapshotter{
			repo:    repo,
			key:     repository.StateKey(clientID, NamespaceUser),
			timeout: persistTimeout,
			logger:  logger,
		},
	}
}

func (s *UserStore) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated {
		return nil
	}

	var stored domain.UserSnapshot
	if _, err := s.snap.load(ctx, &stored); err != nil {
		return err
	}
	s.user = stored.User
	s.hydrated = true
	return nil
}

func (s *UserStore) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// AddToUser registers u, replacing whatever the slot held, and signs it in.
func (s *UserStore) AddToUser(ctx context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated {
		return ErrNotHydrated
	}

	u.IsAuthenticated = true
	s.user = u
	s.snap.save(ctx, domain.UserSnapshot{User: s.user})
	return nil
}

// Login signs in the stored user when email matches exactly.
// There is no password check.
func (s *UserStore) Login(ctx context.Context, email string) (LoginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated {
		return LoginResult{}, ErrNotHydrated
	}

	if !s.user.Exists() {
		return LoginResult{Reason: ReasonUserNotFound}, nil
	}
	if s.user.Email != email {
		return LoginResult{Reason: ReasonInvalidCredentials}, nil
	}

	if !s.user.IsAuthenticated {
		s.user.IsAuthenticated = true
		s.snap.save(ctx, domain.UserSnapshot{User: s.user})
	}
	return LoginResult{Success: true}, nil
}

func (s *UserStore) User() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *UserStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.IsAuthenticated
}
