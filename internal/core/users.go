package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/asistencia/internal/auth"
	"github.com/JonMunkholm/asistencia/internal/logging"
)

// dummyHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("unknown-user-placeholder")
	return h
})

// Authenticate checks a username and password. Any failure returns
// ErrInvalidCredentials; the attempt is audited either way.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	username = normalizeUsername(username)

	u, err := s.store.GetUser(ctx, username)
	switch {
	case err == nil:
	case errors.Is(err, ErrUserNotFound):
		auth.CheckPassword(dummyHash(), password)
		s.loginFailed(ctx, username)
		return User{}, ErrInvalidCredentials
	default:
		return User{}, fmt.Errorf("authenticate: %w", err)
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		s.loginFailed(ctx, username)
		return User{}, ErrInvalidCredentials
	}

	s.LogAudit(ContextWithActor(ctx, u.Username), AuditLogParams{Action: ActionLogin, Target: u.Username})
	return u, nil
}

func (s *Service) loginFailed(ctx context.Context, username string) {
	s.LogAudit(ctx, AuditLogParams{Action: ActionLoginFailed, Target: username})
}

// CreateUser adds a dashboard account.
func (s *Service) CreateUser(ctx context.Context, username, password string, role Role) (User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return User{}, fmt.Errorf("%w: required field username is empty", ErrInvalidInput)
	}
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: invalid enum role %q", ErrInvalidInput, role)
	}

	if _, err := s.store.GetUser(ctx, username); err == nil {
		return User{}, fmt.Errorf("create user %s: %w", username, ErrUserExists)
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("create user %s: %w", username, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}

	u := User{Username: username, PasswordHash: hash, Role: role, CreatedAt: s.now().UTC()}
	if err := s.store.SaveUser(ctx, u); err != nil {
		return User{}, fmt.Errorf("create user %s: %w", username, err)
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionUserCreate, Target: username, Detail: string(role)})
	return u, nil
}

// ListUsers returns all accounts sorted by username.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// EnsureAdmin creates an admin account when no account exists yet. It
// returns true if an account was created. An empty password disables
// bootstrapping.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	if len(users) > 0 {
		return false, nil
	}

	if _, err := s.CreateUser(ContextWithActor(ctx, "bootstrap"), username, password, RoleAdmin); err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	logging.FromContext(ctx).Info("bootstrap admin created", "username", normalizeUsername(username))
	return true, nil
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
