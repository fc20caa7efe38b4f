// Package login resolves a user's role at authentication time and opens
// the session the rest of the application reads.
package login

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DGouron/billed/internal/domain/users"
	"github.com/DGouron/billed/internal/navigation"
	"github.com/DGouron/billed/internal/session"
)

var ErrLoginFailed = errors.New("login failed")

// Store is the remote credential store behind the login form.
type Store interface {
	Login(ctx context.Context, credentialsJSON string) (string, error)
	Register(ctx context.Context, email, password string, role users.Role) error
}

type Authenticator struct {
	log      *slog.Logger
	store    Store
	sessions session.Store
	nav      navigation.Navigator
}

func New(store Store, sessions session.Store, nav navigation.Navigator, opts ...Option) *Authenticator {
	a := &Authenticator{
		log:      slog.New(&slog.JSONHandler{}),
		store:    store,
		sessions: sessions,
		nav:      nav,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type Option func(a *Authenticator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.log = logger
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login validates the credentials, resolves the role and, on success,
// performs exactly one session write and one navigation: Employee lands on
// Bills, Admin on Dashboard. On failure a registration attempt is made
// before the error surfaces; nothing is written and nothing navigates.
func (a *Authenticator) Login(ctx context.Context, role users.Role, email, password string) (session.Record, string, error) {
	if err := users.ValidateEmail(email); err != nil {
		return session.Record{}, "", err
	}

	if password == "" {
		return session.Record{}, "", users.ErrUserPasswdEmpty
	}

	if _, err := users.ParseRole(role.String()); err != nil {
		return session.Record{}, "", err
	}

	credentialsJSON, err := json.Marshal(credentials{Email: email, Password: password})
	if err != nil {
		return session.Record{}, "", fmt.Errorf("json.Marshal: %w", err)
	}

	token, err := a.store.Login(ctx, string(credentialsJSON))
	if err != nil {
		a.log.Warn("store.Login failed, attempting registration",
			slog.String("email", email), slog.Any("error", err))

		token, err = a.registerAndRetry(ctx, role, email, password, string(credentialsJSON))
		if err != nil {
			return session.Record{}, "", fmt.Errorf("%w: %s", ErrLoginFailed, err)
		}
	}

	record := session.NewRecord(role, email, password)

	encoded, err := record.Encode()
	if err != nil {
		return session.Record{}, "", fmt.Errorf("record.Encode: %w", err)
	}

	if err := a.sessions.Set(ctx, session.UserKey, encoded); err != nil {
		return session.Record{}, "", fmt.Errorf("sessions.Set: %w", err)
	}

	if role == users.RoleAdmin {
		a.nav.Navigate(navigation.RouteDashboard)
	} else {
		a.nav.Navigate(navigation.RouteBills)
	}

	return record, token, nil
}

// registerAndRetry is the create-then-login fallback of the login form.
func (a *Authenticator) registerAndRetry(ctx context.Context, role users.Role, email, password, credentialsJSON string) (string, error) {
	if err := a.store.Register(ctx, email, password, role); err != nil {
		return "", fmt.Errorf("store.Register: %w", err)
	}

	token, err := a.store.Login(ctx, credentialsJSON)
	if err != nil {
		return "", fmt.Errorf("store.Login: %w", err)
	}

	return token, nil
}

// CurrentUser reads the persisted session record back.
func (a *Authenticator) CurrentUser(ctx context.Context) (session.Record, error) {
	value, err := a.sessions.Get(ctx, session.UserKey)
	if err != nil {
		return session.Record{}, fmt.Errorf("sessions.Get: %w", err)
	}

	record, err := session.DecodeRecord(value)
	if err != nil {
		return session.Record{}, fmt.Errorf("session.DecodeRecord: %w", err)
	}

	return record, nil
}
