package login

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DGouron/billed/internal/domain/users"
	"github.com/DGouron/billed/internal/logger"
	"github.com/DGouron/billed/internal/navigation"
	"github.com/DGouron/billed/internal/session"
)

var errStoreDown = errors.New("store down")

type fakeStore struct {
	loginErrs     []error
	registerErr   error
	loginCalls    []string
	registerCalls []string
	token         string
}

func (f *fakeStore) Login(_ context.Context, credentialsJSON string) (string, error) {
	f.loginCalls = append(f.loginCalls, credentialsJSON)

	if len(f.loginErrs) > 0 {
		err := f.loginErrs[0]
		f.loginErrs = f.loginErrs[1:]

		if err != nil {
			return "", err
		}
	}

	return f.token, nil
}

func (f *fakeStore) Register(_ context.Context, email, _ string, _ users.Role) error {
	f.registerCalls = append(f.registerCalls, email)

	return f.registerErr
}

func newTestAuthenticator(store *fakeStore) (*Authenticator, *session.MemoryStore, *navigation.Recorder) {
	sessions := session.NewMemoryStore()
	nav := navigation.NewRecorder()
	auth := New(store, sessions, nav, WithLogger(logger.NewLogger(logger.WithOutput(io.Discard))))

	return auth, sessions, nav
}

func TestLoginEmployee(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{token: "jwt-token"}
	auth, sessions, nav := newTestAuthenticator(store)

	record, token, err := auth.Login(ctx, users.RoleEmployee, "johndoe@email.com", "azerty")
	require.NoError(t, err)

	assert.Equal(t, "jwt-token", token)
	assert.Equal(t, session.Record{
		Type:     "Employee",
		Email:    "johndoe@email.com",
		Password: "azerty",
		Status:   "connected",
	}, record)

	require.Len(t, store.loginCalls, 1)
	assert.JSONEq(t, `{"email":"johndoe@email.com","password":"azerty"}`, store.loginCalls[0])
	assert.Empty(t, store.registerCalls)

	stored, err := sessions.Get(ctx, session.UserKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "Employee",
		"email": "johndoe@email.com",
		"password": "azerty",
		"status": "connected"
	}`, stored)

	assert.Equal(t, []navigation.Route{navigation.RouteBills}, nav.Routes())
}

func TestLoginAdmin(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{token: "jwt-token"}
	auth, _, nav := newTestAuthenticator(store)

	record, _, err := auth.Login(ctx, users.RoleAdmin, "admin@test.tld", "admin")
	require.NoError(t, err)

	assert.Equal(t, "Admin", record.Type)
	assert.Equal(t, []navigation.Route{navigation.RouteDashboard}, nav.Routes())
}

func TestLoginEmptyFields(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	auth, sessions, nav := newTestAuthenticator(store)

	_, _, err := auth.Login(ctx, users.RoleEmployee, "", "azerty")
	require.ErrorIs(t, err, users.ErrUserEmailEmpty)

	_, _, err = auth.Login(ctx, users.RoleEmployee, "johndoe@email.com", "")
	require.ErrorIs(t, err, users.ErrUserPasswdEmpty)

	// Nothing reached the store, the session or the navigator.
	assert.Empty(t, store.loginCalls)

	_, err = sessions.Get(ctx, session.UserKey)
	require.ErrorIs(t, err, session.ErrKeyNotFound)
	assert.Empty(t, nav.Routes())
}

func TestLoginRegisterFallback(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{token: "jwt-token", loginErrs: []error{errStoreDown}}
	auth, sessions, nav := newTestAuthenticator(store)

	record, token, err := auth.Login(ctx, users.RoleEmployee, "newuser@email.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "jwt-token", token)
	assert.Equal(t, "newuser@email.com", record.Email)

	// First login fails, registration is attempted, then login retried once.
	assert.Equal(t, []string{"newuser@email.com"}, store.registerCalls)
	assert.Len(t, store.loginCalls, 2)

	_, err = sessions.Get(ctx, session.UserKey)
	require.NoError(t, err)
	assert.Equal(t, []navigation.Route{navigation.RouteBills}, nav.Routes())
}

func TestLoginRegisterFallbackFails(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{loginErrs: []error{errStoreDown}, registerErr: errStoreDown}
	auth, sessions, nav := newTestAuthenticator(store)

	_, _, err := auth.Login(ctx, users.RoleEmployee, "newuser@email.com", "secret")
	require.ErrorIs(t, err, ErrLoginFailed)

	_, err = sessions.Get(ctx, session.UserKey)
	require.ErrorIs(t, err, session.ErrKeyNotFound)
	assert.Empty(t, nav.Routes())
}

func TestLoginRetryAfterRegisterFails(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{loginErrs: []error{errStoreDown, errStoreDown}}
	auth, _, nav := newTestAuthenticator(store)

	_, _, err := auth.Login(ctx, users.RoleEmployee, "newuser@email.com", "secret")
	require.ErrorIs(t, err, ErrLoginFailed)

	assert.Len(t, store.loginCalls, 2)
	assert.Empty(t, nav.Routes())
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{token: "jwt-token"}
	auth, _, _ := newTestAuthenticator(store)

	_, err := auth.CurrentUser(ctx)
	require.Error(t, err)

	_, _, err = auth.Login(ctx, users.RoleEmployee, "johndoe@email.com", "azerty")
	require.NoError(t, err)

	record, err := auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "johndoe@email.com", record.Email)
	assert.Equal(t, "connected", record.Status)
}
