package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DGouron/billed/internal/domain/users"
)

func TestRecordEncode(t *testing.T) {
	rec := NewRecord(users.RoleEmployee, "johndoe@email.com", "azerty")

	value, err := rec.Encode()
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "Employee",
		"email": "johndoe@email.com",
		"password": "azerty",
		"status": "connected"
	}`, value)
}

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord(`{"type":"Admin","email":"admin@test.tld","password":"admin","status":"connected"}`)
	require.NoError(t, err)

	assert.Equal(t, Record{
		Type:     "Admin",
		Email:    "admin@test.tld",
		Password: "admin",
		Status:   users.StatusConnected,
	}, rec)

	_, err = DecodeRecord("{not json")
	require.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, UserKey)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, UserKey, "value"))

	value, err := store.Get(ctx, UserKey)
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	store, err := NewRedisStore(ctx, srv.Addr(), WithTTL(time.Minute))
	require.NoError(t, err)

	defer store.Close()

	_, err = store.Get(ctx, UserKey)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, UserKey, "value"))

	value, err := store.Get(ctx, UserKey)
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	srv.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, UserKey)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "127.0.0.1:1")
	require.Error(t, err)
}
