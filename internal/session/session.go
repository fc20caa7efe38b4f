package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DGouron/billed/internal/domain/users"
)

var ErrKeyNotFound = errors.New("session key not found")

// UserKey is the only key the core writes to the session store.
const UserKey = "user"

// Store abstracts the key-value session persistence for the logged-in user.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Record is the persisted user record, exact wire shape kept for
// compatibility with pre-existing sessions.
type Record struct {
	Type     string `json:"type"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Status   string `json:"status"`
}

// NewRecord builds a connected-user record for the given role.
func NewRecord(role users.Role, email, password string) Record {
	return Record{
		Type:     role.String(),
		Email:    email,
		Password: password,
		Status:   users.StatusConnected,
	}
}

func (r Record) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("json.Marshal: %w", err)
	}

	return string(data), nil
}

func DecodeRecord(value string) (Record, error) {
	var rec Record

	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return Record{}, fmt.Errorf("json.Unmarshal: %w", err)
	}

	return rec, nil
}
