package users

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserEmailEmpty  = errors.New("user email is empty")
	ErrUserPasswdEmpty = errors.New("user password is empty")
	ErrUserRoleInvalid = errors.New("user role is invalid")
)

// Role determines the landing route and mutation rights of a user.
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleAdmin    Role = "Admin"
)

func (r Role) String() string {
	return string(r)
}

func ParseRole(role string) (Role, error) {
	switch role {
	case "Employee":
		return RoleEmployee, nil
	case "Admin":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUserRoleInvalid, role)
	}
}

// StatusConnected is the only session status a persisted user record carries.
const StatusConnected = "connected"

type User struct {
	email        string
	passwordHash string
	role         Role
}

// NewUser assembles a user from an already hashed password.
func NewUser(email, passwordHash string, role Role) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	if _, err := ParseRole(role.String()); err != nil {
		return nil, err
	}

	return &User{
		email:        email,
		passwordHash: passwordHash,
		role:         role,
	}, nil
}

// CreateUser hashes the plain password and assembles a new user.
func CreateUser(email, password string, role Role) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := getPasswordHash(password)
	if err != nil {
		return nil, fmt.Errorf("getPasswordHash: %w", err)
	}

	return NewUser(email, passwordHash, role)
}

func (u *User) Email() string {
	return u.email
}

func (u *User) PasswordHash() string {
	return u.passwordHash
}

func (u *User) Role() Role {
	return u.role
}

func getPasswordHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	return string(hash), nil
}

// ValidateEmail only rejects empty input. Malformed addresses are passed
// through to the store, which may reject them.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrUserEmailEmpty
	}

	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrUserPasswdEmpty
	}

	return nil
}
