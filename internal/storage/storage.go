package storage

import (
	"context"
	"errors"

	"github.com/DGouron/billed/internal/domain/bills"
	"github.com/DGouron/billed/internal/domain/users"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrBillAlreadyExists = errors.New("bill already exists")
	ErrBillNotFound      = errors.New("bill not found")
	ErrBillStatusInvalid = errors.New("bill status transition is invalid")
)

type UserStorage interface {
	GetUser(ctx context.Context, email string) (*users.User, error)
	CreateUser(ctx context.Context, usr *users.User) error
}

type BillStorage interface {
	GetBill(ctx context.Context, id string) (*bills.Bill, error)
	GetBillsByEmail(ctx context.Context, email string) ([]*bills.Bill, error)
	GetBillsByStatus(ctx context.Context, statuses ...bills.Status) ([]*bills.Bill, error)
	ListBills(ctx context.Context) ([]*bills.Bill, error)
	CreateBill(ctx context.Context, bill *bills.Bill) error
	ReviewBill(ctx context.Context, bill *bills.Bill) error
}

type Storage interface {
	UserStorage
	BillStorage
	Close() error
	Ping(ctx context.Context) error
}

func NewStorage(store Storage) Storage {
	return store
}
