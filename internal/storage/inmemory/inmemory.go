package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/DGouron/billed/internal/domain/bills"
	"github.com/DGouron/billed/internal/domain/users"
	"github.com/DGouron/billed/internal/storage"
)

var _ storage.Storage = (*Storage)(nil)

type UserStore struct {
	users map[string]*users.User
	mu    sync.Mutex
}

type BillStore struct {
	bills map[string]*bills.Bill
	mu    sync.Mutex
}

type Storage struct {
	UserStore UserStore
	BillStore BillStore
}

func NewStorage() *Storage {
	return &Storage{
		UserStore: UserStore{
			users: make(map[string]*users.User),
		},
		BillStore: BillStore{
			bills: make(map[string]*bills.Bill),
		},
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) CreateUser(_ context.Context, usr *users.User) error {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	if _, ok := s.UserStore.users[usr.Email()]; ok {
		return storage.ErrUserAlreadyExists
	}

	s.UserStore.users[usr.Email()] = usr

	return nil
}

func (s *Storage) GetUser(_ context.Context, email string) (*users.User, error) {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	user, ok := s.UserStore.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	return user, nil
}

func (s *Storage) CreateBill(_ context.Context, bill *bills.Bill) error {
	s.BillStore.mu.Lock()
	defer s.BillStore.mu.Unlock()

	if _, ok := s.BillStore.bills[bill.ID()]; ok {
		return storage.ErrBillAlreadyExists
	}

	s.BillStore.bills[bill.ID()] = bill

	return nil
}

func (s *Storage) GetBill(_ context.Context, id string) (*bills.Bill, error) {
	s.BillStore.mu.Lock()
	defer s.BillStore.mu.Unlock()

	bill, ok := s.BillStore.bills[id]
	if !ok {
		return nil, storage.ErrBillNotFound
	}

	return bill, nil
}

func (s *Storage) GetBillsByEmail(_ context.Context, email string) ([]*bills.Bill, error) {
	s.BillStore.mu.Lock()
	defer s.BillStore.mu.Unlock()

	var billList []*bills.Bill

	for _, bill := range s.BillStore.bills {
		if bill.Email() == email {
			billList = append(billList, bill)
		}
	}

	sortBillsByDate(billList)

	return billList, nil
}

func (s *Storage) GetBillsByStatus(_ context.Context, statuses ...bills.Status) ([]*bills.Bill, error) {
	s.BillStore.mu.Lock()
	defer s.BillStore.mu.Unlock()

	var billList []*bills.Bill

	for _, bill := range s.BillStore.bills {
		if len(statuses) == 0 {
			billList = append(billList, bill)

			continue
		}

		for _, status := range statuses {
			if bill.Status() == status {
				billList = append(billList, bill)

				break
			}
		}
	}

	sortBillsByDate(billList)

	return billList, nil
}

func (s *Storage) ListBills(ctx context.Context) ([]*bills.Bill, error) {
	return s.GetBillsByStatus(ctx)
}

func (s *Storage) ReviewBill(_ context.Context, bill *bills.Bill) error {
	s.BillStore.mu.Lock()
	defer s.BillStore.mu.Unlock()

	stored, ok := s.BillStore.bills[bill.ID()]
	if !ok {
		return storage.ErrBillNotFound
	}

	// A decided bill never returns to pending.
	if bill.Status() == bills.StatusPending {
		return storage.ErrBillStatusInvalid
	}

	if err := stored.Review(bill.Status(), bill.CommentAdmin()); err != nil {
		return storage.ErrBillStatusInvalid
	}

	return nil
}

func sortBillsByDate(billList []*bills.Bill) {
	sort.Slice(billList, func(i, j int) bool {
		if billList[i].Date().Equal(billList[j].Date()) {
			return billList[i].ID() < billList[j].ID()
		}

		return billList[i].Date().After(billList[j].Date())
	})
}
