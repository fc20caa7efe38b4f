package inmemory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DGouron/billed/internal/domain/bills"
	"github.com/DGouron/billed/internal/domain/users"
	"github.com/DGouron/billed/internal/storage"
)

func newTestBill(t *testing.T, email, name, date string, status bills.Status) *bills.Bill {
	t.Helper()

	bill, err := bills.NewBill(
		name+"-"+date, email, name, "Transports", date,
		decimal.NewFromInt(100), decimal.NewFromInt(20), 20,
		"", "", "test.png", status, "",
	)
	require.NoError(t, err)

	return bill
}

func TestUserStorage(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	usr, err := users.NewUser("johndoe@email.com", "hash", users.RoleEmployee)
	require.NoError(t, err)

	_, err = store.GetUser(ctx, "johndoe@email.com")
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	require.NoError(t, store.CreateUser(ctx, usr))
	require.ErrorIs(t, store.CreateUser(ctx, usr), storage.ErrUserAlreadyExists)

	got, err := store.GetUser(ctx, "johndoe@email.com")
	require.NoError(t, err)
	assert.Equal(t, users.RoleEmployee, got.Role())
}

func TestBillStorage(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	bill := newTestBill(t, "johndoe@email.com", "train", "2023-03-22", bills.StatusPending)

	_, err := store.GetBill(ctx, bill.ID())
	require.ErrorIs(t, err, storage.ErrBillNotFound)

	require.NoError(t, store.CreateBill(ctx, bill))
	require.ErrorIs(t, store.CreateBill(ctx, bill), storage.ErrBillAlreadyExists)

	got, err := store.GetBill(ctx, bill.ID())
	require.NoError(t, err)
	assert.Equal(t, bill.ID(), got.ID())
}

func TestGetBillsByEmail(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	older := newTestBill(t, "johndoe@email.com", "hotel", "2023-01-10", bills.StatusPending)
	newer := newTestBill(t, "johndoe@email.com", "taxi", "2023-03-22", bills.StatusPending)
	other := newTestBill(t, "janedoe@email.com", "train", "2023-02-01", bills.StatusPending)

	for _, bill := range []*bills.Bill{older, newer, other} {
		require.NoError(t, store.CreateBill(ctx, bill))
	}

	billList, err := store.GetBillsByEmail(ctx, "johndoe@email.com")
	require.NoError(t, err)
	require.Len(t, billList, 2)

	// Newest first.
	assert.Equal(t, newer.ID(), billList[0].ID())
	assert.Equal(t, older.ID(), billList[1].ID())
}

func TestGetBillsByStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	pending := newTestBill(t, "a@test.tld", "pending", "2023-01-01", bills.StatusPending)
	accepted := newTestBill(t, "a@test.tld", "accepted", "2023-01-02", bills.StatusAccepted)
	refused := newTestBill(t, "a@test.tld", "refused", "2023-01-03", bills.StatusRefused)

	for _, bill := range []*bills.Bill{pending, accepted, refused} {
		require.NoError(t, store.CreateBill(ctx, bill))
	}

	billList, err := store.GetBillsByStatus(ctx, bills.StatusAccepted)
	require.NoError(t, err)
	require.Len(t, billList, 1)
	assert.Equal(t, accepted.ID(), billList[0].ID())

	billList, err = store.GetBillsByStatus(ctx, bills.StatusAccepted, bills.StatusRefused)
	require.NoError(t, err)
	assert.Len(t, billList, 2)

	billList, err = store.ListBills(ctx)
	require.NoError(t, err)
	assert.Len(t, billList, 3)
}

func TestReviewBill(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	bill := newTestBill(t, "johndoe@email.com", "hotel", "2023-03-22", bills.StatusPending)
	require.NoError(t, store.CreateBill(ctx, bill))

	decided, err := bill.Reviewed(bills.StatusAccepted, "ok")
	require.NoError(t, err)

	require.NoError(t, store.ReviewBill(ctx, decided))

	got, err := store.GetBill(ctx, bill.ID())
	require.NoError(t, err)
	assert.Equal(t, bills.StatusAccepted, got.Status())
	assert.Equal(t, "ok", got.CommentAdmin())

	// A decision may flip, never reopen.
	flipped, err := got.Reviewed(bills.StatusRefused, "non conforme")
	require.NoError(t, err)
	require.NoError(t, store.ReviewBill(ctx, flipped))

	got, err = store.GetBill(ctx, bill.ID())
	require.NoError(t, err)
	assert.Equal(t, bills.StatusRefused, got.Status())
}

func TestReviewBillErrors(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	missing := newTestBill(t, "a@test.tld", "ghost", "2023-01-01", bills.StatusAccepted)
	require.ErrorIs(t, store.ReviewBill(ctx, missing), storage.ErrBillNotFound)

	pending := newTestBill(t, "a@test.tld", "pending", "2023-01-01", bills.StatusPending)
	require.NoError(t, store.CreateBill(ctx, pending))
	require.ErrorIs(t, store.ReviewBill(ctx, pending), storage.ErrBillStatusInvalid)
}
