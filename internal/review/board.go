// Package review implements the admin dashboard workflow: bills grouped by
// status, per-group and per-ticket expand state, and the accept/refuse
// decisions that resolve a bill.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/DGouron/billed/internal/domain/bills"
	"github.com/DGouron/billed/internal/navigation"
	"github.com/DGouron/billed/internal/server/models"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTicketNotOpen  = errors.New("no ticket is open")
)

// GroupState is the expand state of one status group.
type GroupState int

const (
	GroupCollapsed GroupState = iota
	GroupExpanded
)

// TicketState is the expand state of one ticket, keyed by bill id.
type TicketState int

const (
	TicketClosed TicketState = iota
	TicketOpen
)

// Store is the remote bill store the dashboard reads and decides through.
type Store interface {
	ListBills(ctx context.Context) ([]*bills.Bill, error)
	UpdateBill(ctx context.Context, data, selector string) (*bills.Bill, error)
}

type Board struct {
	log        *slog.Logger
	store      Store
	nav        navigation.Navigator
	excluded   map[string]struct{}
	adminEmail string
	failOpen   bool

	mu           sync.Mutex
	bills        []*bills.Bill
	groupStates  map[bills.Status]GroupState
	ticketStates map[string]TicketState
	openTicketID string
}

func New(store Store, nav navigation.Navigator, opts ...Option) *Board {
	b := &Board{
		log:          slog.New(&slog.JSONHandler{}),
		store:        store,
		nav:          nav,
		excluded:     make(map[string]struct{}),
		groupStates:  make(map[bills.Status]GroupState),
		ticketStates: make(map[string]TicketState),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

type Option func(b *Board)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Board) {
		b.log = logger
	}
}

// WithExcludedAccounts injects the test/system account denylist filtered
// out of the aggregate view.
func WithExcludedAccounts(emails []string) Option {
	return func(b *Board) {
		for _, email := range emails {
			b.excluded[email] = struct{}{}
		}
	}
}

// WithAdminEmail excludes the reviewing admin's own submissions.
func WithAdminEmail(email string) Option {
	return func(b *Board) {
		b.adminEmail = email
	}
}

// WithFailOpen logs a failed decision instead of returning it and navigates
// away anyway. Default is fail-closed, where the error returns to the caller
// and the board stays put.
func WithFailOpen(failOpen bool) Option {
	return func(b *Board) {
		b.failOpen = failOpen
	}
}

// Refresh fetches all bills. A rejected list call propagates its error; no
// partial or cached list is substituted.
func (b *Board) Refresh(ctx context.Context) error {
	billList, err := b.store.ListBills(ctx)
	if err != nil {
		return fmt.Errorf("store.ListBills: %w", err)
	}

	b.mu.Lock()
	b.bills = billList
	b.mu.Unlock()

	return nil
}

// FilteredBills returns the bills of one status group, minus excluded
// accounts and the admin's own submissions.
func (b *Board) FilteredBills(status bills.Status) []*bills.Bill {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.filteredBillsLocked(status)
}

func (b *Board) filteredBillsLocked(status bills.Status) []*bills.Bill {
	var filtered []*bills.Bill

	for _, bill := range b.bills {
		if bill.Status() != status {
			continue
		}

		if _, ok := b.excluded[bill.Email()]; ok {
			continue
		}

		if b.adminEmail != "" && bill.Email() == b.adminEmail {
			continue
		}

		filtered = append(filtered, bill)
	}

	return filtered
}

// ToggleGroup flips one status group between collapsed and expanded.
// Expanding recomputes membership and renders the group's cards; collapsing
// clears them. Two toggles return the group to its original collapsed view.
func (b *Board) ToggleGroup(_ context.Context, status bills.Status) (*GroupView, error) {
	if _, err := bills.ParseStatus(status.String()); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.groupStates[status] == GroupCollapsed {
		b.groupStates[status] = GroupExpanded

		return &GroupView{
			Status:   status,
			Expanded: true,
			Cards:    buildCards(b.filteredBillsLocked(status)),
		}, nil
	}

	b.groupStates[status] = GroupCollapsed

	return &GroupView{
		Status:   status,
		Expanded: false,
	}, nil
}

// GroupStates returns a snapshot of every group's expand state.
func (b *Board) GroupStates() map[bills.Status]GroupState {
	b.mu.Lock()
	defer b.mu.Unlock()

	states := make(map[bills.Status]GroupState, len(bills.Statuses()))
	for _, status := range bills.Statuses() {
		states[status] = b.groupStates[status]
	}

	return states
}

// OpenTicket flips one ticket between closed and open. Opening a ticket
// while a different one is open closes the previous one first, so the new
// ticket never inherits stale state. A nil view means the ticket closed.
func (b *Board) OpenTicket(id string) (*TicketView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bill := b.findBillLocked(id)
	if bill == nil {
		return nil, ErrTicketNotFound
	}

	if b.openTicketID != "" && b.openTicketID != id {
		b.ticketStates[b.openTicketID] = TicketClosed
	}

	if b.ticketStates[id] == TicketOpen {
		b.ticketStates[id] = TicketClosed
		b.openTicketID = ""

		return nil, nil
	}

	b.ticketStates[id] = TicketOpen
	b.openTicketID = id

	return buildTicketView(bill), nil
}

// OpenTicketID returns the currently open ticket id, empty when none is.
func (b *Board) OpenTicketID() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.openTicketID
}

// TicketStates returns a snapshot of the per-ticket expand states.
func (b *Board) TicketStates() map[string]TicketState {
	b.mu.Lock()
	defer b.mu.Unlock()

	states := make(map[string]TicketState, len(b.ticketStates))
	for id, state := range b.ticketStates {
		states[id] = state
	}

	return states
}

// Preview returns the receipt modal view for the open ticket, scaled to 80%
// of its container width. It is a no-op (nil) when no ticket is open or the
// ticket has no receipt.
func (b *Board) Preview() *PreviewView {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.openTicketID == "" {
		return nil
	}

	bill := b.findBillLocked(b.openTicketID)
	if bill == nil || bill.FileURL() == "" {
		return nil
	}

	return &PreviewView{
		FileURL:  bill.FileURL(),
		WidthPct: previewWidthPct,
	}
}

// Accept resolves the open ticket as accepted.
func (b *Board) Accept(ctx context.Context, id, commentAdmin string) error {
	return b.decide(ctx, id, bills.StatusAccepted, commentAdmin)
}

// Refuse resolves the open ticket as refused.
func (b *Board) Refuse(ctx context.Context, id, commentAdmin string) error {
	return b.decide(ctx, id, bills.StatusRefused, commentAdmin)
}

func (b *Board) decide(ctx context.Context, id string, status bills.Status, commentAdmin string) error {
	b.mu.Lock()

	if b.openTicketID != id {
		b.mu.Unlock()

		return ErrTicketNotOpen
	}

	bill := b.findBillLocked(id)
	if bill == nil {
		b.mu.Unlock()

		return ErrTicketNotFound
	}

	b.mu.Unlock()

	decided, err := bill.Reviewed(status, commentAdmin)
	if err != nil {
		return fmt.Errorf("bill.Reviewed: %w", err)
	}

	data, err := json.Marshal(models.BillPayloadFrom(decided))
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if _, err := b.store.UpdateBill(ctx, string(data), decided.ID()); err != nil {
		b.log.Error("store.UpdateBill", slog.Any("error", err))

		if !b.failOpen {
			return fmt.Errorf("store.UpdateBill: %w", err)
		}
	}

	b.reset()
	b.nav.Navigate(navigation.RouteDashboard)

	return nil
}

// reset drops all transient dashboard state; the navigation that follows a
// decision triggers a full re-render and re-fetch.
func (b *Board) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.groupStates = make(map[bills.Status]GroupState)
	b.ticketStates = make(map[string]TicketState)
	b.openTicketID = ""
}

func (b *Board) findBillLocked(id string) *bills.Bill {
	for _, bill := range b.bills {
		if bill.ID() == id {
			return bill
		}
	}

	return nil
}
