// Package submission validates and submits a new bill from form state,
// attaching the uploaded receipt reference.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DGouron/billed/internal/domain/bills"
	"github.com/DGouron/billed/internal/navigation"
	"github.com/DGouron/billed/internal/server/models"
	"github.com/DGouron/billed/internal/session"
)

var (
	// ErrReceiptFormatInvalid carries the validation message shown on the
	// form when the picked file is not an image.
	ErrReceiptFormatInvalid = errors.New("Formats acceptés : jpg, jpeg et png")

	ErrReceiptMissing = errors.New("bill receipt is missing")
	ErrNotLoggedIn    = errors.New("no user session")
)

// Store is the remote bill store the form submits through.
type Store interface {
	CreateReceipt(ctx context.Context, fileName string, content []byte) (*models.ReceiptResponse, error)
	CreateBill(ctx context.Context, payload models.BillPayload) (*bills.Bill, error)
}

// Form mirrors the new-bill form fields as entered.
type Form struct {
	Name       string
	Category   string
	Date       string
	Amount     string
	VAT        string
	Pct        string
	Commentary string
}

type Submission struct {
	log      *slog.Logger
	store    Store
	sessions session.Store
	nav      navigation.Navigator

	mu       sync.Mutex
	fileURL  string
	fileName string
	fileKey  string
}

func New(store Store, sessions session.Store, nav navigation.Navigator, opts ...Option) *Submission {
	s := &Submission{
		log:      slog.New(&slog.JSONHandler{}),
		store:    store,
		sessions: sessions,
		nav:      nav,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type Option func(s *Submission)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Submission) {
		s.log = logger
	}
}

// HandleFileChange uploads the picked receipt when its extension is one of
// png, jpg, jpeg (case-insensitive). A rejected file clears any previously
// stored reference, which makes the later submit fail on the missing
// receipt; it does not block the rest of the form.
func (s *Submission) HandleFileChange(ctx context.Context, fileName string, content []byte) error {
	if err := bills.ValidateReceiptName(fileName); err != nil {
		s.mu.Lock()
		s.fileURL, s.fileName, s.fileKey = "", "", ""
		s.mu.Unlock()

		return ErrReceiptFormatInvalid
	}

	receipt, err := s.store.CreateReceipt(ctx, fileName, content)
	if err != nil {
		return fmt.Errorf("store.CreateReceipt: %w", err)
	}

	s.mu.Lock()
	s.fileURL = receipt.FileURL
	s.fileName = fileName
	s.fileKey = receipt.Key
	s.mu.Unlock()

	return nil
}

// FileReference returns the retained receipt reference, empty until a valid
// file was uploaded.
func (s *Submission) FileReference() (fileURL, fileName, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fileURL, s.fileName, s.fileKey
}

// Submit assembles a pending bill payload from the form state and the
// session user, persists it and navigates to the bills list. A rejected
// create surfaces as an error; no partial bill is kept.
func (s *Submission) Submit(ctx context.Context, form Form) (*bills.Bill, error) {
	record, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	fileURL, fileName := s.fileURL, s.fileName
	s.mu.Unlock()

	if fileName == "" {
		return nil, ErrReceiptMissing
	}

	payload, err := buildPayload(form, record.Email, fileURL, fileName)
	if err != nil {
		return nil, err
	}

	bill, err := s.store.CreateBill(ctx, payload)
	if err != nil {
		s.log.Error("store.CreateBill", slog.Any("error", err))

		return nil, fmt.Errorf("store.CreateBill: %w", err)
	}

	s.mu.Lock()
	s.fileURL, s.fileName, s.fileKey = "", "", ""
	s.mu.Unlock()

	s.nav.Navigate(navigation.RouteBills)

	return bill, nil
}

func buildPayload(form Form, email, fileURL, fileName string) (models.BillPayload, error) {
	if form.Name == "" {
		return models.BillPayload{}, bills.ErrBillNameEmpty
	}

	if err := bills.ValidateCategory(form.Category); err != nil {
		return models.BillPayload{}, err
	}

	if _, err := time.Parse(bills.DateLayout, form.Date); err != nil {
		return models.BillPayload{}, fmt.Errorf("%w: %s", bills.ErrBillDateFormatInvalid, form.Date)
	}

	amount, err := decimal.NewFromString(form.Amount)
	if err != nil || !amount.IsPositive() {
		return models.BillPayload{}, fmt.Errorf("%w: %s", bills.ErrBillAmountInvalid, form.Amount)
	}

	if form.VAT != "" {
		if _, err := decimal.NewFromString(form.VAT); err != nil {
			return models.BillPayload{}, fmt.Errorf("%w: %s", bills.ErrBillVATInvalid, form.VAT)
		}
	}

	pct := bills.DefaultPct

	if form.Pct != "" {
		pct, err = strconv.Atoi(form.Pct)
		if err != nil {
			return models.BillPayload{}, fmt.Errorf("%w: %s", bills.ErrBillPctInvalid, form.Pct)
		}
	}

	return models.BillPayload{
		Email:      email,
		Name:       form.Name,
		Type:       form.Category,
		Date:       form.Date,
		Amount:     amount,
		VAT:        form.VAT,
		Pct:        pct,
		Commentary: form.Commentary,
		FileURL:    fileURL,
		FileName:   fileName,
		Status:     bills.StatusPending.String(),
	}, nil
}

func (s *Submission) currentUser(ctx context.Context) (session.Record, error) {
	value, err := s.sessions.Get(ctx, session.UserKey)
	if err != nil {
		if errors.Is(err, session.ErrKeyNotFound) {
			return session.Record{}, ErrNotLoggedIn
		}

		return session.Record{}, fmt.Errorf("sessions.Get: %w", err)
	}

	record, err := session.DecodeRecord(value)
	if err != nil {
		return session.Record{}, fmt.Errorf("session.DecodeRecord: %w", err)
	}

	return record, nil
}
