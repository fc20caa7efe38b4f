//nolint:wrapcheck
package bills

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DGouron/billed/internal/domain/users"
)

var (
	ErrBillIDEmpty             = errors.New("bill id is empty")
	ErrBillNameEmpty           = errors.New("bill name is empty")
	ErrBillCategoryInvalid     = errors.New("bill category is invalid")
	ErrBillDateFormatInvalid   = errors.New("bill date format is invalid")
	ErrBillAmountInvalid       = errors.New("bill amount is invalid")
	ErrBillVATInvalid          = errors.New("bill vat amount is invalid")
	ErrBillPctInvalid          = errors.New("bill vat percentage is invalid")
	ErrBillStatusInvalid       = errors.New("bill status is invalid")
	ErrBillReceiptExtInvalid   = errors.New("bill receipt extension is invalid")
	ErrBillStatusNotReviewable = errors.New("bill status transition is not reviewable")
)

// Status represents the lifecycle stage of a bill.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

func (s Status) String() string {
	return string(s)
}

func ParseStatus(status string) (Status, error) {
	switch status {
	case "pending":
		return StatusPending, nil
	case "accepted":
		return StatusAccepted, nil
	case "refused":
		return StatusRefused, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrBillStatusInvalid, status)
	}
}

// Statuses lists every lifecycle stage in dashboard group order.
func Statuses() []Status {
	return []Status{StatusPending, StatusAccepted, StatusRefused}
}

// Categories is the fixed expense category enumeration.
var Categories = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

func ValidateCategory(category string) error {
	for _, c := range Categories {
		if c == category {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrBillCategoryInvalid, category)
}

// receiptExtensions are the only accepted receipt file extensions.
var receiptExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// ValidateReceiptName checks the receipt file extension, case-insensitively.
func ValidateReceiptName(fileName string) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	if _, ok := receiptExtensions[ext]; !ok {
		return fmt.Errorf("%w: %s", ErrBillReceiptExtInvalid, fileName)
	}

	return nil
}

// DateLayout is the ISO date format bills carry on the wire.
const DateLayout = "2006-01-02"

// DefaultPct is the VAT percentage applied when the form leaves it blank.
const DefaultPct = 20

type Bill struct {
	id           string
	email        string
	name         string
	category     string
	date         time.Time
	amount       decimal.Decimal
	vat          decimal.Decimal
	pct          int
	commentary   string
	fileURL      string
	fileName     string
	status       Status
	commentAdmin string
}

// NewBill assembles a bill from already validated stored state.
func NewBill(
	id, email, name, category, date string,
	amount, vat decimal.Decimal,
	pct int,
	commentary, fileURL, fileName string,
	status Status,
	commentAdmin string,
) (*Bill, error) {
	if id == "" {
		return nil, ErrBillIDEmpty
	}

	if err := users.ValidateEmail(email); err != nil {
		return nil, err
	}

	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBillDateFormatInvalid, date)
	}

	if _, err := ParseStatus(status.String()); err != nil {
		return nil, err
	}

	return &Bill{
		id:           id,
		email:        email,
		name:         name,
		category:     category,
		date:         day,
		amount:       amount,
		vat:          vat,
		pct:          pct,
		commentary:   commentary,
		fileURL:      fileURL,
		fileName:     fileName,
		status:       status,
		commentAdmin: commentAdmin,
	}, nil
}

// CreateBill validates the submitted form state and assembles a fresh
// pending bill with a generated id. A blank pct falls back to DefaultPct.
func CreateBill(
	email, name, category, date string,
	amount, vat decimal.Decimal,
	pct int,
	commentary, fileURL, fileName string,
) (*Bill, error) {
	if name == "" {
		return nil, ErrBillNameEmpty
	}

	if err := ValidateCategory(category); err != nil {
		return nil, err
	}

	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrBillAmountInvalid, amount)
	}

	if pct == 0 {
		pct = DefaultPct
	}

	if pct < 0 || pct > 100 {
		return nil, fmt.Errorf("%w: %d", ErrBillPctInvalid, pct)
	}

	if err := ValidateReceiptName(fileName); err != nil {
		return nil, err
	}

	return NewBill(
		uuid.NewString(), email, name, category, date,
		amount, vat, pct, commentary, fileURL, fileName,
		StatusPending, "",
	)
}

func (b *Bill) ID() string {
	return b.id
}

func (b *Bill) Email() string {
	return b.email
}

func (b *Bill) Name() string {
	return b.name
}

func (b *Bill) Category() string {
	return b.category
}

func (b *Bill) Date() time.Time {
	return b.date
}

// DateString returns the bill date in the ISO wire format.
func (b *Bill) DateString() string {
	return b.date.Format(DateLayout)
}

func (b *Bill) Amount() decimal.Decimal {
	return b.amount
}

func (b *Bill) VAT() decimal.Decimal {
	return b.vat
}

func (b *Bill) Pct() int {
	return b.pct
}

func (b *Bill) Commentary() string {
	return b.commentary
}

func (b *Bill) FileURL() string {
	return b.fileURL
}

func (b *Bill) FileName() string {
	return b.fileName
}

func (b *Bill) Status() Status {
	return b.status
}

func (b *Bill) CommentAdmin() string {
	return b.commentAdmin
}

// Reviewed returns a decided copy of the bill, leaving the receiver
// untouched until the decision is persisted.
func (b *Bill) Reviewed(status Status, commentAdmin string) (*Bill, error) {
	decided := *b

	if err := decided.Review(status, commentAdmin); err != nil {
		return nil, err
	}

	return &decided, nil
}

// Review applies an administrator decision. A bill never moves back to
// pending; accepted and refused may replace one another on re-review.
func (b *Bill) Review(status Status, commentAdmin string) error {
	if _, err := ParseStatus(status.String()); err != nil {
		return err
	}

	if status == StatusPending {
		return ErrBillStatusNotReviewable
	}

	b.status = status
	b.commentAdmin = commentAdmin

	return nil
}
