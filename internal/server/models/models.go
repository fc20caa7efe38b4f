package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/DGouron/billed/internal/domain/bills"
)

type UserRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=Employee Admin"`
}

type LoginResponse struct {
	JWT string `json:"jwt"`
}

type ReceiptResponse struct {
	FileURL string `json:"fileUrl"`
	Key     string `json:"key"`
}

// BillPayload is the wire shape of a bill: the category travels as "type"
// and the VAT amount as a string.
type BillPayload struct {
	ID           string          `json:"id,omitempty"`
	Email        string          `json:"email"`
	Name         string          `json:"name" validate:"required"`
	Type         string          `json:"type" validate:"required"`
	Date         string          `json:"date" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	VAT          string          `json:"vat"`
	Pct          int             `json:"pct"`
	Commentary   string          `json:"commentary"`
	FileURL      string          `json:"fileUrl"`
	FileName     string          `json:"fileName"`
	Status       string          `json:"status,omitempty"`
	CommentAdmin string          `json:"commentAdmin,omitempty"`
}

// BillPayloadFrom flattens a domain bill into its wire shape.
func BillPayloadFrom(bill *bills.Bill) BillPayload {
	vat := ""
	if !bill.VAT().IsZero() {
		vat = bill.VAT().String()
	}

	return BillPayload{
		ID:           bill.ID(),
		Email:        bill.Email(),
		Name:         bill.Name(),
		Type:         bill.Category(),
		Date:         bill.DateString(),
		Amount:       bill.Amount(),
		VAT:          vat,
		Pct:          bill.Pct(),
		Commentary:   bill.Commentary(),
		FileURL:      bill.FileURL(),
		FileName:     bill.FileName(),
		Status:       bill.Status().String(),
		CommentAdmin: bill.CommentAdmin(),
	}
}

// BillPayloadsFrom maps a bill list into wire payloads.
func BillPayloadsFrom(billList []*bills.Bill) []BillPayload {
	payloads := make([]BillPayload, 0, len(billList))
	for _, bill := range billList {
		payloads = append(payloads, BillPayloadFrom(bill))
	}

	return payloads
}

// ParseVAT converts the wire VAT string into a decimal. Blank means zero.
func (p BillPayload) ParseVAT() (decimal.Decimal, error) {
	if p.VAT == "" {
		return decimal.Zero, nil
	}

	vat, err := decimal.NewFromString(p.VAT)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decimal.NewFromString: %w", err)
	}

	return vat, nil
}

// ToBill rehydrates a stored bill from its wire shape.
func (p BillPayload) ToBill() (*bills.Bill, error) {
	vat, err := p.ParseVAT()
	if err != nil {
		return nil, err
	}

	bill, err := bills.NewBill(
		p.ID, p.Email, p.Name, p.Type, p.Date,
		p.Amount, vat, p.Pct, p.Commentary,
		p.FileURL, p.FileName,
		bills.Status(p.Status), p.CommentAdmin,
	)
	if err != nil {
		return nil, fmt.Errorf("bills.NewBill: %w", err)
	}

	return bill, nil
}

type JSONResponse struct {
	Message any `json:"message,omitempty"`
	Error   any `json:"error,omitempty"`
}
