package dbmodels

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	Email        string
	PasswordHash string
	Role         string
}

type Bill struct {
	ID           string
	Email        string
	Name         string
	Category     string
	Date         time.Time
	Amount       decimal.Decimal
	VAT          decimal.Decimal
	Pct          int
	Commentary   string
	FileURL      string
	FileName     string
	Status       string
	CommentAdmin string
}
