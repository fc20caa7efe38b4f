package review

import (
	"fmt"
	"strings"

	"github.com/DGouron/billed/internal/domain/bills"
)

// previewWidthPct scales the receipt image inside its modal container.
const previewWidthPct = 80

// GroupView is the rendered state of one status group. Cards is empty
// while the group is collapsed; Expanded doubles as the arrow rotation.
type GroupView struct {
	Status   bills.Status
	Expanded bool
	Cards    []Card
}

// Card is the list rendition of one bill under review.
type Card struct {
	ID        string
	FirstName string
	LastName  string
	Name      string
	Amount    string
	Date      string
	Category  string
}

// TicketView is the detail pane rendition of the open ticket.
type TicketView struct {
	ID           string
	Email        string
	Name         string
	Category     string
	Date         string
	Amount       string
	VAT          string
	Pct          int
	Commentary   string
	FileURL      string
	FileName     string
	Status       bills.Status
	CommentAdmin string
}

// PreviewView is the receipt modal rendition.
type PreviewView struct {
	FileURL  string
	WidthPct int
}

func buildCards(billList []*bills.Bill) []Card {
	cards := make([]Card, 0, len(billList))
	for _, bill := range billList {
		cards = append(cards, buildCard(bill))
	}

	return cards
}

func buildCard(bill *bills.Bill) Card {
	firstName, lastName := splitEmailName(bill.Email())

	return Card{
		ID:        bill.ID(),
		FirstName: firstName,
		LastName:  lastName,
		Name:      bill.Name(),
		Amount:    fmt.Sprintf("%s €", bill.Amount()),
		Date:      formatDate(bill),
		Category:  bill.Category(),
	}
}

func buildTicketView(bill *bills.Bill) *TicketView {
	return &TicketView{
		ID:           bill.ID(),
		Email:        bill.Email(),
		Name:         bill.Name(),
		Category:     bill.Category(),
		Date:         formatDate(bill),
		Amount:       fmt.Sprintf("%s €", bill.Amount()),
		VAT:          bill.VAT().String(),
		Pct:          bill.Pct(),
		Commentary:   bill.Commentary(),
		FileURL:      bill.FileURL(),
		FileName:     bill.FileName(),
		Status:       bill.Status(),
		CommentAdmin: bill.CommentAdmin(),
	}
}

// splitEmailName derives the submitter's first and last name from the email
// local part: "jane.doe@x" gives ("jane", "doe"), "janedoe@x" gives
// ("", "janedoe").
func splitEmailName(email string) (firstName, lastName string) {
	localPart := strings.SplitN(email, "@", 2)[0]

	if !strings.Contains(localPart, ".") {
		return "", localPart
	}

	parts := strings.SplitN(localPart, ".", 2)

	return parts[0], parts[1]
}

var frenchMonths = [...]string{
	"Jan.", "Fév.", "Mar.", "Avr.", "Mai", "Juin",
	"Juil.", "Aoû.", "Sep.", "Oct.", "Nov.", "Déc.",
}

// formatDate renders a bill date the way the dashboard cards show it,
// e.g. "22 Mar. 23".
func formatDate(bill *bills.Bill) string {
	date := bill.Date()

	return fmt.Sprintf("%d %s %02d", date.Day(), frenchMonths[date.Month()-1], date.Year()%100)
}
