package entity

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Canonical invoice status names. These are display names resolved against
// the invoiceStatus lookup collection at startup; business logic keys off the
// resolved IDs so operators can rename display text without a code change.
const (
	InvoiceStatusCreated            = "Created"
	InvoiceStatusUnderReview        = "Under review"
	InvoiceStatusSubmittedToCompany = "Submitted to company"
	InvoiceStatusPaid               = "Paid"
)

// Canonical placement status names consumed by eligibility resolution.
const (
	PlacementStatusOnboard       = "Onboard"
	PlacementStatusReturningCrew = "Returning Crew"
)

// LineItem is one billed placement within an invoice. It has no identity of
// its own beyond the placement it references.
type LineItem struct {
	Process primitive.ObjectID `bson:"process" json:"process"`
	Total   float64            `bson:"total" json:"total"`
}

// StatusChange is one entry of an invoice's append-only status history.
type StatusChange struct {
	Status primitive.ObjectID `bson:"status" json:"status"`
	Date   time.Time          `bson:"date" json:"date"`
}

// Invoice is a billing document for one company covering one or more
// placements. Total must always equal the sum of line item totals; Status
// always mirrors the last StatusHistory entry.
type Invoice struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Number        string             `bson:"invoice_id" json:"invoice_id"`
	Company       primitive.ObjectID `bson:"company" json:"company"`
	DateCreated   time.Time          `bson:"date_created" json:"date_created"`
	Items         []LineItem         `bson:"items" json:"items"`
	Status        primitive.ObjectID `bson:"status" json:"status"`
	StatusHistory []StatusChange     `bson:"status_history" json:"status_history"`
	Total         float64            `bson:"total" json:"total"`
}

// RecomputeTotal resets Total to the arithmetic sum of line item totals.
// Called after every item mutation.
func (inv *Invoice) RecomputeTotal() {
	total := 0.0
	for _, item := range inv.Items {
		total += item.Total
	}
	inv.Total = total
}

// ProcessIDs returns the placement references of all line items, in item
// order, duplicates included.
func (inv *Invoice) ProcessIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(inv.Items))
	for _, item := range inv.Items {
		if !item.Process.IsZero() {
			ids = append(ids, item.Process)
		}
	}
	return ids
}

// CurrentStatus returns the status reference of the most recent history
// entry, falling back to the Status field for invoices written before history
// tracking.
func (inv *Invoice) CurrentStatus() primitive.ObjectID {
	if n := len(inv.StatusHistory); n > 0 {
		return inv.StatusHistory[n-1].Status
	}
	return inv.Status
}

// FormatInvoiceNumber zero-pads a company's billing counter to the 4-digit
// sequence format used on invoice documents and PDF filenames.
func FormatInvoiceNumber(counter int) string {
	return fmt.Sprintf("%04d", counter)
}
