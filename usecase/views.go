package usecase

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crewfleet/billing-service/domain/entity"
)

// DisplayDateFormat is the embarkation date format shown on invoices.
const DisplayDateFormat = "01-02-2006"

// CandidateView is a candidate joined onto an invoice item, with the
// computed display name and resolved passport country.
type CandidateView struct {
	ID              primitive.ObjectID `json:"id"`
	FirstName       string             `json:"name"`
	MiddleName      string             `json:"middle_name,omitempty"`
	LastName        string             `json:"lastname"`
	FullName        string             `json:"fullname"`
	PassportNumber  string             `json:"passport_number,omitempty"`
	PassportCountry string             `json:"passport_country,omitempty"`
}

// PlacementView is a placement joined onto an invoice item with its
// reference data resolved to display text.
type PlacementView struct {
	ID              primitive.ObjectID `json:"id"`
	EmbarkationDate string             `json:"embarkation_date"`
	Status          string             `json:"status"`
	Company         string             `json:"company"`
	Recruiters      []*entity.User     `json:"recruiters,omitempty"`
	Billed          bool               `json:"billed"`
}

// ItemView is one display-ready invoice line item.
type ItemView struct {
	Placement *PlacementView   `json:"process"`
	Candidate *CandidateView   `json:"candidate,omitempty"`
	Ship      *entity.Ship     `json:"ship,omitempty"`
	Position  *entity.Position `json:"position,omitempty"`
	Total     float64          `json:"total"`
}

// StatusChangeView is one status-history entry with its display name
// resolved.
type StatusChangeView struct {
	Status string    `json:"status"`
	Date   time.Time `json:"date"`
}

// InvoiceView is the display-ready aggregate of a persisted invoice: every
// line item joined against placement, candidate, status, ship, position and
// country reference data, ordered by candidate full name.
type InvoiceView struct {
	ID            primitive.ObjectID `json:"id"`
	Number        string             `json:"invoice_id"`
	Company       *entity.Company    `json:"company"`
	DateCreated   time.Time          `json:"date_created"`
	Items         []*ItemView        `json:"items"`
	Status        string             `json:"status"`
	StatusHistory []StatusChangeView `json:"status_history"`
	Total         float64            `json:"total"`
	PDFURL        string             `json:"pdf_url,omitempty"`
}
