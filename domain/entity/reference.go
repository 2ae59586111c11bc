package entity

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InvoiceStatus is one row of the invoiceStatus lookup collection.
type InvoiceStatus struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"status" json:"status"`
}

// PlacementStatus is one row of the processStatus lookup collection.
type PlacementStatus struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"status" json:"status"`
}

// Passport carries the subset of candidate passport data the invoice view
// displays.
type Passport struct {
	Number  string             `bson:"number,omitempty" json:"number"`
	Country primitive.ObjectID `bson:"country,omitempty" json:"country"`
}

// User is a candidate or recruiter record from the users collection.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email      string             `bson:"email,omitempty" json:"email"`
	FirstName  string             `bson:"name,omitempty" json:"name"`
	MiddleName string             `bson:"middle_name,omitempty" json:"middle_name"`
	LastName   string             `bson:"lastname,omitempty" json:"lastname"`
	Passport   Passport           `bson:"passport,omitempty" json:"passport"`
}

// FullName renders the "Last, First Middle" display form invoice items are
// sorted by.
func (u *User) FullName() string {
	name := u.LastName + ", " + u.FirstName
	if u.MiddleName != "" {
		name += " " + u.MiddleName
	}
	return strings.TrimSpace(name)
}

// Ship is a vessel reference record.
type Ship struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name,omitempty" json:"name"`
}

// Position is a job position reference record carrying the flat placement
// fee billed for standard companies.
type Position struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name,omitempty" json:"name"`
	Price float64            `bson:"price,omitempty" json:"price"`
}

// Country is a passport country reference record.
type Country struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name,omitempty" json:"name"`
}
