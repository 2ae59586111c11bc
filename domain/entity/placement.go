package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Answer field names used by the recruitment pipeline. Placements carry a
// free-form answer list; billing only reads the fields below.
const (
	AnswerFieldCompany         = "company"
	AnswerFieldShip            = "ship"
	AnswerFieldPosition        = "position"
	AnswerFieldEmbarkationDate = "embarkation_date"
	AnswerFieldProcessID       = "process_id"
)

// Answer is a single field/value pair from a placement's answer set. Values
// are heterogeneous: company, ship and position hold ObjectIDs,
// embarkation_date holds a timestamp.
type Answer struct {
	Field string      `bson:"field" json:"field"`
	Value interface{} `bson:"answer" json:"answer"`
}

// Placement represents one candidate's recruitment pipeline instance, the
// unit being billed. The billed flag is owned exclusively by the billing
// service; placements themselves are created upstream and never deleted here.
type Placement struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Candidate  primitive.ObjectID   `bson:"candidate,omitempty" json:"candidate"`
	Status     primitive.ObjectID   `bson:"status,omitempty" json:"status"`
	Answers    []Answer             `bson:"answers" json:"answers"`
	Recruiters []primitive.ObjectID `bson:"recruiters,omitempty" json:"recruiters"`
	Billed     bool                 `bson:"billed" json:"billed"`
}

// AnswerValue returns the raw answer for a field, or nil when the field is
// absent.
func (p *Placement) AnswerValue(field string) interface{} {
	for _, a := range p.Answers {
		if a.Field == field {
			return a.Value
		}
	}
	return nil
}

// AnswerID resolves an answer to an ObjectID reference. Empty strings and
// missing fields report ok=false: upstream stores "" for unanswered
// reference fields.
func (p *Placement) AnswerID(field string) (primitive.ObjectID, bool) {
	switch v := p.AnswerValue(field).(type) {
	case primitive.ObjectID:
		return v, !v.IsZero()
	case string:
		if v == "" {
			return primitive.NilObjectID, false
		}
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return primitive.NilObjectID, false
		}
		return id, true
	default:
		return primitive.NilObjectID, false
	}
}

// AnswerTime resolves an answer to a timestamp.
func (p *Placement) AnswerTime(field string) (time.Time, bool) {
	switch v := p.AnswerValue(field).(type) {
	case time.Time:
		return v, true
	case primitive.DateTime:
		return v.Time(), true
	default:
		return time.Time{}, false
	}
}

// CompanyID is the company the placement bills against.
func (p *Placement) CompanyID() (primitive.ObjectID, bool) {
	return p.AnswerID(AnswerFieldCompany)
}

// EmbarkationDate is the candidate's embarkation date, when answered.
func (p *Placement) EmbarkationDate() (time.Time, bool) {
	return p.AnswerTime(AnswerFieldEmbarkationDate)
}
