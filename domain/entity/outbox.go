package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification templates rendered by the dispatcher.
const (
	TemplateInvoiceGenerated      = "invoice_generated"
	TemplateInvoiceGeneratedAdmin = "invoice_generated_admin"
	TemplateNoProcessesToBill     = "no_processes_to_bill"
)

// Outbox event delivery states.
const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

// NotificationEvent is one pending email emitted by a lifecycle transition.
// Transitions write events transactionally with their own state change; the
// dispatcher delivers them best-effort afterwards, so a delivery failure
// never rolls back the transition that emitted the event.
type NotificationEvent struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID       string             `bson:"event_id" json:"event_id"`
	Template      string             `bson:"template" json:"template"`
	To            []string           `bson:"to" json:"to"`
	Cc            []string           `bson:"cc,omitempty" json:"cc"`
	Subject       string             `bson:"subject" json:"subject"`
	InvoiceID     primitive.ObjectID `bson:"invoice,omitempty" json:"invoice"`
	CompanyID     primitive.ObjectID `bson:"company,omitempty" json:"company"`
	AttachmentKey string             `bson:"attachment_key,omitempty" json:"attachment_key"`
	Status        string             `bson:"status" json:"status"`
	Attempts      int                `bson:"attempts" json:"attempts"`
	LastError     string             `bson:"last_error,omitempty" json:"last_error"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	SentAt        *time.Time         `bson:"sent_at,omitempty" json:"sent_at"`
}
