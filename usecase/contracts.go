package usecase

import (
	"context"
	"time"
)

// DocumentRenderer turns an enriched invoice into a stored paginated PDF and
// returns the object key it was written under.
type DocumentRenderer interface {
	Render(ctx context.Context, view *InvoiceView) (string, error)
}

// ObjectStorage issues presigned GET URLs for stored documents.
type ObjectStorage interface {
	PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// EmailMessage is one rendered notification handed to the notifier.
type EmailMessage struct {
	To             []string
	Cc             []string
	Subject        string
	Template       string
	Data           map[string]interface{}
	AttachmentKey  string
	AttachmentName string
}

// Notifier delivers notification emails. Delivery is best-effort from the
// caller's perspective; failures are reported but never block a lifecycle
// transition.
type Notifier interface {
	SendEmail(ctx context.Context, msg *EmailMessage) error
}

// NotificationConfig carries the operational addressing for outbound mail.
type NotificationConfig struct {
	// OpsAddress receives internal build notifications and the
	// no-processes-to-bill notice.
	OpsAddress string
	// ProductionCc is copied on invoices sent to companies in production.
	ProductionCc []string
	// TestingInbox replaces the cc list outside production.
	TestingInbox string
	Production   bool
	// PresignTTL bounds the lifetime of PDF download links.
	PresignTTL time.Duration
}

// CcList returns the carbon-copy list for company-facing mail under the
// current environment.
func (c NotificationConfig) CcList() []string {
	if c.Production {
		return c.ProductionCc
	}
	if c.TestingInbox == "" {
		return nil
	}
	return []string{c.TestingInbox}
}
