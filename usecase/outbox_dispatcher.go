package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/repository"
)

// OutboxDispatcher drains pending notification events in the background and
// hands them to the notifier. Delivery is at-most-once best-effort per
// attempt: a failure is recorded and retried on a later cycle until the
// attempt budget runs out, and never affects the transition that emitted the
// event.
type OutboxDispatcher struct {
	outbox    repository.OutboxRepository
	invoices  repository.InvoiceRepository
	companies repository.CompanyRepository
	notifier  Notifier
	logger    *zap.Logger

	interval    time.Duration
	batchSize   int
	maxAttempts int
}

// NewOutboxDispatcher wires a dispatcher. Zero interval, batch size or
// attempt budget fall back to sane defaults.
func NewOutboxDispatcher(
	outbox repository.OutboxRepository,
	invoices repository.InvoiceRepository,
	companies repository.CompanyRepository,
	notifier Notifier,
	interval time.Duration,
	batchSize int,
	maxAttempts int,
	logger *zap.Logger,
) *OutboxDispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &OutboxDispatcher{
		outbox:      outbox,
		invoices:    invoices,
		companies:   companies,
		notifier:    notifier,
		logger:      logger,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// Run drains the outbox on a fixed interval until the context is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DispatchPending(ctx)
		}
	}
}

// DispatchPending delivers one batch of pending events.
func (d *OutboxDispatcher) DispatchPending(ctx context.Context) {
	events, err := d.outbox.FindPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Warn("failed to read notification outbox", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := d.deliver(ctx, event); err != nil {
			d.recordFailure(ctx, event, err)
			continue
		}
		if err := d.outbox.MarkSent(ctx, event.ID); err != nil {
			d.logger.Warn("failed to mark notification sent",
				zap.String("event_id", event.EventID), zap.Error(err))
		}
	}
}

func (d *OutboxDispatcher) deliver(ctx context.Context, event *entity.NotificationEvent) error {
	data := map[string]interface{}{}

	if !event.CompanyID.IsZero() {
		company, err := d.companies.GetByID(ctx, event.CompanyID)
		if err == nil {
			data["company"] = company
		}
	}
	if !event.InvoiceID.IsZero() {
		inv, err := d.invoices.GetByID(ctx, event.InvoiceID)
		if err == nil {
			data["invoice"] = inv
		}
	}

	msg := &EmailMessage{
		To:            event.To,
		Cc:            event.Cc,
		Subject:       event.Subject,
		Template:      event.Template,
		Data:          data,
		AttachmentKey: event.AttachmentKey,
	}
	if event.AttachmentKey != "" {
		msg.AttachmentName = attachmentName(event.AttachmentKey)
	}
	return d.notifier.SendEmail(ctx, msg)
}

func (d *OutboxDispatcher) recordFailure(ctx context.Context, event *entity.NotificationEvent, cause error) {
	if event.Attempts+1 >= d.maxAttempts {
		d.logger.Error("notification retired after repeated failures",
			zap.String("event_id", event.EventID),
			zap.String("template", event.Template),
			zap.Error(cause))
		if err := d.outbox.MarkFailed(ctx, event.ID, cause.Error()); err != nil {
			d.logger.Warn("failed to retire notification",
				zap.String("event_id", event.EventID), zap.Error(err))
		}
		return
	}

	d.logger.Warn("notification delivery failed, will retry",
		zap.String("event_id", event.EventID),
		zap.Int("attempts", event.Attempts+1),
		zap.Error(cause))
	if err := d.outbox.RecordFailure(ctx, event.ID, cause.Error()); err != nil {
		d.logger.Warn("failed to record notification failure",
			zap.String("event_id", event.EventID), zap.Error(err))
	}
}

func attachmentName(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}
	return key
}
