package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crewfleet/billing-service/domain/entity"
)

// OutboxRepository persists pending notification events emitted by lifecycle
// transitions.
type OutboxRepository interface {
	Insert(ctx context.Context, event *entity.NotificationEvent) error
	// FindPending returns up to limit undelivered events, oldest first.
	FindPending(ctx context.Context, limit int) ([]*entity.NotificationEvent, error)
	MarkSent(ctx context.Context, id primitive.ObjectID) error
	// RecordFailure notes one failed delivery attempt and leaves the event
	// pending for retry.
	RecordFailure(ctx context.Context, id primitive.ObjectID, reason string) error
	// MarkFailed retires the event permanently.
	MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error
}
