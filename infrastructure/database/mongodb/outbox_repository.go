package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crewfleet/billing-service/domain/entity"
)

const outboxCollection = "billingOutbox"

// OutboxRepository implements repository.OutboxRepository on the
// billingOutbox collection.
type OutboxRepository struct {
	collection *Collection
}

// NewOutboxRepository binds the repository to the client.
func NewOutboxRepository(client *Client) *OutboxRepository {
	return &OutboxRepository{collection: client.Collection(outboxCollection)}
}

func (r *OutboxRepository) Insert(ctx context.Context, event *entity.NotificationEvent) error {
	id, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return err
	}
	event.ID = id
	return nil
}

// FindPending returns up to limit undelivered events, oldest first.
func (r *OutboxRepository) FindPending(ctx context.Context, limit int) ([]*entity.NotificationEvent, error) {
	var out []*entity.NotificationEvent
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	err := r.collection.FindMany(ctx, bson.M{"status": entity.OutboxStatusPending}, &out, opts)
	return out, err
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	return r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"status": entity.OutboxStatusSent, "sent_at": now},
		"$inc": bson.M{"attempts": 1},
	})
}

func (r *OutboxRepository) RecordFailure(ctx context.Context, id primitive.ObjectID, reason string) error {
	return r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"last_error": reason},
		"$inc": bson.M{"attempts": 1},
	})
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error {
	return r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"status": entity.OutboxStatusFailed, "last_error": reason},
		"$inc": bson.M{"attempts": 1},
	})
}
