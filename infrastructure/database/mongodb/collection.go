package mongodb

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/crewfleet/billing-service/domain/entity"
)

// Collection is a breaker-protected handle on one MongoDB collection. Every
// operation applies the client's query timeout.
type Collection struct {
	name       string
	collection *mongo.Collection
	breaker    *gobreaker.CircuitBreaker
	timeout    time.Duration
	logger     *zap.Logger
}

func (c *Collection) execute(ctx context.Context, op func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return c.breaker.Execute(func() (interface{}, error) {
		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		result, err := op(opCtx)
		if err != nil && err != mongo.ErrNoDocuments {
			c.logger.Error("mongodb operation failed",
				zap.String("collection", c.name),
				zap.Error(err))
		}
		return result, err
	})
}

// FindOne decodes the first document matching the filter into dest. A miss
// returns the supplied notFound error.
func (c *Collection) FindOne(ctx context.Context, filter bson.M, dest interface{}, notFound error) error {
	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		err := c.collection.FindOne(ctx, filter).Decode(dest)
		if err == mongo.ErrNoDocuments {
			return nil, notFound
		}
		return nil, err
	})
	return err
}

// FindMany decodes every document matching the filter into dest, which must
// be a pointer to a slice.
func (c *Collection) FindMany(ctx context.Context, filter bson.M, dest interface{}, opts ...*options.FindOptions) error {
	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		cursor, err := c.collection.Find(ctx, filter, opts...)
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)
		return nil, cursor.All(ctx, dest)
	})
	return err
}

// Paginate decodes one page of matching documents into dest and returns the
// total page count. Requesting a page past the result set fails with
// entity.ErrPageNotFound; an empty result set yields zero pages without
// error.
func (c *Collection) Paginate(ctx context.Context, filter bson.M, page, pageSize int, sort bson.D, dest interface{}) (int, error) {
	result, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		total, err := c.collection.CountDocuments(ctx, filter)
		if err != nil {
			return 0, err
		}
		if total == 0 {
			return 0, nil
		}

		skip := int64(page-1) * int64(pageSize)
		if total <= skip {
			return 0, entity.ErrPageNotFound
		}

		opts := options.Find().
			SetSort(sort).
			SetSkip(skip).
			SetLimit(int64(pageSize))
		cursor, err := c.collection.Find(ctx, filter, opts)
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)
		if err := cursor.All(ctx, dest); err != nil {
			return 0, err
		}

		totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
		return int(totalPages), nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// InsertOne inserts a document and returns its generated ObjectID.
func (c *Collection) InsertOne(ctx context.Context, doc interface{}) (primitive.ObjectID, error) {
	result, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		res, err := c.collection.InsertOne(ctx, doc)
		if err != nil {
			return primitive.NilObjectID, err
		}
		id, _ := res.InsertedID.(primitive.ObjectID)
		return id, nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return result.(primitive.ObjectID), nil
}

// UpdateByID applies the update document to one document by ID.
func (c *Collection) UpdateByID(ctx context.Context, id primitive.ObjectID, update interface{}) error {
	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return c.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	})
	return err
}

// FindOneAndUpdate applies the update to one document and decodes the
// pre-update document into dest. A miss returns the supplied notFound error.
func (c *Collection) FindOneAndUpdate(ctx context.Context, filter bson.M, update interface{}, dest interface{}, notFound error) error {
	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
		err := c.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(dest)
		if err == mongo.ErrNoDocuments {
			return nil, notFound
		}
		return nil, err
	})
	return err
}

// BulkSet applies a $set of the same fields to every given ID in one bulk
// write.
func (c *Collection) BulkSet(ctx context.Context, ids []primitive.ObjectID, fields bson.M) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		models := make([]mongo.WriteModel, 0, len(ids))
		for _, id := range ids {
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": id}).
				SetUpdate(bson.M{"$set": fields}))
		}
		return c.collection.BulkWrite(ctx, models)
	})
	return err
}

// DeleteByID removes one document by ID.
func (c *Collection) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return c.collection.DeleteOne(ctx, bson.M{"_id": id})
	})
	return err
}
