package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crewfleet/billing-service/domain/entity"
)

const companiesCollection = "companies"

// CompanyRepository implements repository.CompanyRepository on the companies
// collection. The billing counter is stored as a string by the upstream
// system; the counter operations use pipeline updates so read-modify-write
// stays atomic server-side.
type CompanyRepository struct {
	collection *Collection
}

// NewCompanyRepository binds the repository to the client.
func NewCompanyRepository(client *Client) *CompanyRepository {
	return &CompanyRepository{collection: client.Collection(companiesCollection)}
}

func (r *CompanyRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Company, error) {
	var c entity.Company
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}, &c, entity.ErrCompanyNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepository) GetByName(ctx context.Context, name string) (*entity.Company, error) {
	var c entity.Company
	if err := r.collection.FindOne(ctx, bson.M{"company": name}, &c, entity.ErrCompanyNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Company, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*entity.Company
	err := r.collection.FindMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, &out)
	return out, err
}

// counterAsInt reads billing_next_number as an integer, defaulting missing
// or empty values to zero.
func counterAsInt() bson.D {
	return bson.D{{Key: "$toInt", Value: bson.D{{Key: "$ifNull", Value: bson.A{
		bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$billing_next_number", ""}}},
			"0",
			"$billing_next_number",
		}}},
		"0",
	}}}}}
}

// ClaimNextNumber advances the counter by one atomically and returns the
// pre-increment value, the sequence number the caller should assign.
// Concurrent claims for the same company observe distinct values.
func (r *CompanyRepository) ClaimNextNumber(ctx context.Context, id primitive.ObjectID) (int, error) {
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{{
			Key: "billing_next_number",
			Value: bson.D{{Key: "$toString", Value: bson.D{{
				Key: "$add", Value: bson.A{counterAsInt(), 1},
			}}}},
		}}}},
	}

	var before entity.Company
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, &before, entity.ErrCompanyNotFound)
	if err != nil {
		return 0, errors.Wrap(err, "claim billing number")
	}
	return before.NextNumber(), nil
}

// ReleaseNumber walks the counter back by one after the last-issued invoice
// is deleted, clamped at zero.
func (r *CompanyRepository) ReleaseNumber(ctx context.Context, id primitive.ObjectID) error {
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{{
			Key: "billing_next_number",
			Value: bson.D{{Key: "$toString", Value: bson.D{{
				Key: "$max", Value: bson.A{
					0,
					bson.D{{Key: "$subtract", Value: bson.A{counterAsInt(), 1}}},
				},
			}}}},
		}}}},
	}

	var before entity.Company
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, &before, entity.ErrCompanyNotFound)
	return errors.Wrap(err, "release billing number")
}
