package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/repository"
)

const processesCollection = "processes"

// PlacementRepository implements repository.PlacementRepository on the
// processes collection.
type PlacementRepository struct {
	collection *Collection
}

// NewPlacementRepository binds the repository to the client.
func NewPlacementRepository(client *Client) *PlacementRepository {
	return &PlacementRepository{collection: client.Collection(processesCollection)}
}

func (r *PlacementRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Placement, error) {
	var p entity.Placement
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}, &p, entity.ErrPlacementNotFound); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlacementRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Placement, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*entity.Placement
	err := r.collection.FindMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, &out)
	return out, err
}

// FindBillable translates a BillableQuery into the answers $elemMatch filter
// shape the recruitment pipeline stores placements in.
func (r *PlacementRepository) FindBillable(ctx context.Context, q repository.BillableQuery) ([]*entity.Placement, error) {
	filter := bson.M{"billed": q.Billed}

	if len(q.StatusIDs) > 0 {
		filter["status"] = bson.M{"$in": q.StatusIDs}
	}

	var clauses []bson.M
	if len(q.CompanyIDs) > 0 {
		clauses = append(clauses, bson.M{
			"answers": bson.M{"$elemMatch": bson.M{
				"field":  entity.AnswerFieldCompany,
				"answer": bson.M{"$in": q.CompanyIDs},
			}},
		})
	}
	if dateRange := embarkationRange(q); dateRange != nil {
		clauses = append(clauses, bson.M{
			"answers": bson.M{"$elemMatch": bson.M{
				"field":  entity.AnswerFieldEmbarkationDate,
				"answer": dateRange,
			}},
		})
	}
	if len(clauses) > 0 {
		filter["$and"] = clauses
	}

	var out []*entity.Placement
	err := r.collection.FindMany(ctx, filter, &out)
	return out, err
}

func embarkationRange(q repository.BillableQuery) bson.M {
	dateRange := bson.M{}
	if !q.EmbarkationFrom.IsZero() {
		dateRange["$gte"] = q.EmbarkationFrom
	}
	if !q.EmbarkationTo.IsZero() {
		dateRange["$lte"] = q.EmbarkationTo
	}
	if len(dateRange) == 0 {
		return nil
	}
	return dateRange
}

// SetBilled flips the billed flag on every given placement in one bulk
// write.
func (r *PlacementRepository) SetBilled(ctx context.Context, ids []primitive.ObjectID, billed bool) error {
	return r.collection.BulkSet(ctx, ids, bson.M{"billed": billed})
}
