package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/repository"
)

const invoicesCollection = "invoices"

// InvoiceRepository implements repository.InvoiceRepository on the invoices
// collection.
type InvoiceRepository struct {
	collection *Collection
}

// NewInvoiceRepository binds the repository to the client.
func NewInvoiceRepository(client *Client) *InvoiceRepository {
	return &InvoiceRepository{collection: client.Collection(invoicesCollection)}
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Invoice, error) {
	var inv entity.Invoice
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}, &inv, entity.ErrInvoiceNotFound); err != nil {
		return nil, err
	}
	return &inv, nil
}

// List returns one page of invoices, newest first, optionally restricted to
// a company and a creation-date range.
func (r *InvoiceRepository) List(ctx context.Context, q repository.InvoiceListQuery) ([]*entity.Invoice, int, error) {
	filter := bson.M{}
	if !q.CompanyID.IsZero() {
		filter["company"] = q.CompanyID
	}
	created := bson.M{}
	if !q.CreatedFrom.IsZero() {
		created["$gte"] = q.CreatedFrom
	}
	if !q.CreatedTo.IsZero() {
		created["$lte"] = q.CreatedTo
	}
	if len(created) > 0 {
		filter["date_created"] = created
	}

	var out []*entity.Invoice
	sort := bson.D{{Key: "date_created", Value: -1}}
	totalPages, err := r.collection.Paginate(ctx, filter, q.Page, q.PageSize, sort, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, totalPages, nil
}

func (r *InvoiceRepository) Insert(ctx context.Context, inv *entity.Invoice) (primitive.ObjectID, error) {
	return r.collection.InsertOne(ctx, inv)
}

// ReplaceItems swaps the line item set and total in one update.
func (r *InvoiceRepository) ReplaceItems(ctx context.Context, id primitive.ObjectID, items []entity.LineItem, total float64) error {
	if items == nil {
		items = []entity.LineItem{}
	}
	return r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"items": items, "total": total},
	})
}

// AppendStatus sets the current status and pushes the history entry in a
// single update so the two can never diverge.
func (r *InvoiceRepository) AppendStatus(ctx context.Context, id primitive.ObjectID, change entity.StatusChange) error {
	return r.collection.UpdateByID(ctx, id, bson.M{
		"$set":  bson.M{"status": change.Status},
		"$push": bson.M{"status_history": change},
	})
}

func (r *InvoiceRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.collection.DeleteByID(ctx, id)
}
