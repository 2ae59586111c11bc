package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crewfleet/billing-service/domain/entity"
)

// Reference collections joined onto invoices at read time.
const (
	invoiceStatusCollection = "invoiceStatus"
	processStatusCollection = "processStatus"
	usersCollection         = "users"
	shipsCollection         = "ships"
	positionsCollection     = "positions"
	countriesCollection     = "countries"
)

// InvoiceStatusRepository resolves the invoiceStatus lookup table.
type InvoiceStatusRepository struct {
	collection *Collection
}

func NewInvoiceStatusRepository(client *Client) *InvoiceStatusRepository {
	return &InvoiceStatusRepository{collection: client.Collection(invoiceStatusCollection)}
}

func (r *InvoiceStatusRepository) GetByName(ctx context.Context, name string) (*entity.InvoiceStatus, error) {
	var st entity.InvoiceStatus
	if err := r.collection.FindOne(ctx, bson.M{"status": name}, &st, entity.ErrStatusNotFound); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *InvoiceStatusRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.InvoiceStatus, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*entity.InvoiceStatus
	err := r.collection.FindMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, &out)
	return out, err
}

func (r *InvoiceStatusRepository) List(ctx context.Context, page, pageSize int) ([]*entity.InvoiceStatus, int, error) {
	var out []*entity.InvoiceStatus
	sort := bson.D{{Key: "status", Value: 1}}
	totalPages, err := r.collection.Paginate(ctx, bson.M{}, page, pageSize, sort, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, totalPages, nil
}

// PlacementStatusRepository resolves the processStatus lookup table.
type PlacementStatusRepository struct {
	collection *Collection
}

func NewPlacementStatusRepository(client *Client) *PlacementStatusRepository {
	return &PlacementStatusRepository{collection: client.Collection(processStatusCollection)}
}

func (r *PlacementStatusRepository) GetByName(ctx context.Context, name string) (*entity.PlacementStatus, error) {
	var st entity.PlacementStatus
	if err := r.collection.FindOne(ctx, bson.M{"status": name}, &st, entity.ErrStatusNotFound); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *PlacementStatusRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.PlacementStatus, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*entity.PlacementStatus
	err := r.collection.FindMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, &out)
	return out, err
}

// UserRepository resolves candidates and recruiters.
type UserRepository struct {
	collection *Collection
}

func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{collection: client.Collection(usersCollection)}
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	var u entity.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}, &u, entity.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := r.collection.FindOne(ctx, bson.M{"email": email}, &u, entity.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*entity.User
	err := r.collection.FindMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, &out)
	return out, err
}

// ShipRepository resolves vessels.
type ShipRepository struct {
	collection *Collection
}

func NewShipRepository(client *Client) *ShipRepository {
	return &ShipRepository{collection: client.Collection(shipsCollection)}
}

func (r *ShipRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Ship, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*entity.Ship
	err := r.collection.FindMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, &out)
	return out, err
}

// PositionRepository resolves job positions and their placement fees.
type PositionRepository struct {
	collection *Collection
}

func NewPositionRepository(client *Client) *PositionRepository {
	return &PositionRepository{collection: client.Collection(positionsCollection)}
}

func (r *PositionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Position, error) {
	var p entity.Position
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}, &p, entity.ErrPositionNotFound); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PositionRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Position, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*entity.Position
	err := r.collection.FindMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, &out)
	return out, err
}

// CountryRepository resolves passport countries.
type CountryRepository struct {
	collection *Collection
}

func NewCountryRepository(client *Client) *CountryRepository {
	return &CountryRepository{collection: client.Collection(countriesCollection)}
}

func (r *CountryRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Country, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*entity.Country
	err := r.collection.FindMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, &out)
	return out, err
}
