// Package repository defines the persistence contracts the billing core
// consumes. Implementations live under infrastructure/database.
package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crewfleet/billing-service/domain/entity"
)

// BillableQuery selects placements for a billing run or a bulk
// reconciliation sweep. Zero-value time bounds are open.
type BillableQuery struct {
	StatusIDs       []primitive.ObjectID
	CompanyIDs      []primitive.ObjectID
	EmbarkationFrom time.Time
	EmbarkationTo   time.Time
	Billed          bool
}

// InvoiceListQuery selects a page of invoices, newest first, optionally
// restricted to a creation-date range.
type InvoiceListQuery struct {
	Page        int
	PageSize    int
	CompanyID   primitive.ObjectID
	CreatedFrom time.Time
	CreatedTo   time.Time
}

// PlacementRepository provides access to the processes collection.
type PlacementRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Placement, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Placement, error)
	FindBillable(ctx context.Context, q BillableQuery) ([]*entity.Placement, error)
	// SetBilled flips the billed flag on every given placement in one
	// batched write.
	SetBilled(ctx context.Context, ids []primitive.ObjectID, billed bool) error
}

// InvoiceRepository provides access to the invoices collection.
type InvoiceRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Invoice, error)
	// List returns one page of invoices plus the total page count. A page
	// beyond the result set fails with entity.ErrPageNotFound.
	List(ctx context.Context, q InvoiceListQuery) ([]*entity.Invoice, int, error)
	Insert(ctx context.Context, inv *entity.Invoice) (primitive.ObjectID, error)
	ReplaceItems(ctx context.Context, id primitive.ObjectID, items []entity.LineItem, total float64) error
	// AppendStatus sets the current status and pushes one history entry in
	// a single update.
	AppendStatus(ctx context.Context, id primitive.ObjectID, change entity.StatusChange) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CompanyRepository provides access to the companies collection. The billing
// counter operations are atomic increment-and-fetch so concurrent builds for
// one company can never observe the same sequence number.
type CompanyRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Company, error)
	GetByName(ctx context.Context, name string) (*entity.Company, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Company, error)
	// ClaimNextNumber advances billing_next_number by one and returns the
	// pre-increment value, which is the sequence number to assign.
	ClaimNextNumber(ctx context.Context, id primitive.ObjectID) (int, error)
	// ReleaseNumber walks the counter back by one after the last-issued
	// invoice is deleted. The counter never goes below zero.
	ReleaseNumber(ctx context.Context, id primitive.ObjectID) error
}

// InvoiceStatusRepository resolves rows of the invoiceStatus lookup table.
type InvoiceStatusRepository interface {
	GetByName(ctx context.Context, name string) (*entity.InvoiceStatus, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.InvoiceStatus, error)
	List(ctx context.Context, page, pageSize int) ([]*entity.InvoiceStatus, int, error)
}

// PlacementStatusRepository resolves rows of the processStatus lookup table.
type PlacementStatusRepository interface {
	GetByName(ctx context.Context, name string) (*entity.PlacementStatus, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.PlacementStatus, error)
}

// UserRepository provides candidate and recruiter lookups.
type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.User, error)
}

// ShipRepository provides vessel lookups.
type ShipRepository interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Ship, error)
}

// PositionRepository provides job position lookups, including the position
// price used by the pricing calculator.
type PositionRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Position, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Position, error)
}

// CountryRepository provides passport country lookups.
type CountryRepository interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Country, error)
}
