package service

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/repository"
)

// Statuses holds the lookup-table rows the billing core keys off, resolved
// once at startup. Business logic compares resolved IDs; the display text
// stays operator-editable in the lookup collections.
type Statuses struct {
	InvoiceCreated     entity.InvoiceStatus
	InvoiceUnderReview entity.InvoiceStatus
	InvoiceSubmitted   entity.InvoiceStatus
	InvoicePaid        entity.InvoiceStatus

	Onboard       entity.PlacementStatus
	ReturningCrew entity.PlacementStatus
}

// LoadStatuses resolves every canonical status name against the lookup
// collections. A missing row is a deployment error and fails startup.
func LoadStatuses(ctx context.Context, invoiceStatuses repository.InvoiceStatusRepository, placementStatuses repository.PlacementStatusRepository) (*Statuses, error) {
	s := &Statuses{}

	invoiceRows := []struct {
		name string
		dst  *entity.InvoiceStatus
	}{
		{entity.InvoiceStatusCreated, &s.InvoiceCreated},
		{entity.InvoiceStatusUnderReview, &s.InvoiceUnderReview},
		{entity.InvoiceStatusSubmittedToCompany, &s.InvoiceSubmitted},
		{entity.InvoiceStatusPaid, &s.InvoicePaid},
	}
	for _, row := range invoiceRows {
		st, err := invoiceStatuses.GetByName(ctx, row.name)
		if err != nil {
			return nil, fmt.Errorf("resolve invoice status %q: %w", row.name, err)
		}
		*row.dst = *st
	}

	placementRows := []struct {
		name string
		dst  *entity.PlacementStatus
	}{
		{entity.PlacementStatusOnboard, &s.Onboard},
		{entity.PlacementStatusReturningCrew, &s.ReturningCrew},
	}
	for _, row := range placementRows {
		st, err := placementStatuses.GetByName(ctx, row.name)
		if err != nil {
			return nil, fmt.Errorf("resolve placement status %q: %w", row.name, err)
		}
		*row.dst = *st
	}

	return s, nil
}

// BillableStatusIDs returns the placement statuses eligible for billing.
func (s *Statuses) BillableStatusIDs() []primitive.ObjectID {
	return []primitive.ObjectID{s.Onboard.ID, s.ReturningCrew.ID}
}
