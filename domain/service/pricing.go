package service

import (
	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/policy"
)

// PricingCalculator computes line totals for resolved placements. It is
// stateless; occurrence tracking for duplicate-billing policies belongs to
// the caller assembling the invoice.
type PricingCalculator struct {
	statuses *Statuses
}

// NewPricingCalculator builds a calculator keyed to the resolved status set.
func NewPricingCalculator(statuses *Statuses) *PricingCalculator {
	return &PricingCalculator{statuses: statuses}
}

// LineTotal returns the amount to bill for one placement occurrence.
// position may be nil when the placement has no resolvable position, in
// which case the default rule prices it at zero.
//
// Under a monthly-fixed policy, returning-crew placements bill at the flat
// returning-crew fee; onboard placements bill at position price on their
// first occurrence within the invoice and at the flat repeat fee on every
// later occurrence. The repeat occurrences are an intended duplicate-billing
// rule for that policy, not deduplication fallout.
func (c *PricingCalculator) LineTotal(pol policy.BillingPolicy, p *entity.Placement, position *entity.Position, priorOccurrence bool) float64 {
	if pol.Kind == policy.KindMonthlyFixed {
		switch p.Status {
		case c.statuses.ReturningCrew.ID:
			return pol.ReturningCrewFee
		case c.statuses.Onboard.ID:
			if priorOccurrence {
				return pol.RepeatOnboardFee
			}
			return positionPrice(position)
		}
		return 0
	}

	return positionPrice(position)
}

func positionPrice(position *entity.Position) float64 {
	if position == nil {
		return 0
	}
	return position.Price
}
