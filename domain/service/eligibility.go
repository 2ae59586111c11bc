package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/policy"
	"github.com/crewfleet/billing-service/domain/repository"
)

// EligibilityResolver determines which placements a billing run may include
// for a company, applying the company's policy window and grouping rules.
type EligibilityResolver struct {
	placements repository.PlacementRepository
	companies  repository.CompanyRepository
	statuses   *Statuses
	logger     *zap.Logger
}

// NewEligibilityResolver builds a resolver over the given repositories.
func NewEligibilityResolver(placements repository.PlacementRepository, companies repository.CompanyRepository, statuses *Statuses, logger *zap.Logger) *EligibilityResolver {
	return &EligibilityResolver{
		placements: placements,
		companies:  companies,
		statuses:   statuses,
		logger:     logger,
	}
}

// Resolve returns the placements billable for the company at the given run
// time: unbilled, in a billable status, scoped to the policy's company set
// and embarkation window. Affiliates billed through a parent fleet run
// resolve to an empty set.
func (r *EligibilityResolver) Resolve(ctx context.Context, company *entity.Company, runAt time.Time) ([]*entity.Placement, error) {
	pol := policy.ForCompany(company.Name)

	q := repository.BillableQuery{
		StatusIDs: r.statuses.BillableStatusIDs(),
		Billed:    false,
	}

	switch pol.Kind {
	case policy.KindAffiliate:
		r.logger.Info("affiliate billed through parent run, nothing to resolve",
			zap.String("company", company.Name))
		return nil, nil

	case policy.KindFleetGroup:
		ids := []primitive.ObjectID{company.ID}
		for _, name := range pol.AffiliateNames {
			affiliate, err := r.companies.GetByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("resolve affiliate %q: %w", name, err)
			}
			ids = append(ids, affiliate.ID)
		}
		q.CompanyIDs = ids
		q.EmbarkationTo = StandardCutoff(runAt)

	case policy.KindMonthlyFixed:
		from, to := PreviousMonthWindow(runAt)
		q.CompanyIDs = []primitive.ObjectID{company.ID}
		q.EmbarkationFrom = from
		q.EmbarkationTo = to

	default:
		q.CompanyIDs = []primitive.ObjectID{company.ID}
		q.EmbarkationTo = StandardCutoff(runAt)
	}

	eligible, err := r.placements.FindBillable(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find billable placements: %w", err)
	}

	r.logger.Info("eligibility resolved",
		zap.String("company", company.Name),
		zap.Int("placements", len(eligible)),
		zap.Time("run_at", runAt))

	return eligible, nil
}

// StandardCutoff is the general eligibility cutoff: embarkation dates up to
// the last calendar day of the month two months before the run date, end of
// day.
func StandardCutoff(runAt time.Time) time.Time {
	year, month := monthsBack(runAt, 2)
	return endOfMonth(year, month, runAt.Location())
}

// PreviousMonthWindow is the restricted window for monthly-fixed companies:
// the whole calendar month before the run date.
func PreviousMonthWindow(runAt time.Time) (time.Time, time.Time) {
	year, month := monthsBack(runAt, 1)
	start := time.Date(year, month, 1, 0, 0, 0, 0, runAt.Location())
	return start, endOfMonth(year, month, runAt.Location())
}

// monthsBack walks the calendar back without the day-of-month normalization
// time.AddDate applies, so a run on the 30th still lands in the right month.
func monthsBack(t time.Time, months int) (int, time.Month) {
	y, m, _ := t.Date()
	total := y*12 + int(m) - 1 - months
	return total / 12, time.Month(total%12 + 1)
}

func endOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	firstOfNext := time.Date(year, month, 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
	lastDay := firstOfNext.AddDate(0, 0, -1)
	return time.Date(lastDay.Year(), lastDay.Month(), lastDay.Day(), 23, 59, 59, 0, loc)
}
