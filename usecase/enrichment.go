package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/repository"
)

// Enricher produces the display-ready aggregate of a persisted invoice. All
// joins are batched, one lookup per referenced collection, so cost is bound
// by distinct references rather than items times joins.
type Enricher struct {
	placements        repository.PlacementRepository
	users             repository.UserRepository
	companies         repository.CompanyRepository
	placementStatuses repository.PlacementStatusRepository
	invoiceStatuses   repository.InvoiceStatusRepository
	ships             repository.ShipRepository
	positions         repository.PositionRepository
	countries         repository.CountryRepository
	logger            *zap.Logger
}

// NewEnricher builds an enricher over the reference repositories.
func NewEnricher(
	placements repository.PlacementRepository,
	users repository.UserRepository,
	companies repository.CompanyRepository,
	placementStatuses repository.PlacementStatusRepository,
	invoiceStatuses repository.InvoiceStatusRepository,
	ships repository.ShipRepository,
	positions repository.PositionRepository,
	countries repository.CountryRepository,
	logger *zap.Logger,
) *Enricher {
	return &Enricher{
		placements:        placements,
		users:             users,
		companies:         companies,
		placementStatuses: placementStatuses,
		invoiceStatuses:   invoiceStatuses,
		ships:             ships,
		positions:         positions,
		countries:         countries,
		logger:            logger,
	}
}

// refSet collects the distinct references found across an invoice's
// placements.
type refSet struct {
	candidates map[primitive.ObjectID]struct{}
	recruiters map[primitive.ObjectID]struct{}
	companies  map[primitive.ObjectID]struct{}
	statuses   map[primitive.ObjectID]struct{}
	ships      map[primitive.ObjectID]struct{}
	positions  map[primitive.ObjectID]struct{}
}

func collectRefs(placements map[primitive.ObjectID]*entity.Placement) *refSet {
	refs := &refSet{
		candidates: map[primitive.ObjectID]struct{}{},
		recruiters: map[primitive.ObjectID]struct{}{},
		companies:  map[primitive.ObjectID]struct{}{},
		statuses:   map[primitive.ObjectID]struct{}{},
		ships:      map[primitive.ObjectID]struct{}{},
		positions:  map[primitive.ObjectID]struct{}{},
	}
	for _, p := range placements {
		if !p.Candidate.IsZero() {
			refs.candidates[p.Candidate] = struct{}{}
		}
		for _, r := range p.Recruiters {
			refs.recruiters[r] = struct{}{}
		}
		if !p.Status.IsZero() {
			refs.statuses[p.Status] = struct{}{}
		}
		if id, ok := p.AnswerID(entity.AnswerFieldCompany); ok {
			refs.companies[id] = struct{}{}
		}
		if id, ok := p.AnswerID(entity.AnswerFieldShip); ok {
			refs.ships[id] = struct{}{}
		}
		if id, ok := p.AnswerID(entity.AnswerFieldPosition); ok {
			refs.positions[id] = struct{}{}
		}
	}
	return refs
}

func ids(set map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Enrich joins every line item of the invoice against its placement,
// candidate, status, company, ship, position and passport-country reference
// data. Missing references resolve to empty placeholders. Items come back
// sorted ascending by candidate full name.
func (e *Enricher) Enrich(ctx context.Context, inv *entity.Invoice) (*InvoiceView, error) {
	placements, err := e.placementsByID(ctx, inv.ProcessIDs())
	if err != nil {
		return nil, err
	}
	refs := collectRefs(placements)

	var (
		candidates map[primitive.ObjectID]*entity.User
		recruiters map[primitive.ObjectID]*entity.User
		companies  map[primitive.ObjectID]*entity.Company
		statuses   map[primitive.ObjectID]*entity.PlacementStatus
		ships      map[primitive.ObjectID]*entity.Ship
		positions  map[primitive.ObjectID]*entity.Position
	)

	// The batch lookups are pure reads, so they fan out concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := e.users.FindByIDs(gctx, ids(refs.candidates))
		candidates = indexByID(list, userID)
		return err
	})
	g.Go(func() error {
		list, err := e.users.FindByIDs(gctx, ids(refs.recruiters))
		recruiters = indexByID(list, userID)
		return err
	})
	g.Go(func() error {
		list, err := e.companies.FindByIDs(gctx, ids(refs.companies))
		companies = indexByID(list, func(c *entity.Company) primitive.ObjectID { return c.ID })
		return err
	})
	g.Go(func() error {
		list, err := e.placementStatuses.FindByIDs(gctx, ids(refs.statuses))
		statuses = indexByID(list, func(s *entity.PlacementStatus) primitive.ObjectID { return s.ID })
		return err
	})
	g.Go(func() error {
		list, err := e.ships.FindByIDs(gctx, ids(refs.ships))
		ships = indexByID(list, func(s *entity.Ship) primitive.ObjectID { return s.ID })
		return err
	})
	g.Go(func() error {
		list, err := e.positions.FindByIDs(gctx, ids(refs.positions))
		positions = indexByID(list, func(p *entity.Position) primitive.ObjectID { return p.ID })
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch reference lookup: %w", err)
	}

	countries, err := e.passportCountries(ctx, candidates)
	if err != nil {
		return nil, err
	}

	items := make([]*ItemView, 0, len(inv.Items))
	for _, line := range inv.Items {
		items = append(items, e.buildItem(line, placements, candidates, recruiters, companies, statuses, ships, positions, countries))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return itemSortKey(items[i]) < itemSortKey(items[j])
	})

	view := &InvoiceView{
		ID:          inv.ID,
		Number:      inv.Number,
		DateCreated: inv.DateCreated,
		Items:       items,
		Total:       inv.Total,
	}

	if err := e.attachInvoiceMeta(ctx, inv, view); err != nil {
		return nil, err
	}
	return view, nil
}

func (e *Enricher) placementsByID(ctx context.Context, processIDs []primitive.ObjectID) (map[primitive.ObjectID]*entity.Placement, error) {
	found, err := e.placements.FindByIDs(ctx, processIDs)
	if err != nil {
		return nil, fmt.Errorf("find invoice placements: %w", err)
	}
	out := make(map[primitive.ObjectID]*entity.Placement, len(found))
	for _, p := range found {
		out[p.ID] = p
	}
	return out, nil
}

// passportCountries batches the country lookup across all candidates on the
// invoice.
func (e *Enricher) passportCountries(ctx context.Context, candidates map[primitive.ObjectID]*entity.User) (map[primitive.ObjectID]*entity.Country, error) {
	set := map[primitive.ObjectID]struct{}{}
	for _, c := range candidates {
		if !c.Passport.Country.IsZero() {
			set[c.Passport.Country] = struct{}{}
		}
	}
	list, err := e.countries.FindByIDs(ctx, ids(set))
	if err != nil {
		return nil, fmt.Errorf("find passport countries: %w", err)
	}
	return indexByID(list, func(c *entity.Country) primitive.ObjectID { return c.ID }), nil
}

func (e *Enricher) buildItem(
	line entity.LineItem,
	placements map[primitive.ObjectID]*entity.Placement,
	candidates, recruiters map[primitive.ObjectID]*entity.User,
	companies map[primitive.ObjectID]*entity.Company,
	statuses map[primitive.ObjectID]*entity.PlacementStatus,
	ships map[primitive.ObjectID]*entity.Ship,
	positions map[primitive.ObjectID]*entity.Position,
	countries map[primitive.ObjectID]*entity.Country,
) *ItemView {
	item := &ItemView{Total: line.Total}

	p, ok := placements[line.Process]
	if !ok {
		// Dangling reference: the item stays renderable with an empty
		// placement placeholder.
		item.Placement = &PlacementView{ID: line.Process}
		return item
	}

	pv := &PlacementView{ID: p.ID, Billed: p.Billed}
	if embark, ok := p.EmbarkationDate(); ok {
		pv.EmbarkationDate = embark.Format(DisplayDateFormat)
	}
	if st, ok := statuses[p.Status]; ok {
		pv.Status = st.Name
	}
	if companyID, ok := p.CompanyID(); ok {
		if c, ok := companies[companyID]; ok {
			pv.Company = c.Name
		}
	}
	for _, rid := range p.Recruiters {
		if r, ok := recruiters[rid]; ok {
			pv.Recruiters = append(pv.Recruiters, r)
		}
	}
	item.Placement = pv

	if c, ok := candidates[p.Candidate]; ok {
		cv := &CandidateView{
			ID:             c.ID,
			FirstName:      c.FirstName,
			MiddleName:     c.MiddleName,
			LastName:       c.LastName,
			FullName:       c.FullName(),
			PassportNumber: c.Passport.Number,
		}
		if country, ok := countries[c.Passport.Country]; ok {
			cv.PassportCountry = country.Name
		}
		item.Candidate = cv
	}

	if id, ok := p.AnswerID(entity.AnswerFieldShip); ok {
		item.Ship = ships[id]
	}
	if id, ok := p.AnswerID(entity.AnswerFieldPosition); ok {
		item.Position = positions[id]
	}
	return item
}

// attachInvoiceMeta resolves the invoice's company and status display data.
func (e *Enricher) attachInvoiceMeta(ctx context.Context, inv *entity.Invoice, view *InvoiceView) error {
	company, err := e.companies.GetByID(ctx, inv.Company)
	if err != nil {
		return fmt.Errorf("resolve invoice company: %w", err)
	}
	view.Company = company

	statusIDs := map[primitive.ObjectID]struct{}{}
	if !inv.Status.IsZero() {
		statusIDs[inv.Status] = struct{}{}
	}
	for _, change := range inv.StatusHistory {
		statusIDs[change.Status] = struct{}{}
	}
	list, err := e.invoiceStatuses.FindByIDs(ctx, ids(statusIDs))
	if err != nil {
		return fmt.Errorf("resolve invoice statuses: %w", err)
	}
	statuses := indexByID(list, func(s *entity.InvoiceStatus) primitive.ObjectID { return s.ID })

	if st, ok := statuses[inv.Status]; ok {
		view.Status = st.Name
	}
	view.StatusHistory = make([]StatusChangeView, 0, len(inv.StatusHistory))
	for _, change := range inv.StatusHistory {
		entry := StatusChangeView{Date: change.Date}
		if st, ok := statuses[change.Status]; ok {
			entry.Status = st.Name
		}
		view.StatusHistory = append(view.StatusHistory, entry)
	}
	return nil
}

func itemSortKey(item *ItemView) string {
	if item.Candidate == nil {
		return ""
	}
	return item.Candidate.FullName
}

// indexByID keys a FindByIDs result by document ID.
func indexByID[T any](list []T, key func(T) primitive.ObjectID) map[primitive.ObjectID]T {
	out := make(map[primitive.ObjectID]T, len(list))
	for _, doc := range list {
		out[key(doc)] = doc
	}
	return out
}

func userID(u *entity.User) primitive.ObjectID { return u.ID }
