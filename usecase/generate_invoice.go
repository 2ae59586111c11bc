package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/policy"
	"github.com/crewfleet/billing-service/domain/repository"
	"github.com/crewfleet/billing-service/domain/service"
)

// InvoiceGenerator assembles a period invoice for one company from its
// eligible placements: resolution, pricing, sequence assignment and
// persistence, plus the build notification.
type InvoiceGenerator struct {
	resolver   *service.EligibilityResolver
	pricing    *service.PricingCalculator
	statuses   *service.Statuses
	invoices   repository.InvoiceRepository
	companies  repository.CompanyRepository
	positions  repository.PositionRepository
	outbox     repository.OutboxRepository
	renderer   DocumentRenderer
	enricher   *Enricher
	notify     NotificationConfig
	logger     *zap.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// NewInvoiceGenerator wires an invoice generator.
func NewInvoiceGenerator(
	resolver *service.EligibilityResolver,
	pricing *service.PricingCalculator,
	statuses *service.Statuses,
	invoices repository.InvoiceRepository,
	companies repository.CompanyRepository,
	positions repository.PositionRepository,
	outbox repository.OutboxRepository,
	renderer DocumentRenderer,
	enricher *Enricher,
	notify NotificationConfig,
	logger *zap.Logger,
) *InvoiceGenerator {
	return &InvoiceGenerator{
		resolver:  resolver,
		pricing:   pricing,
		statuses:  statuses,
		invoices:  invoices,
		companies: companies,
		positions: positions,
		outbox:    outbox,
		renderer:  renderer,
		enricher:  enricher,
		notify:    notify,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate builds and persists the next invoice for the company. When no
// placement is eligible it emits a no-processes-to-bill notice instead and
// returns nil without creating anything.
//
// Write ordering is fixed: counter claim, invoice insert, then the build
// notification. Placements are not marked billed here; that happens when the
// invoice is submitted to the company.
func (g *InvoiceGenerator) Generate(ctx context.Context, companyID primitive.ObjectID) (*entity.Invoice, error) {
	company, err := g.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	runAt := g.now()
	eligible, err := g.resolver.Resolve(ctx, company, runAt)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		g.emitNothingToBill(ctx, company)
		return nil, nil
	}

	pol := policy.ForCompany(company.Name)
	if pol.DuplicateOnboard {
		eligible = appendOnboardAgain(eligible, g.statuses.Onboard.ID)
	}

	positions, err := g.positionsFor(ctx, eligible)
	if err != nil {
		return nil, err
	}

	seq, err := g.companies.ClaimNextNumber(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("claim invoice number for %s: %w", company.Name, err)
	}

	inv := &entity.Invoice{
		Number:      entity.FormatInvoiceNumber(seq),
		Company:     company.ID,
		DateCreated: runAt,
		Status:      g.statuses.InvoiceCreated.ID,
		StatusHistory: []entity.StatusChange{
			{Status: g.statuses.InvoiceCreated.ID, Date: runAt},
		},
	}

	seen := make(map[primitive.ObjectID]bool, len(eligible))
	for _, p := range eligible {
		var position *entity.Position
		if id, ok := p.AnswerID(entity.AnswerFieldPosition); ok {
			position = positions[id]
		}
		total := g.pricing.LineTotal(pol, p, position, seen[p.ID])
		seen[p.ID] = true
		inv.Items = append(inv.Items, entity.LineItem{Process: p.ID, Total: total})
	}
	inv.RecomputeTotal()

	id, err := g.invoices.Insert(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("persist invoice %s: %w", inv.Number, err)
	}
	inv.ID = id

	g.logger.Info("invoice generated",
		zap.String("invoice_id", inv.Number),
		zap.String("company", company.Name),
		zap.Int("items", len(inv.Items)),
		zap.Float64("total", inv.Total))

	// PDF rendering and the admin notification are best-effort; the
	// persisted invoice is the source of truth either way.
	g.renderPDF(ctx, inv)
	g.emitCreatedNotice(ctx, company, inv)

	return inv, nil
}

// appendOnboardAgain appends the onboard-status subset a second time, in
// original order, producing the repeat line items the monthly-fixed pricing
// rule bills at the flat repeat fee.
func appendOnboardAgain(eligible []*entity.Placement, onboardStatus primitive.ObjectID) []*entity.Placement {
	out := eligible
	for _, p := range eligible {
		if p.Status == onboardStatus {
			out = append(out, p)
		}
	}
	return out
}

func (g *InvoiceGenerator) positionsFor(ctx context.Context, placements []*entity.Placement) (map[primitive.ObjectID]*entity.Position, error) {
	set := map[primitive.ObjectID]struct{}{}
	for _, p := range placements {
		if id, ok := p.AnswerID(entity.AnswerFieldPosition); ok {
			set[id] = struct{}{}
		}
	}
	list, err := g.positions.FindByIDs(ctx, ids(set))
	if err != nil {
		return nil, fmt.Errorf("find placement positions: %w", err)
	}
	return indexByID(list, func(p *entity.Position) primitive.ObjectID { return p.ID }), nil
}

func (g *InvoiceGenerator) renderPDF(ctx context.Context, inv *entity.Invoice) {
	view, err := g.enricher.Enrich(ctx, inv)
	if err != nil {
		g.logger.Warn("skipping invoice PDF render",
			zap.String("invoice_id", inv.Number), zap.Error(err))
		return
	}
	if _, err := g.renderer.Render(ctx, view); err != nil {
		g.logger.Warn("invoice PDF render failed",
			zap.String("invoice_id", inv.Number), zap.Error(err))
	}
}

func (g *InvoiceGenerator) emitCreatedNotice(ctx context.Context, company *entity.Company, inv *entity.Invoice) {
	event := &entity.NotificationEvent{
		EventID:   uuid.NewString(),
		Template:  entity.TemplateInvoiceGeneratedAdmin,
		To:        []string{g.notify.OpsAddress},
		Subject:   fmt.Sprintf("Invoice %s %s created", company.FilePrefix(), inv.Number),
		InvoiceID: inv.ID,
		CompanyID: company.ID,
		Status:    entity.OutboxStatusPending,
		CreatedAt: g.now(),
	}
	if err := g.outbox.Insert(ctx, event); err != nil {
		g.logger.Warn("failed to queue invoice-created notification",
			zap.String("invoice_id", inv.Number), zap.Error(err))
	}
}

func (g *InvoiceGenerator) emitNothingToBill(ctx context.Context, company *entity.Company) {
	g.logger.Info("no placements to bill", zap.String("company", company.Name))
	event := &entity.NotificationEvent{
		EventID:   uuid.NewString(),
		Template:  entity.TemplateNoProcessesToBill,
		To:        []string{g.notify.OpsAddress},
		Subject:   fmt.Sprintf("No processes to bill for %s", company.Name),
		CompanyID: company.ID,
		Status:    entity.OutboxStatusPending,
		CreatedAt: g.now(),
	}
	if err := g.outbox.Insert(ctx, event); err != nil {
		g.logger.Warn("failed to queue nothing-to-bill notification",
			zap.String("company", company.Name), zap.Error(err))
	}
}
