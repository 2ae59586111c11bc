package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/policy"
	"github.com/crewfleet/billing-service/domain/service"
)

type generatorFixture struct {
	statuses   *service.Statuses
	placements *memPlacements
	invoices   *memInvoices
	companies  *memCompanies
	positions  *memPositions
	outbox     *memOutbox
	renderer   *fakeRenderer
	generator  *InvoiceGenerator
}

func newGeneratorFixture(t *testing.T, runAt time.Time, companies *memCompanies, placements *memPlacements, positions *memPositions) *generatorFixture {
	t.Helper()
	logger := zap.NewNop()
	statuses := statusFixture()
	invoices := newMemInvoices()
	outbox := &memOutbox{}
	renderer := &fakeRenderer{}

	enricher := NewEnricher(placements, newMemUsers(), companies, placementStatusRows(statuses),
		invoiceStatusRows(statuses), &memShips{}, positions, &memCountries{}, logger)
	resolver := service.NewEligibilityResolver(placements, companies, statuses, logger)
	pricing := service.NewPricingCalculator(statuses)

	notify := NotificationConfig{OpsAddress: "ops@crewfleet.example", PresignTTL: 30 * time.Minute}
	generator := NewInvoiceGenerator(resolver, pricing, statuses, invoices, companies,
		positions, outbox, renderer, enricher, notify, logger)
	generator.now = func() time.Time { return runAt }

	return &generatorFixture{
		statuses:   statuses,
		placements: placements,
		invoices:   invoices,
		companies:  companies,
		positions:  positions,
		outbox:     outbox,
		renderer:   renderer,
		generator:  generator,
	}
}

func billablePlacement(companyID, statusID, positionID primitive.ObjectID, embark time.Time) *entity.Placement {
	return &entity.Placement{
		ID:        primitive.NewObjectID(),
		Candidate: primitive.NewObjectID(),
		Status:    statusID,
		Answers: []entity.Answer{
			{Field: entity.AnswerFieldCompany, Value: companyID},
			{Field: entity.AnswerFieldPosition, Value: positionID},
			{Field: entity.AnswerFieldEmbarkationDate, Value: embark},
		},
	}
}

func TestGenerateStandardInvoice(t *testing.T) {
	runAt := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	embark := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	company := &entity.Company{
		ID:                primitive.NewObjectID(),
		Name:              "Acme Cruises",
		BillingPrefix:     "ACME",
		BillingNextNumber: "7",
	}
	deckhand := &entity.Position{ID: primitive.NewObjectID(), Name: "Deckhand", Price: 300}
	steward := &entity.Position{ID: primitive.NewObjectID(), Name: "Steward", Price: 250}

	fix := newGeneratorFixture(t, runAt, newMemCompanies(company), newMemPlacements(), &memPositions{rows: []*entity.Position{deckhand, steward}})
	p1 := billablePlacement(company.ID, fix.statuses.Onboard.ID, deckhand.ID, embark)
	p2 := billablePlacement(company.ID, fix.statuses.ReturningCrew.ID, steward.ID, embark)
	fix.placements.byID[p1.ID] = p1
	fix.placements.byID[p2.ID] = p2

	inv, err := fix.generator.Generate(context.Background(), company.ID)
	require.NoError(t, err)
	require.NotNil(t, inv)

	assert.Equal(t, "0007", inv.Number)
	assert.Equal(t, "8", company.BillingNextNumber)
	assert.Len(t, inv.Items, 2)
	assert.Equal(t, 550.0, inv.Total)
	assert.Equal(t, fix.statuses.InvoiceCreated.ID, inv.CurrentStatus())
	require.Len(t, inv.StatusHistory, 1)

	// Placements stay unbilled until the invoice is submitted.
	assert.False(t, p1.Billed)
	assert.False(t, p2.Billed)

	require.Len(t, fix.outbox.byTemplate(entity.TemplateInvoiceGeneratedAdmin), 1)
	assert.Equal(t, "Invoice ACME 0007 created", fix.outbox.events[0].Subject)
	require.Len(t, fix.renderer.rendered, 1)
}

func TestGenerateTotalsMatchItems(t *testing.T) {
	runAt := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	embark := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	company := &entity.Company{ID: primitive.NewObjectID(), Name: "Acme Cruises", BillingNextNumber: "1"}

	positions := []*entity.Position{}
	placements := newMemPlacements()
	fix := newGeneratorFixture(t, runAt, newMemCompanies(company), placements, &memPositions{})

	want := 0.0
	for _, price := range []float64{120, 340.5, 99.99} {
		pos := &entity.Position{ID: primitive.NewObjectID(), Price: price}
		positions = append(positions, pos)
		p := billablePlacement(company.ID, fix.statuses.Onboard.ID, pos.ID, embark)
		placements.byID[p.ID] = p
		want += price
	}
	fix.positions.rows = positions

	inv, err := fix.generator.Generate(context.Background(), company.ID)
	require.NoError(t, err)
	require.NotNil(t, inv)

	sum := 0.0
	for _, item := range inv.Items {
		sum += item.Total
	}
	assert.InDelta(t, want, inv.Total, 1e-9)
	assert.InDelta(t, sum, inv.Total, 1e-9)
}

func TestGenerateNothingToBill(t *testing.T) {
	runAt := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	company := &entity.Company{ID: primitive.NewObjectID(), Name: "Acme Cruises", BillingNextNumber: "4"}
	fix := newGeneratorFixture(t, runAt, newMemCompanies(company), newMemPlacements(), &memPositions{})

	inv, err := fix.generator.Generate(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Nil(t, inv)

	// No invoice, no counter movement, but an ops notice.
	assert.Equal(t, "4", company.BillingNextNumber)
	assert.Empty(t, fix.invoices.byID)
	require.Len(t, fix.outbox.byTemplate(entity.TemplateNoProcessesToBill), 1)
}

func TestGenerateMonthlyFixedDuplicatesOnboard(t *testing.T) {
	runAt := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	embark := time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC)

	princess := &entity.Company{ID: primitive.NewObjectID(), Name: policy.CompanyPrincess, BillingNextNumber: "12"}
	captain := &entity.Position{ID: primitive.NewObjectID(), Name: "Captain", Price: 500}

	placements := newMemPlacements()
	fix := newGeneratorFixture(t, runAt, newMemCompanies(princess), placements, &memPositions{rows: []*entity.Position{captain}})

	onboard1 := billablePlacement(princess.ID, fix.statuses.Onboard.ID, captain.ID, embark)
	onboard2 := billablePlacement(princess.ID, fix.statuses.Onboard.ID, captain.ID, embark)
	returning := billablePlacement(princess.ID, fix.statuses.ReturningCrew.ID, captain.ID, embark)
	for _, p := range []*entity.Placement{onboard1, onboard2, returning} {
		placements.byID[p.ID] = p
	}

	inv, err := fix.generator.Generate(context.Background(), princess.ID)
	require.NoError(t, err)
	require.NotNil(t, inv)

	// Two onboard placements each appear twice, the returning crew one once.
	require.Len(t, inv.Items, 5)

	totals := map[primitive.ObjectID][]float64{}
	for _, item := range inv.Items {
		totals[item.Process] = append(totals[item.Process], item.Total)
	}
	assert.Equal(t, []float64{500, 125}, totals[onboard1.ID])
	assert.Equal(t, []float64{500, 125}, totals[onboard2.ID])
	assert.Equal(t, []float64{95}, totals[returning.ID])
	assert.Equal(t, 1345.0, inv.Total)
}

func TestGenerateStoresCounterUnpadded(t *testing.T) {
	runAt := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	embark := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	// Upstream seeds the counter as a padded string; after a claim it is
	// stored back as a plain decimal, only the invoice number keeps padding.
	company := &entity.Company{ID: primitive.NewObjectID(), Name: "Acme Cruises", BillingNextNumber: "0009"}
	deckhand := &entity.Position{ID: primitive.NewObjectID(), Price: 100}

	placements := newMemPlacements()
	fix := newGeneratorFixture(t, runAt, newMemCompanies(company), placements, &memPositions{rows: []*entity.Position{deckhand}})
	p := billablePlacement(company.ID, fix.statuses.Onboard.ID, deckhand.ID, embark)
	placements.byID[p.ID] = p

	inv, err := fix.generator.Generate(context.Background(), company.ID)
	require.NoError(t, err)
	require.NotNil(t, inv)

	assert.Equal(t, "0009", inv.Number)
	assert.Equal(t, "10", company.BillingNextNumber)
}

func TestGenerateNumbersStrictlyIncrease(t *testing.T) {
	runAt := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
	company := &entity.Company{ID: primitive.NewObjectID(), Name: "Acme Cruises", BillingNextNumber: "1"}
	deckhand := &entity.Position{ID: primitive.NewObjectID(), Price: 100}

	placements := newMemPlacements()
	fix := newGeneratorFixture(t, runAt, newMemCompanies(company), placements, &memPositions{rows: []*entity.Position{deckhand}})

	var numbers []string
	for i := 0; i < 3; i++ {
		p := billablePlacement(company.ID, fix.statuses.Onboard.ID, deckhand.ID,
			time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
		fix.placements.byID[p.ID] = p

		inv, err := fix.generator.Generate(context.Background(), company.ID)
		require.NoError(t, err)
		require.NotNil(t, inv)
		numbers = append(numbers, inv.Number)

		// Submit so the placement leaves the billable pool.
		require.NoError(t, fix.placements.SetBilled(context.Background(), inv.ProcessIDs(), true))
	}

	assert.Equal(t, []string{"0001", "0002", "0003"}, numbers)
}
