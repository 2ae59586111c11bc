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
)

func TestEnrichJoinsAndSortsByCandidateName(t *testing.T) {
	statuses := statusFixture()
	logger := zap.NewNop()

	norway := &entity.Country{ID: primitive.NewObjectID(), Name: "Norway"}
	ship := &entity.Ship{ID: primitive.NewObjectID(), Name: "MV Aurora"}
	deckhand := &entity.Position{ID: primitive.NewObjectID(), Name: "Deckhand", Price: 100}

	zimmer := &entity.User{
		ID: primitive.NewObjectID(), FirstName: "Hans", LastName: "Zimmer",
		Passport: entity.Passport{Number: "N1234", Country: norway.ID},
	}
	abel := &entity.User{
		ID: primitive.NewObjectID(), FirstName: "Maria", MiddleName: "Luisa", LastName: "Abel",
	}
	recruiter := &entity.User{ID: primitive.NewObjectID(), FirstName: "Rita", LastName: "Recruiter"}

	company := &entity.Company{ID: primitive.NewObjectID(), Name: "Acme Cruises", BillingPrefix: "ACME"}
	embark := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	placementOf := func(candidate *entity.User) *entity.Placement {
		return &entity.Placement{
			ID:         primitive.NewObjectID(),
			Candidate:  candidate.ID,
			Status:     statuses.Onboard.ID,
			Recruiters: []primitive.ObjectID{recruiter.ID},
			Answers: []entity.Answer{
				{Field: entity.AnswerFieldCompany, Value: company.ID},
				{Field: entity.AnswerFieldShip, Value: ship.ID},
				{Field: entity.AnswerFieldPosition, Value: deckhand.ID},
				{Field: entity.AnswerFieldEmbarkationDate, Value: embark},
			},
		}
	}
	pZimmer := placementOf(zimmer)
	pAbel := placementOf(abel)

	enricher := NewEnricher(
		newMemPlacements(pZimmer, pAbel),
		newMemUsers(zimmer, abel, recruiter),
		newMemCompanies(company),
		placementStatusRows(statuses),
		invoiceStatusRows(statuses),
		&memShips{rows: []*entity.Ship{ship}},
		&memPositions{rows: []*entity.Position{deckhand}},
		&memCountries{rows: []*entity.Country{norway}},
		logger,
	)

	inv := &entity.Invoice{
		ID:          primitive.NewObjectID(),
		Number:      "0005",
		Company:     company.ID,
		DateCreated: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		Items: []entity.LineItem{
			{Process: pZimmer.ID, Total: 100},
			{Process: pAbel.ID, Total: 100},
		},
		Status: statuses.InvoiceCreated.ID,
		StatusHistory: []entity.StatusChange{
			{Status: statuses.InvoiceCreated.ID, Date: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)},
		},
		Total: 200,
	}

	view, err := enricher.Enrich(context.Background(), inv)
	require.NoError(t, err)

	assert.Equal(t, "0005", view.Number)
	assert.Equal(t, company.Name, view.Company.Name)
	assert.Equal(t, entity.InvoiceStatusCreated, view.Status)
	require.Len(t, view.StatusHistory, 1)
	assert.Equal(t, entity.InvoiceStatusCreated, view.StatusHistory[0].Status)

	require.Len(t, view.Items, 2)
	// Sorted ascending by "Last, First Middle".
	assert.Equal(t, "Abel, Maria Luisa", view.Items[0].Candidate.FullName)
	assert.Equal(t, "Zimmer, Hans", view.Items[1].Candidate.FullName)

	item := view.Items[1]
	assert.Equal(t, "N1234", item.Candidate.PassportNumber)
	assert.Equal(t, "Norway", item.Candidate.PassportCountry)
	assert.Equal(t, "MV Aurora", item.Ship.Name)
	assert.Equal(t, "Deckhand", item.Position.Name)
	assert.Equal(t, "03-05-2024", item.Placement.EmbarkationDate)
	assert.Equal(t, entity.PlacementStatusOnboard, item.Placement.Status)
	assert.Equal(t, "Acme Cruises", item.Placement.Company)
	require.Len(t, item.Placement.Recruiters, 1)
	assert.Equal(t, recruiter.ID, item.Placement.Recruiters[0].ID)
}

func TestEnrichDanglingReferencesGetPlaceholders(t *testing.T) {
	statuses := statusFixture()
	company := &entity.Company{ID: primitive.NewObjectID(), Name: "Acme Cruises"}

	enricher := NewEnricher(
		newMemPlacements(),
		newMemUsers(),
		newMemCompanies(company),
		placementStatusRows(statuses),
		invoiceStatusRows(statuses),
		&memShips{},
		&memPositions{},
		&memCountries{},
		zap.NewNop(),
	)

	missing := primitive.NewObjectID()
	inv := &entity.Invoice{
		ID:      primitive.NewObjectID(),
		Number:  "0001",
		Company: company.ID,
		Items:   []entity.LineItem{{Process: missing, Total: 42}},
		Status:  statuses.InvoiceCreated.ID,
		Total:   42,
	}

	view, err := enricher.Enrich(context.Background(), inv)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	item := view.Items[0]
	assert.Equal(t, 42.0, item.Total)
	require.NotNil(t, item.Placement)
	assert.Equal(t, missing, item.Placement.ID)
	assert.Nil(t, item.Candidate)
	assert.Nil(t, item.Ship)
	assert.Nil(t, item.Position)
}
