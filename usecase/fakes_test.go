package usecase

import (
	"context"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/repository"
	"github.com/crewfleet/billing-service/domain/service"
)

// In-memory repository fakes shared by the usecase tests.

type memPlacements struct {
	byID map[primitive.ObjectID]*entity.Placement
}

func newMemPlacements(placements ...*entity.Placement) *memPlacements {
	m := &memPlacements{byID: map[primitive.ObjectID]*entity.Placement{}}
	for _, p := range placements {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memPlacements) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Placement, error) {
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, entity.ErrPlacementNotFound
}

func (m *memPlacements) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Placement, error) {
	var out []*entity.Placement
	seen := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPlacements) FindBillable(ctx context.Context, q repository.BillableQuery) ([]*entity.Placement, error) {
	statuses := map[primitive.ObjectID]bool{}
	for _, id := range q.StatusIDs {
		statuses[id] = true
	}
	companies := map[primitive.ObjectID]bool{}
	for _, id := range q.CompanyIDs {
		companies[id] = true
	}

	var out []*entity.Placement
	for _, p := range m.byID {
		if p.Billed != q.Billed {
			continue
		}
		if len(statuses) > 0 && !statuses[p.Status] {
			continue
		}
		companyID, ok := p.CompanyID()
		if len(companies) > 0 && (!ok || !companies[companyID]) {
			continue
		}
		embark, ok := p.EmbarkationDate()
		if !ok {
			continue
		}
		if !q.EmbarkationFrom.IsZero() && embark.Before(q.EmbarkationFrom) {
			continue
		}
		if !q.EmbarkationTo.IsZero() && embark.After(q.EmbarkationTo) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memPlacements) SetBilled(ctx context.Context, ids []primitive.ObjectID, billed bool) error {
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			p.Billed = billed
		}
	}
	return nil
}

type memInvoices struct {
	byID map[primitive.ObjectID]*entity.Invoice
}

func newMemInvoices(invoices ...*entity.Invoice) *memInvoices {
	m := &memInvoices{byID: map[primitive.ObjectID]*entity.Invoice{}}
	for _, inv := range invoices {
		m.byID[inv.ID] = inv
	}
	return m
}

func (m *memInvoices) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Invoice, error) {
	if inv, ok := m.byID[id]; ok {
		copied := *inv
		return &copied, nil
	}
	return nil, entity.ErrInvoiceNotFound
}

func (m *memInvoices) List(ctx context.Context, q repository.InvoiceListQuery) ([]*entity.Invoice, int, error) {
	var out []*entity.Invoice
	for _, inv := range m.byID {
		if !q.CompanyID.IsZero() && inv.Company != q.CompanyID {
			continue
		}
		out = append(out, inv)
	}
	return out, 1, nil
}

func (m *memInvoices) Insert(ctx context.Context, inv *entity.Invoice) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	copied := *inv
	copied.ID = id
	m.byID[id] = &copied
	return id, nil
}

func (m *memInvoices) ReplaceItems(ctx context.Context, id primitive.ObjectID, items []entity.LineItem, total float64) error {
	inv, ok := m.byID[id]
	if !ok {
		return entity.ErrInvoiceNotFound
	}
	inv.Items = items
	inv.Total = total
	return nil
}

func (m *memInvoices) AppendStatus(ctx context.Context, id primitive.ObjectID, change entity.StatusChange) error {
	inv, ok := m.byID[id]
	if !ok {
		return entity.ErrInvoiceNotFound
	}
	inv.Status = change.Status
	inv.StatusHistory = append(inv.StatusHistory, change)
	return nil
}

func (m *memInvoices) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := m.byID[id]; !ok {
		return entity.ErrInvoiceNotFound
	}
	delete(m.byID, id)
	return nil
}

type memCompanies struct {
	byID map[primitive.ObjectID]*entity.Company
}

func newMemCompanies(companies ...*entity.Company) *memCompanies {
	m := &memCompanies{byID: map[primitive.ObjectID]*entity.Company{}}
	for _, c := range companies {
		m.byID[c.ID] = c
	}
	return m
}

func (m *memCompanies) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Company, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, entity.ErrCompanyNotFound
}

func (m *memCompanies) GetByName(ctx context.Context, name string) (*entity.Company, error) {
	for _, c := range m.byID {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, entity.ErrCompanyNotFound
}

func (m *memCompanies) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Company, error) {
	var out []*entity.Company
	for _, id := range ids {
		if c, ok := m.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// The counter is stored unpadded, matching the Mongo pipeline's $toString;
// zero-padding applies only to the invoice number derived from it.
func (m *memCompanies) ClaimNextNumber(ctx context.Context, id primitive.ObjectID) (int, error) {
	c, ok := m.byID[id]
	if !ok {
		return 0, entity.ErrCompanyNotFound
	}
	n := c.NextNumber()
	c.BillingNextNumber = strconv.Itoa(n + 1)
	return n, nil
}

func (m *memCompanies) ReleaseNumber(ctx context.Context, id primitive.ObjectID) error {
	c, ok := m.byID[id]
	if !ok {
		return entity.ErrCompanyNotFound
	}
	n := c.NextNumber() - 1
	if n < 0 {
		n = 0
	}
	c.BillingNextNumber = strconv.Itoa(n)
	return nil
}

type memInvoiceStatuses struct {
	rows []*entity.InvoiceStatus
}

func (m *memInvoiceStatuses) GetByName(ctx context.Context, name string) (*entity.InvoiceStatus, error) {
	for _, s := range m.rows {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, entity.ErrStatusNotFound
}

func (m *memInvoiceStatuses) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.InvoiceStatus, error) {
	var out []*entity.InvoiceStatus
	for _, id := range ids {
		for _, s := range m.rows {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (m *memInvoiceStatuses) List(ctx context.Context, page, pageSize int) ([]*entity.InvoiceStatus, int, error) {
	return m.rows, 1, nil
}

type memPlacementStatuses struct {
	rows []*entity.PlacementStatus
}

func (m *memPlacementStatuses) GetByName(ctx context.Context, name string) (*entity.PlacementStatus, error) {
	for _, s := range m.rows {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, entity.ErrStatusNotFound
}

func (m *memPlacementStatuses) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.PlacementStatus, error) {
	var out []*entity.PlacementStatus
	for _, id := range ids {
		for _, s := range m.rows {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type memUsers struct {
	byID map[primitive.ObjectID]*entity.User
}

func newMemUsers(users ...*entity.User) *memUsers {
	m := &memUsers{byID: map[primitive.ObjectID]*entity.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, entity.ErrUserNotFound
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, entity.ErrUserNotFound
}

func (m *memUsers) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.User, error) {
	var out []*entity.User
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type memShips struct {
	rows []*entity.Ship
}

func (m *memShips) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Ship, error) {
	var out []*entity.Ship
	for _, id := range ids {
		for _, s := range m.rows {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type memPositions struct {
	rows []*entity.Position
}

func (m *memPositions) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Position, error) {
	for _, p := range m.rows {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, entity.ErrPositionNotFound
}

func (m *memPositions) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Position, error) {
	var out []*entity.Position
	for _, id := range ids {
		for _, p := range m.rows {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type memCountries struct {
	rows []*entity.Country
}

func (m *memCountries) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.Country, error) {
	var out []*entity.Country
	for _, id := range ids {
		for _, c := range m.rows {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

type memOutbox struct {
	events []*entity.NotificationEvent
}

func (m *memOutbox) Insert(ctx context.Context, event *entity.NotificationEvent) error {
	copied := *event
	copied.ID = primitive.NewObjectID()
	m.events = append(m.events, &copied)
	return nil
}

func (m *memOutbox) FindPending(ctx context.Context, limit int) ([]*entity.NotificationEvent, error) {
	var out []*entity.NotificationEvent
	for _, e := range m.events {
		if e.Status == entity.OutboxStatusPending {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memOutbox) MarkSent(ctx context.Context, id primitive.ObjectID) error {
	for _, e := range m.events {
		if e.ID == id {
			now := time.Now()
			e.Status = entity.OutboxStatusSent
			e.SentAt = &now
			e.Attempts++
		}
	}
	return nil
}

func (m *memOutbox) RecordFailure(ctx context.Context, id primitive.ObjectID, reason string) error {
	for _, e := range m.events {
		if e.ID == id {
			e.LastError = reason
			e.Attempts++
		}
	}
	return nil
}

func (m *memOutbox) MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error {
	for _, e := range m.events {
		if e.ID == id {
			e.Status = entity.OutboxStatusFailed
			e.LastError = reason
			e.Attempts++
		}
	}
	return nil
}

func (m *memOutbox) byTemplate(template string) []*entity.NotificationEvent {
	var out []*entity.NotificationEvent
	for _, e := range m.events {
		if e.Template == template {
			out = append(out, e)
		}
	}
	return out
}

type fakeRenderer struct {
	rendered []*InvoiceView
	err      error
}

func (f *fakeRenderer) Render(ctx context.Context, view *InvoiceView) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rendered = append(f.rendered, view)
	return view.Company.InvoiceObjectKey(view.Number), nil
}

type fakeStorage struct {
	err error
}

func (f *fakeStorage) PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://storage.example.com/" + key, nil
}

type fakeNotifier struct {
	sent []*EmailMessage
	err  error
}

func (f *fakeNotifier) SendEmail(ctx context.Context, msg *EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func statusFixture() *service.Statuses {
	return &service.Statuses{
		InvoiceCreated:     entity.InvoiceStatus{ID: primitive.NewObjectID(), Name: entity.InvoiceStatusCreated},
		InvoiceUnderReview: entity.InvoiceStatus{ID: primitive.NewObjectID(), Name: entity.InvoiceStatusUnderReview},
		InvoiceSubmitted:   entity.InvoiceStatus{ID: primitive.NewObjectID(), Name: entity.InvoiceStatusSubmittedToCompany},
		InvoicePaid:        entity.InvoiceStatus{ID: primitive.NewObjectID(), Name: entity.InvoiceStatusPaid},
		Onboard:            entity.PlacementStatus{ID: primitive.NewObjectID(), Name: entity.PlacementStatusOnboard},
		ReturningCrew:      entity.PlacementStatus{ID: primitive.NewObjectID(), Name: entity.PlacementStatusReturningCrew},
	}
}

func invoiceStatusRows(s *service.Statuses) *memInvoiceStatuses {
	return &memInvoiceStatuses{rows: []*entity.InvoiceStatus{
		{ID: s.InvoiceCreated.ID, Name: s.InvoiceCreated.Name},
		{ID: s.InvoiceUnderReview.ID, Name: s.InvoiceUnderReview.Name},
		{ID: s.InvoiceSubmitted.ID, Name: s.InvoiceSubmitted.Name},
		{ID: s.InvoicePaid.ID, Name: s.InvoicePaid.Name},
	}}
}

func placementStatusRows(s *service.Statuses) *memPlacementStatuses {
	return &memPlacementStatuses{rows: []*entity.PlacementStatus{
		{ID: s.Onboard.ID, Name: s.Onboard.Name},
		{ID: s.ReturningCrew.ID, Name: s.ReturningCrew.Name},
	}}
}
