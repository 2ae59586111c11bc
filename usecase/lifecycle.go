package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/repository"
	"github.com/crewfleet/billing-service/domain/service"
)

// EditItem is one caller-supplied line item for an invoice edit. The amount
// is taken as given, not recomputed from the pricing rules.
type EditItem struct {
	ProcessID primitive.ObjectID
	Total     float64
}

// LifecycleManager drives the invoice status state machine and the
// compensating updates it forces on placements and on the company's invoice
// counter.
type LifecycleManager struct {
	invoices        repository.InvoiceRepository
	placements      repository.PlacementRepository
	companies       repository.CompanyRepository
	positions       repository.PositionRepository
	invoiceStatuses repository.InvoiceStatusRepository
	statuses        *service.Statuses
	enricher        *Enricher
	renderer        DocumentRenderer
	storage         ObjectStorage
	outbox          repository.OutboxRepository
	notify          NotificationConfig
	logger          *zap.Logger

	now func() time.Time
}

// NewLifecycleManager wires a lifecycle manager.
func NewLifecycleManager(
	invoices repository.InvoiceRepository,
	placements repository.PlacementRepository,
	companies repository.CompanyRepository,
	positions repository.PositionRepository,
	invoiceStatuses repository.InvoiceStatusRepository,
	statuses *service.Statuses,
	enricher *Enricher,
	renderer DocumentRenderer,
	storage ObjectStorage,
	outbox repository.OutboxRepository,
	notify NotificationConfig,
	logger *zap.Logger,
) *LifecycleManager {
	return &LifecycleManager{
		invoices:        invoices,
		placements:      placements,
		companies:       companies,
		positions:       positions,
		invoiceStatuses: invoiceStatuses,
		statuses:        statuses,
		enricher:        enricher,
		renderer:        renderer,
		storage:         storage,
		outbox:          outbox,
		notify:          notify,
		logger:          logger,
		now:             time.Now,
	}
}

// View returns the display-ready invoice. Reading an invoice still in
// Created moves it to Under review exactly once; re-viewing an under-review
// invoice performs no further transition.
func (m *LifecycleManager) View(ctx context.Context, invoiceID primitive.ObjectID) (*InvoiceView, error) {
	inv, err := m.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if inv.CurrentStatus() == m.statuses.InvoiceCreated.ID {
		change := entity.StatusChange{Status: m.statuses.InvoiceUnderReview.ID, Date: m.now()}
		if err := m.invoices.AppendStatus(ctx, inv.ID, change); err != nil {
			return nil, fmt.Errorf("transition invoice %s to under review: %w", inv.Number, err)
		}
		inv.Status = change.Status
		inv.StatusHistory = append(inv.StatusHistory, change)
	}

	view, err := m.enricher.Enrich(ctx, inv)
	if err != nil {
		return nil, err
	}
	m.attachPDFURL(ctx, view)
	return view, nil
}

// Send submits the invoice to the company: status moves to Submitted to
// company, the billing distribution list is emailed the rendered PDF, and
// every referenced placement is marked billed in one batched update. This is
// the only place placements become billed.
func (m *LifecycleManager) Send(ctx context.Context, invoiceID primitive.ObjectID) error {
	inv, err := m.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	company, err := m.companies.GetByID(ctx, inv.Company)
	if err != nil {
		return err
	}

	change := entity.StatusChange{Status: m.statuses.InvoiceSubmitted.ID, Date: m.now()}
	if err := m.invoices.AppendStatus(ctx, inv.ID, change); err != nil {
		return fmt.Errorf("transition invoice %s to submitted: %w", inv.Number, err)
	}

	key := company.InvoiceObjectKey(inv.Number)
	event := &entity.NotificationEvent{
		EventID:       uuid.NewString(),
		Template:      entity.TemplateInvoiceGenerated,
		To:            append(append([]string{}, company.BillingEmails...), m.notify.OpsAddress),
		Cc:            m.notify.CcList(),
		Subject:       fmt.Sprintf("Invoice %s %s", company.FilePrefix(), inv.Number),
		InvoiceID:     inv.ID,
		CompanyID:     company.ID,
		AttachmentKey: key,
		Status:        entity.OutboxStatusPending,
		CreatedAt:     m.now(),
	}
	if err := m.outbox.Insert(ctx, event); err != nil {
		m.logger.Warn("failed to queue invoice submission email",
			zap.String("invoice_id", inv.Number), zap.Error(err))
	}

	if err := m.placements.SetBilled(ctx, inv.ProcessIDs(), true); err != nil {
		return fmt.Errorf("mark invoice %s placements billed: %w", inv.Number, err)
	}

	m.logger.Info("invoice submitted to company",
		zap.String("invoice_id", inv.Number),
		zap.String("company", company.Name),
		zap.Int("placements", len(inv.ProcessIDs())))
	return nil
}

// Edit replaces the invoice's line items with the caller-supplied set.
// Placements dropped from the invoice are released back to unbilled
// immediately; totals are taken from the supplied items and the invoice
// total recomputed as their sum. The PDF is regenerated.
func (m *LifecycleManager) Edit(ctx context.Context, invoiceID primitive.ObjectID, newItems []EditItem) (*InvoiceView, error) {
	inv, err := m.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	keep := make(map[primitive.ObjectID]bool, len(newItems))
	for _, item := range newItems {
		keep[item.ProcessID] = true
	}
	var removed []primitive.ObjectID
	for _, id := range inv.ProcessIDs() {
		if !keep[id] {
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		if err := m.placements.SetBilled(ctx, removed, false); err != nil {
			return nil, fmt.Errorf("release removed placements: %w", err)
		}
	}

	// Items referencing unknown placements are dropped rather than billed
	// blind.
	existing, err := m.placements.FindByIDs(ctx, editProcessIDs(newItems))
	if err != nil {
		return nil, fmt.Errorf("find edited placements: %w", err)
	}
	known := make(map[primitive.ObjectID]bool, len(existing))
	for _, p := range existing {
		known[p.ID] = true
	}

	items := make([]entity.LineItem, 0, len(newItems))
	for _, item := range newItems {
		if !known[item.ProcessID] {
			continue
		}
		items = append(items, entity.LineItem{Process: item.ProcessID, Total: item.Total})
	}

	inv.Items = items
	inv.RecomputeTotal()
	if err := m.invoices.ReplaceItems(ctx, inv.ID, inv.Items, inv.Total); err != nil {
		return nil, fmt.Errorf("persist edited invoice %s: %w", inv.Number, err)
	}

	view, err := m.enricher.Enrich(ctx, inv)
	if err != nil {
		return nil, err
	}
	m.regeneratePDF(ctx, inv, view)
	return view, nil
}

// AddPlacement appends one line item. The amount is the caller's when given,
// otherwise it falls back to the placement's position price.
func (m *LifecycleManager) AddPlacement(ctx context.Context, invoiceID, processID primitive.ObjectID, total *float64) (*InvoiceView, error) {
	inv, err := m.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	placement, err := m.placements.GetByID(ctx, processID)
	if err != nil {
		return nil, err
	}

	amount := 0.0
	switch {
	case total != nil:
		amount = *total
	default:
		if posID, ok := placement.AnswerID(entity.AnswerFieldPosition); ok {
			position, err := m.positions.GetByID(ctx, posID)
			if err == nil {
				amount = position.Price
			} else if !entity.IsNotFound(err) {
				return nil, err
			}
		}
	}

	inv.Items = append(inv.Items, entity.LineItem{Process: placement.ID, Total: amount})
	inv.RecomputeTotal()
	if err := m.invoices.ReplaceItems(ctx, inv.ID, inv.Items, inv.Total); err != nil {
		return nil, fmt.Errorf("persist invoice %s after adding placement: %w", inv.Number, err)
	}

	return m.enricher.Enrich(ctx, inv)
}

// MarkPaid records payment: status moves to Paid with a history entry.
// Placements stay billed.
func (m *LifecycleManager) MarkPaid(ctx context.Context, invoiceID primitive.ObjectID) (*InvoiceView, error) {
	inv, err := m.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	change := entity.StatusChange{Status: m.statuses.InvoicePaid.ID, Date: m.now()}
	if err := m.invoices.AppendStatus(ctx, inv.ID, change); err != nil {
		return nil, fmt.Errorf("transition invoice %s to paid: %w", inv.Number, err)
	}
	inv.Status = change.Status
	inv.StatusHistory = append(inv.StatusHistory, change)

	view, err := m.enricher.Enrich(ctx, inv)
	if err != nil {
		return nil, err
	}
	m.attachPDFURL(ctx, view)
	return view, nil
}

// Delete hard-deletes the invoice, walks the company counter back by one and
// releases every referenced placement to unbilled. Safe only on the
// company's last-issued invoice; the write order is counter, placements,
// invoice so a partial failure leaves detectable rather than silent drift.
func (m *LifecycleManager) Delete(ctx context.Context, invoiceID primitive.ObjectID) error {
	inv, err := m.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	company, err := m.companies.GetByID(ctx, inv.Company)
	if err != nil {
		return err
	}

	if err := m.companies.ReleaseNumber(ctx, company.ID); err != nil {
		return fmt.Errorf("release invoice number for %s: %w", company.Name, err)
	}
	if err := m.placements.SetBilled(ctx, inv.ProcessIDs(), false); err != nil {
		return fmt.Errorf("release invoice %s placements: %w", inv.Number, err)
	}
	if err := m.invoices.Delete(ctx, inv.ID); err != nil {
		return fmt.Errorf("delete invoice %s: %w", inv.Number, err)
	}

	m.logger.Info("invoice deleted",
		zap.String("invoice_id", inv.Number),
		zap.String("company", company.Name))
	return nil
}

// Reconcile flips the billed flag on every placement of the company with an
// embarkation date at or after the cutoff, regardless of invoice linkage. It
// is a manual correction escape hatch: no invoice document is touched, so
// misuse can desynchronize invoices from the billed set.
func (m *LifecycleManager) Reconcile(ctx context.Context, companyID primitive.ObjectID, cutoff time.Time, billed bool) (int, error) {
	company, err := m.companies.GetByID(ctx, companyID)
	if err != nil {
		return 0, err
	}

	matches, err := m.placements.FindBillable(ctx, repository.BillableQuery{
		CompanyIDs:      []primitive.ObjectID{company.ID},
		EmbarkationFrom: cutoff,
		Billed:          !billed,
	})
	if err != nil {
		return 0, fmt.Errorf("find placements to reconcile: %w", err)
	}
	if len(matches) == 0 {
		return 0, nil
	}

	ids := make([]primitive.ObjectID, 0, len(matches))
	for _, p := range matches {
		ids = append(ids, p.ID)
	}
	if err := m.placements.SetBilled(ctx, ids, billed); err != nil {
		return 0, fmt.Errorf("reconcile placements: %w", err)
	}

	m.logger.Info("placements reconciled",
		zap.String("company", company.Name),
		zap.Bool("billed", billed),
		zap.Int("count", len(ids)))
	return len(ids), nil
}

// List returns one page of invoices, newest first.
func (m *LifecycleManager) List(ctx context.Context, q repository.InvoiceListQuery) ([]*entity.Invoice, int, error) {
	return m.invoices.List(ctx, q)
}

// ListStatuses returns one page of the invoice status lookup table.
func (m *LifecycleManager) ListStatuses(ctx context.Context, page, pageSize int) ([]*entity.InvoiceStatus, int, error) {
	return m.invoiceStatuses.List(ctx, page, pageSize)
}

// GeneratePDF re-renders the invoice document and returns a presigned
// download URL.
func (m *LifecycleManager) GeneratePDF(ctx context.Context, invoiceID primitive.ObjectID) (string, error) {
	inv, err := m.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	view, err := m.enricher.Enrich(ctx, inv)
	if err != nil {
		return "", err
	}
	key, err := m.renderer.Render(ctx, view)
	if err != nil {
		return "", fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}
	url, err := m.storage.PresignedGet(ctx, key, m.notify.PresignTTL)
	if err != nil {
		return "", fmt.Errorf("presign invoice %s: %w", inv.Number, err)
	}
	return url, nil
}

// attachPDFURL best-effort presigns the stored PDF for the view. A missing
// or unreachable object leaves the URL empty rather than failing the read.
func (m *LifecycleManager) attachPDFURL(ctx context.Context, view *InvoiceView) {
	if view.Company == nil {
		return
	}
	key := view.Company.InvoiceObjectKey(view.Number)
	url, err := m.storage.PresignedGet(ctx, key, m.notify.PresignTTL)
	if err != nil {
		m.logger.Warn("failed to presign invoice PDF",
			zap.String("invoice_id", view.Number), zap.Error(err))
		return
	}
	view.PDFURL = url
}

func (m *LifecycleManager) regeneratePDF(ctx context.Context, inv *entity.Invoice, view *InvoiceView) {
	key, err := m.renderer.Render(ctx, view)
	if err != nil {
		m.logger.Warn("invoice PDF regeneration failed",
			zap.String("invoice_id", inv.Number), zap.Error(err))
		return
	}
	url, err := m.storage.PresignedGet(ctx, key, m.notify.PresignTTL)
	if err != nil {
		m.logger.Warn("failed to presign regenerated PDF",
			zap.String("invoice_id", inv.Number), zap.Error(err))
		return
	}
	view.PDFURL = url
}

func editProcessIDs(items []EditItem) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		out = append(out, item.ProcessID)
	}
	return out
}
