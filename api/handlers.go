// Package api exposes the billing service over HTTP.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/crewfleet/billing-service/domain/entity"
	"github.com/crewfleet/billing-service/domain/repository"
	"github.com/crewfleet/billing-service/usecase"
)

// queryDateFormat is the wire format for date range filters.
const queryDateFormat = "2006-01-02"

// Handler adapts the billing use cases to HTTP.
type Handler struct {
	generator *usecase.InvoiceGenerator
	lifecycle *usecase.LifecycleManager
	logger    *zap.Logger
}

func NewHandler(generator *usecase.InvoiceGenerator, lifecycle *usecase.LifecycleManager, logger *zap.Logger) *Handler {
	return &Handler{generator: generator, lifecycle: lifecycle, logger: logger}
}

// ListInvoices handles GET /invoices with page, limit, company_id and a
// creation-date range.
func (h *Handler) ListInvoices(c *gin.Context) {
	q := repository.InvoiceListQuery{
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "limit", 10),
	}
	if raw := c.Query("company_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			badRequest(c, "company_id", "must be a valid object id")
			return
		}
		q.CompanyID = id
	}
	var ok bool
	if q.CreatedFrom, ok = dateQuery(c, "start_date"); !ok {
		return
	}
	if q.CreatedTo, ok = dateQuery(c, "end_date"); !ok {
		return
	}
	if !q.CreatedTo.IsZero() {
		// Make the end date inclusive of its whole day.
		q.CreatedTo = q.CreatedTo.AddDate(0, 0, 1).Add(-time.Second)
	}

	invoices, totalPages, err := h.lifecycle.List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invoices":    invoices,
		"total_pages": totalPages,
		"page":        q.Page,
	})
}

// ListInvoiceStatuses handles GET /invoice-statuses.
func (h *Handler) ListInvoiceStatuses(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 10)

	statuses, totalPages, err := h.lifecycle.ListStatuses(c.Request.Context(), page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invoice_statuses": statuses,
		"total_pages":      totalPages,
		"page":             page,
	})
}

// ViewInvoice handles GET /invoices/:id. First view moves a freshly created
// invoice to Under review.
func (h *Handler) ViewInvoice(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.lifecycle.View(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GenerateInvoice handles POST /companies/:id/invoices. A run that finds
// nothing to bill returns 200 with a null invoice.
func (h *Handler) GenerateInvoice(c *gin.Context) {
	companyID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	inv, err := h.generator.Generate(c.Request.Context(), companyID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if inv == nil {
		c.JSON(http.StatusOK, gin.H{"invoice": nil, "message": "no processes to bill"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invoice": inv})
}

// InvoicePDF handles GET /invoices/:id/pdf, re-rendering the document and
// returning a presigned download link.
func (h *Handler) InvoicePDF(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	url, err := h.lifecycle.GeneratePDF(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pdf_url": url})
}

// SendInvoice handles POST /invoices/:id/send.
func (h *Handler) SendInvoice(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.lifecycle.Send(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice submitted"})
}

type editItemRequest struct {
	ProcessID string  `json:"process_id" binding:"required"`
	Total     float64 `json:"total"`
}

type editInvoiceRequest struct {
	Items []editItemRequest `json:"items"`
}

// EditInvoice handles PUT /invoices/:id, replacing the line item set.
func (h *Handler) EditInvoice(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req editInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "items", err.Error())
		return
	}

	items := make([]usecase.EditItem, 0, len(req.Items))
	for _, item := range req.Items {
		pid, err := primitive.ObjectIDFromHex(item.ProcessID)
		if err != nil {
			badRequest(c, "items.process_id", "must be a valid object id")
			return
		}
		items = append(items, usecase.EditItem{ProcessID: pid, Total: item.Total})
	}

	view, err := h.lifecycle.Edit(c.Request.Context(), id, items)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type addProcessRequest struct {
	ProcessID string   `json:"process_id" binding:"required"`
	Total     *float64 `json:"total"`
}

// AddProcess handles POST /invoices/:id/processes.
func (h *Handler) AddProcess(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req addProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "process_id", err.Error())
		return
	}
	pid, err := primitive.ObjectIDFromHex(req.ProcessID)
	if err != nil {
		badRequest(c, "process_id", "must be a valid object id")
		return
	}

	view, err := h.lifecycle.AddPlacement(c.Request.Context(), id, pid, req.Total)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// MarkPaid handles POST /invoices/:id/paid.
func (h *Handler) MarkPaid(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.lifecycle.MarkPaid(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteInvoice handles DELETE /invoices/:id.
func (h *Handler) DeleteInvoice(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.lifecycle.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice deleted"})
}

type reconcileRequest struct {
	Cutoff string `json:"cutoff" binding:"required"`
	Billed *bool  `json:"billed" binding:"required"`
}

// ReconcileBilled handles POST /companies/:id/reconcile-billed, flipping the
// billed flag on every placement with an embarkation date at or after the
// cutoff.
func (h *Handler) ReconcileBilled(c *gin.Context) {
	companyID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}
	cutoff, err := time.Parse(queryDateFormat, req.Cutoff)
	if err != nil {
		badRequest(c, "cutoff", "must be formatted as YYYY-MM-DD")
		return
	}

	count, err := h.lifecycle.Reconcile(c.Request.Context(), companyID, cutoff, *req.Billed)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count, "billed": *req.Billed})
}

// fail maps domain errors onto HTTP statuses. Unexpected errors are logged
// and returned opaque.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case entity.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case entity.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		badRequest(c, name, "must be a valid object id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func badRequest(c *gin.Context, field, reason string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": field + " " + reason})
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func dateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(queryDateFormat, raw)
	if err != nil {
		badRequest(c, name, "must be formatted as YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}
