package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Roles accepted by the billing endpoints.
const (
	RoleAdmin   = "admin"
	RoleBilling = "billing"
)

// NewRouter builds the gin engine with all billing routes behind JWT auth.
func NewRouter(handler *Handler, auth AuthConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(auth), RequireRole(RoleAdmin, RoleBilling))
	{
		v1.GET("/invoices", handler.ListInvoices)
		v1.GET("/invoice-statuses", handler.ListInvoiceStatuses)
		v1.GET("/invoices/:id", handler.ViewInvoice)
		v1.GET("/invoices/:id/pdf", handler.InvoicePDF)
		v1.PUT("/invoices/:id", handler.EditInvoice)
		v1.POST("/invoices/:id/send", handler.SendInvoice)
		v1.POST("/invoices/:id/processes", handler.AddProcess)
		v1.POST("/invoices/:id/paid", handler.MarkPaid)
		v1.DELETE("/invoices/:id", handler.DeleteInvoice)

		v1.POST("/companies/:id/invoices", handler.GenerateInvoice)
		v1.POST("/companies/:id/reconcile-billed", handler.ReconcileBilled)
	}

	return router
}
