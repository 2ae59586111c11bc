package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFormatInvoiceNumber(t *testing.T) {
	assert.Equal(t, "0000", FormatInvoiceNumber(0))
	assert.Equal(t, "0007", FormatInvoiceNumber(7))
	assert.Equal(t, "0042", FormatInvoiceNumber(42))
	assert.Equal(t, "1234", FormatInvoiceNumber(1234))
	assert.Equal(t, "12345", FormatInvoiceNumber(12345))
}

func TestRecomputeTotal(t *testing.T) {
	inv := &Invoice{Items: []LineItem{
		{Process: primitive.NewObjectID(), Total: 100},
		{Process: primitive.NewObjectID(), Total: 250.5},
		{Process: primitive.NewObjectID(), Total: 0},
	}}
	inv.RecomputeTotal()
	assert.Equal(t, 350.5, inv.Total)

	inv.Items = nil
	inv.RecomputeTotal()
	assert.Equal(t, 0.0, inv.Total)
}

func TestProcessIDsKeepsDuplicatesSkipsZero(t *testing.T) {
	p := primitive.NewObjectID()
	inv := &Invoice{Items: []LineItem{
		{Process: p, Total: 100},
		{Process: primitive.NilObjectID, Total: 50},
		{Process: p, Total: 125},
	}}
	assert.Equal(t, []primitive.ObjectID{p, p}, inv.ProcessIDs())
}

func TestCurrentStatusFallsBackWithoutHistory(t *testing.T) {
	status := primitive.NewObjectID()
	later := primitive.NewObjectID()

	inv := &Invoice{Status: status}
	assert.Equal(t, status, inv.CurrentStatus())

	inv.StatusHistory = []StatusChange{
		{Status: status, Date: time.Now().Add(-time.Hour)},
		{Status: later, Date: time.Now()},
	}
	assert.Equal(t, later, inv.CurrentStatus())
}

func TestCompanyNextNumber(t *testing.T) {
	tests := []struct {
		stored string
		want   int
	}{
		{stored: "7", want: 7},
		{stored: "0012", want: 12},
		{stored: "", want: 0},
		{stored: "abc", want: 0},
	}
	for _, tt := range tests {
		c := &Company{BillingNextNumber: tt.stored}
		assert.Equal(t, tt.want, c.NextNumber(), "stored %q", tt.stored)
	}
}

func TestCompanyFilePrefixAndObjectKey(t *testing.T) {
	c := &Company{Short: "ACM", BillingPrefix: "ACME"}
	assert.Equal(t, "ACME", c.FilePrefix())
	assert.Equal(t, "invoices/invoice_ACME_0007.pdf", c.InvoiceObjectKey("0007"))

	c.BillingPrefix = ""
	assert.Equal(t, "ACM", c.FilePrefix())
}

func TestUserFullName(t *testing.T) {
	u := &User{FirstName: "Maria", MiddleName: "Luisa", LastName: "Abel"}
	assert.Equal(t, "Abel, Maria Luisa", u.FullName())

	u.MiddleName = ""
	assert.Equal(t, "Abel, Maria", u.FullName())
}
