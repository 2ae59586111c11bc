package entity

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Company is the billed party. BillingNextNumber is the sole source of the
// next invoice sequence number for the company: it is advanced atomically
// with invoice creation and walked back when the last-issued invoice is
// deleted. The counter is stored as a string by the upstream system.
type Company struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name              string             `bson:"company" json:"company"`
	Short             string             `bson:"short,omitempty" json:"short"`
	BillingPrefix     string             `bson:"billing_prefix,omitempty" json:"billing_prefix"`
	BillingAddress    string             `bson:"billing_address,omitempty" json:"billing_address"`
	BillingAttn       string             `bson:"billing_attn,omitempty" json:"billing_attn"`
	BillingEmails     []string           `bson:"billing_emails,omitempty" json:"billing_emails"`
	BillingNextNumber string             `bson:"billing_next_number,omitempty" json:"billing_next_number"`
}

// NextNumber parses the stored counter. A missing or malformed counter reads
// as zero, matching how the upstream system seeds new companies.
func (c *Company) NextNumber() int {
	n, err := strconv.Atoi(c.BillingNextNumber)
	if err != nil {
		return 0
	}
	return n
}

// FilePrefix is the token used in PDF object keys and email subjects,
// preferring the billing prefix over the short code.
func (c *Company) FilePrefix() string {
	if c.BillingPrefix != "" {
		return c.BillingPrefix
	}
	return c.Short
}

// InvoiceObjectKey is the object storage key of the rendered PDF for the
// given invoice number.
func (c *Company) InvoiceObjectKey(invoiceNumber string) string {
	return fmt.Sprintf("invoices/invoice_%s_%s.pdf", c.FilePrefix(), invoiceNumber)
}
